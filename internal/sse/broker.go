// Package sse streams article change notifications to browsers as
// Server-Sent Events.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/langthil/internal/models"
	"github.com/starford/langthil/internal/wikipath"
)

// EventArticlesChanged is the throttled "refresh your listings" signal sent
// after article events.
const EventArticlesChanged = "articles.changed"

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ArticleEvent is the payload of article.* events.
type ArticleEvent struct {
	ID        string `json:"id"`
	Path      string `json:"path"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Published bool   `json:"published"`
	// From and FromURL are set on article.moved.
	From    string `json:"from,omitempty"`
	FromURL string `json:"from_url,omitempty"`
}

// EventArticleMoved is sent when an article changes path.
const EventArticleMoved = "article.moved"

type articleEventReq struct {
	kind string
	data ArticleEvent
}

// subscriber is a client channel and whether it may see unpublished articles.
type subscriber struct {
	ch     chan []byte
	editor bool
}

// Broker fans article events out to connected clients. Events about
// unpublished articles reach editors only.
//
// A single goroutine owns the client set and the articles.changed throttle;
// public methods talk to it over channels.
type Broker struct {
	changedMin time.Duration

	subscribeCh   chan subscriber
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	articleCh     chan articleEventReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that sends articles.changed at most once per
// changedThrottle.
func NewBroker(changedThrottle time.Duration) *Broker {
	if changedThrottle <= 0 {
		changedThrottle = 2 * time.Second
	}

	b := &Broker{
		changedMin:    changedThrottle,
		subscribeCh:   make(chan subscriber),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		articleCh:     make(chan articleEventReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func encode(event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload)), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]bool) // channel -> editor
	var lastChanged time.Time

	send := func(event Event, editorsOnly bool) {
		raw, err := encode(event)
		if err != nil {
			return
		}
		for ch, editor := range clients {
			if editorsOnly && !editor {
				continue
			}
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than stall everyone else.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub.editor

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			send(event, false)

		case req := <-b.articleCh:
			send(Event{Type: req.kind, Data: req.data}, !req.data.Published)

			now := time.Now()
			if now.Sub(lastChanged) >= b.changedMin {
				lastChanged = now
				send(Event{Type: EventArticlesChanged, Data: map[string]string{}}, false)
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the broker loop and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client and returns its channel. Only editors receive
// events about unpublished articles.
func (b *Broker) Subscribe(editor bool) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscriber{ch: ch, editor: editor}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to every connected client.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishArticleEvent publishes an article change and a throttled
// articles.changed event.
func (b *Broker) PublishArticleEvent(kind string, a *models.Article) {
	if b.closed.Load() {
		return
	}
	b.sendArticle(articleEventReq{kind: kind, data: newArticleEvent(a)})
}

// PublishArticleMoved publishes article.moved carrying both the new and the
// old location, so clients can drop the old URL.
func (b *Broker) PublishArticleMoved(a *models.Article, from wikipath.WikiPath) {
	if b.closed.Load() {
		return
	}
	data := newArticleEvent(a)
	data.From = from.String()
	data.FromURL = from.URL()
	b.sendArticle(articleEventReq{kind: EventArticleMoved, data: data})
}

func newArticleEvent(a *models.Article) ArticleEvent {
	return ArticleEvent{
		ID:        a.ID,
		Path:      a.Path().String(),
		URL:       a.URL(),
		Title:     a.Title,
		Published: a.IsPublished,
	}
}

func (b *Broker) sendArticle(req articleEventReq) {
	select {
	case b.articleCh <- req:
	case <-b.stopped:
	}
}

// Handler returns the SSE endpoint. isEditor decides, per request, whether
// the client sees unpublished articles; nil means nobody does.
func (b *Broker) Handler(isEditor func(context.Context) bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		ch := b.Subscribe(isEditor != nil && isEditor(r.Context()))
		defer b.Unsubscribe(ch)

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				_, _ = w.Write(msg)
				flusher.Flush()
			}
		}
	})
}
