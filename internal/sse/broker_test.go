package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/langthil/internal/models"
	"github.com/starford/langthil/internal/wikipath"
)

// drain collects messages from ch until it has been quiet for wait.
func drain(ch chan []byte, wait time.Duration) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		case <-time.After(wait):
			return out
		}
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	reader := b.Subscribe(false)
	editor := b.Subscribe(true)
	if n := b.ClientCount(); n != 2 {
		t.Fatalf("clients = %d, want 2", n)
	}
	b.Unsubscribe(reader)
	b.Unsubscribe(editor)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe(false)
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "article.saved", Data: map[string]string{"path": "lore/a"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.HasPrefix(s, "event: article.saved\ndata: ") || !strings.HasSuffix(s, "\n\n") {
			t.Errorf("bad framing: %q", s)
		}
		if !strings.Contains(s, `"path":"lore/a"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishArticleEvent_ChangedThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe(false)
	defer b.Unsubscribe(ch)

	b.PublishArticleEvent("article.saved", &models.Article{ID: "1", Title: "A", Namespace: "lore", Slug: "a", IsPublished: true})
	b.PublishArticleEvent("article.moved", &models.Article{ID: "2", Title: "B", Slug: "b", IsPublished: true})

	var articles []string
	changed := 0
	for _, s := range drain(ch, 200*time.Millisecond) {
		if strings.Contains(s, "event: "+EventArticlesChanged) {
			changed++
		} else {
			articles = append(articles, s)
		}
	}
	if len(articles) != 2 {
		t.Fatalf("article events = %d, want 2", len(articles))
	}
	if !strings.Contains(articles[0], "event: article.saved") || !strings.Contains(articles[0], `"url":"/wiki/lore/a"`) {
		t.Errorf("first event = %q", articles[0])
	}
	if changed != 1 {
		t.Errorf("articles.changed events = %d, want 1 (throttled)", changed)
	}
}

func TestUnpublishedEventsReachEditorsOnly(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	reader := b.Subscribe(false)
	defer b.Unsubscribe(reader)
	editor := b.Subscribe(true)
	defer b.Unsubscribe(editor)

	b.PublishArticleEvent("article.saved", &models.Article{ID: "1", Title: "Draft", Slug: "draft"})

	for _, s := range drain(reader, 200*time.Millisecond) {
		if strings.Contains(s, "draft") {
			t.Errorf("reader saw unpublished article: %q", s)
		}
	}
	got := drain(editor, 200*time.Millisecond)
	if len(got) != 2 || !strings.Contains(got[0], `"path":"draft"`) {
		t.Errorf("editor messages = %q", got)
	}
}

func TestPublishArticleMoved_CarriesOldPath(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe(false)
	defer b.Unsubscribe(ch)

	moved := &models.Article{ID: "1", Title: "Wyrms", Namespace: "lore", Slug: "wyrms", IsPublished: true}
	b.PublishArticleMoved(moved, wikipath.New("old", "wyrm"))

	got := drain(ch, 200*time.Millisecond)
	if len(got) == 0 {
		t.Fatal("no events")
	}
	for _, want := range []string{
		"event: " + EventArticleMoved,
		`"path":"lore/wyrms"`,
		`"from":"old/wyrm"`,
		`"from_url":"/wiki/old/wyrm"`,
	} {
		if !strings.Contains(got[0], want) {
			t.Errorf("moved event missing %s: %q", want, got[0])
		}
	}
}

func TestHandlerStreamsUntilDisconnect(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	always := func(context.Context) bool { return true }

	done := make(chan struct{})
	go func() {
		b.Handler(always).ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishArticleEvent("article.saved", &models.Article{ID: "1", Title: "Draft", Slug: "draft"})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	if body := w.Body.String(); !strings.Contains(body, `"path":"draft"`) {
		t.Errorf("editor stream missing unpublished article: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe(false)
	defer b.Unsubscribe(ch)

	// Buffer holds 64; the rest are dropped without blocking.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]int{"i": i}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe(true)

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// No-ops after close.
	b.Publish(Event{Type: "article.saved", Data: map[string]string{"path": "x"}})
	b.PublishArticleEvent("article.saved", &models.Article{Slug: "x"})
	if _, ok := <-b.Subscribe(false); ok {
		t.Error("subscribe after close should return a closed channel")
	}
}
