// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/langthil/internal/api"
	"github.com/starford/langthil/internal/mcpserver"
	"github.com/starford/langthil/internal/mirror"
	"github.com/starford/langthil/internal/render"
	"github.com/starford/langthil/internal/sse"
	"github.com/starford/langthil/internal/storage"
	"github.com/starford/langthil/internal/store"
	"github.com/starford/langthil/internal/wiki"
	"github.com/starford/langthil/internal/wikipath"
)

// runtime is the wired object graph shared by every entry point.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	db     *store.DB
	svc    *wiki.Service
	mirror *mirror.Mirror
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// wire opens the store and builds the wiki service. The vault mirror is
// attached when configured; publisher may be nil.
func wire(app *application, logger *slog.Logger, publisher wiki.Publisher) (*runtime, error) {
	cfg := app.config

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	pipeline := render.NewPipeline(render.NewGoldmark(render.GoldmarkOptions{
		HardWraps: cfg.Wiki.Markdown.HardWraps,
		SafeMode:  cfg.Wiki.Markdown.SafeMode,
	}))
	svcOpts := []wiki.Option{
		wiki.WithLogger(logger),
		wiki.WithMaxRedirectHops(cfg.Wiki.MaxRedirectHops),
		wiki.WithStickyRedirects(cfg.Wiki.StickyRedirects),
		wiki.WithNotFoundSlug(cfg.Wiki.NotFoundSlug),
	}
	if publisher != nil {
		svcOpts = append(svcOpts, wiki.WithPublisher(publisher))
	}
	rt := &runtime{cfg: cfg, logger: logger, db: db, svc: wiki.NewService(db, pipeline, svcOpts...)}

	if cfg.Vault.Enabled() {
		if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
			db.Close()
			return nil, fmt.Errorf("create vault dir: %w", err)
		}
		fs, err := storage.NewFS(cfg.Vault.Path)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("init vault: %w", err)
		}
		rt.mirror = mirror.New(fs, db, rt.svc, logger)
		rt.svc.SetExporter(rt.mirror)
	}
	return rt, nil
}

// sync imports changed vault files. Failures are logged, not fatal.
func (rt *runtime) sync(ctx context.Context) {
	if rt.mirror == nil {
		return
	}
	n, err := rt.mirror.Sync(ctx)
	if err != nil {
		rt.logger.Warn("initial sync failed", slog.String("error", err.Error()))
		return
	}
	rt.logger.Info("vault synced", slog.Int("imported", n))
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg, app.logOutput)

	logger.Info("Configuration loaded",
		slog.String("site_name", cfg.Wiki.SiteName),
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	rt, err := wire(app, logger, broker)
	if err != nil {
		return err
	}
	defer rt.db.Close()
	rt.sync(ctx)

	apiRouter := api.NewRouter(rt.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker.Handler(api.IsEditor))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := rt.db.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Redirects and create links point at /wiki and /new; serve them from the API.
	r.Get("/wiki/*", forwardToAPI)
	r.Get("/new/*", forwardToAPI)

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	if rt.mirror != nil && cfg.Vault.Watch {
		g.Go(func() error {
			if err := rt.mirror.Watch(gCtx); err != nil {
				logger.Error("watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

func forwardToAPI(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/api"+r.URL.RequestURI(), http.StatusTemporaryRedirect)
}

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr unless
// WithLogOutput says otherwise.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	logger := newLogger(app.config, app.logOutput)

	rt, err := wire(app, logger, nil)
	if err != nil {
		return err
	}
	defer rt.db.Close()
	rt.sync(ctx)

	logger.Info("MCP server starting", slog.String("version", app.version))
	return mcpserver.New(rt.svc, app.version).ServeStdio()
}

// Resolve resolves raw the way an anonymous reader would see it.
func Resolve(ctx context.Context, raw string, opts ...Option) (wiki.Resolution, error) {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return wiki.Resolution{}, err
	}
	p, err := wikipath.Parse(raw)
	if err != nil {
		return wiki.Resolution{}, err
	}
	rt, err := wire(app, newLogger(app.config, app.logOutput), nil)
	if err != nil {
		return wiki.Resolution{}, err
	}
	defer rt.db.Close()

	ropts := wiki.DefaultResolveOptions()
	ropts.Sticky = app.config.Wiki.StickyRedirects
	return rt.svc.Resolve(ctx, p, ropts)
}

// Sync imports the vault once and returns the number of imported files.
func Sync(ctx context.Context, opts ...Option) (int, error) {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return 0, err
	}
	if !app.config.Vault.Enabled() {
		return 0, fmt.Errorf("vault path is not configured")
	}
	rt, err := wire(app, newLogger(app.config, app.logOutput), nil)
	if err != nil {
		return 0, err
	}
	defer rt.db.Close()
	return rt.mirror.Sync(ctx)
}
