// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/yearwheel/internal/api"
	"github.com/starford/yearwheel/internal/index"
	"github.com/starford/yearwheel/internal/mcpserver"
	"github.com/starford/yearwheel/internal/notestore"
	"github.com/starford/yearwheel/internal/sse"
	"github.com/starford/yearwheel/internal/storage"
	"github.com/starford/yearwheel/internal/workspace"
)

// coalesceWindow bounds how often drag updates reach SSE clients.
const coalesceWindow = 50 * time.Millisecond

// runtime holds the components shared by the HTTP and MCP entry points.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	files  *storage.FS
	db     *index.DB
	broker *sse.Broker
	ws     *workspace.Workspace
}

func setup(ctx context.Context, opts []Option) (*runtime, error) {
	app := newApplication(opts)
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Int("wheel_year", cfg.Wheel.Year),
		slog.String("on_move_complete", string(cfg.Connector.OnMoveComplete)),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	files, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	if _, err := index.Sync(db, files, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	broker := sse.NewBroker(coalesceWindow)

	ws := workspace.New(files,
		workspace.WithLogger(logger),
		workspace.WithPublisher(broker),
		workspace.WithLayout(cfg.Wheel.Layout()),
		workspace.WithCanvasSize(cfg.Canvas.Width, cfg.Canvas.Height),
		workspace.WithCommitThreshold(cfg.Connector.CommitThreshold),
		workspace.WithStoreOptions(
			notestore.WithIndex(db),
			notestore.WithPolicy(cfg.Connector.OnMoveComplete),
			notestore.WithDebounce(cfg.Autosave.Debounce),
		),
	)

	loaded, err := ws.Load(ctx)
	if err != nil {
		_ = ws.Close()
		broker.Close()
		_ = db.Close()
		return nil, fmt.Errorf("load notes: %w", err)
	}
	logger.Info("Notes loaded", slog.Int("count", loaded))

	return &runtime{cfg: cfg, logger: logger, files: files, db: db, broker: broker, ws: ws}, nil
}

// close flushes pending edits before the index goes away.
func (rt *runtime) close() {
	if err := rt.ws.Close(); err != nil {
		rt.logger.Error("workspace close failed", slog.String("error", err.Error()))
	}
	rt.broker.Close()
	if err := rt.db.Close(); err != nil {
		rt.logger.Error("index close failed", slog.String("error", err.Error()))
	}
}

// watch keeps the workspace in step with files edited outside the app.
func (rt *runtime) watch(ctx context.Context) error {
	return index.Watch(ctx, rt.db, rt.files, rt.cfg.Vault.Path, rt.logger, func(kind, path string) {
		var err error
		switch {
		case kind == index.ChangeDeleted || !rt.files.Exists(path):
			err = rt.ws.Forget(ctx, path)
		default:
			err = rt.ws.ReloadFile(ctx, path)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			rt.logger.Warn("apply external change failed",
				slog.String("kind", kind),
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	})
}

// Run starts the HTTP server with the given options.
// It returns once ctx is cancelled or SIGINT/SIGTERM arrives, after pending
// edits are flushed.
func Run(ctx context.Context, opts ...Option) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.close()

	cfg, logger := rt.cfg, rt.logger

	h := api.NewHandler(rt.ws, rt.ws.Store(), rt.db)
	apiRouter := api.NewRouter(h, cfg.Auth.AuthEnabled(), cfg.Auth.Token, rt.broker, cfg.Vault.Path)

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
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := rt.ws.View(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := rt.watch(gCtx); err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down server...")

		// SSE streams end when the broker closes their channels.
		rt.broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools over stdio until stdin closes.
func RunMCP(ctx context.Context, opts ...Option) error {
	opts = append([]Option{WithLogOutput(os.Stderr)}, opts...)
	rt, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.close()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := rt.watch(watchCtx); err != nil {
			rt.logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
	}()

	rt.logger.Info("MCP server starting on stdio")
	srv := mcpserver.New(rt.ws, rt.ws.Store(), rt.db)
	if err := srv.ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
