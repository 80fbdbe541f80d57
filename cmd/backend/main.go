package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/samber/do/v2"

	audioimpl "github.com/minutelab/minute/external/audio"
	configloader "github.com/minutelab/minute/external/config"
	repositoryimpl "github.com/minutelab/minute/external/repository"
	summarizerimpl "github.com/minutelab/minute/external/summarizer"
	transcriberimpl "github.com/minutelab/minute/external/transcriber"
	webhookimpl "github.com/minutelab/minute/external/webhook"
	"github.com/minutelab/minute/internal/cache"
	"github.com/minutelab/minute/internal/config"
	"github.com/minutelab/minute/internal/gateway"
	"github.com/minutelab/minute/internal/hub"
)

const (
	serverShutdownTimeout = 10 * time.Second
	cacheSweepInterval    = time.Hour
)

func main() {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	runServer(cfg, injector)
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	audioimpl.RegisterDI(injector)
	transcriberimpl.RegisterDI(injector)
	summarizerimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	cache.RegisterDI(injector)
	gateway.RegisterDI(injector)
	hub.RegisterDI(injector)

	return injector
}

func runServer(cfg *config.Config, injector do.Injector) {
	h, err := do.Invoke[*hub.Hub](injector)
	if err != nil {
		slog.Error("failed to resolve connection hub", "error", err)
		os.Exit(1)
	}
	cm, err := do.Invoke[*cache.Manager](injector)
	if err != nil {
		slog.Error("failed to resolve cache manager", "error", err)
		os.Exit(1)
	}

	go h.Run()

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go runCacheSweeper(sweepCtx, cm)

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/ws", newTranscribeSocketHandler(h))

	server := &http.Server{Addr: cfg.ListenAddr, Handler: router}

	done := make(chan struct{})
	go func() {
		slog.Info("startup: listening", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
		}
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutting down")
	case <-done:
	}

	h.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown failed", "error", err)
	}
}

func newTranscribeSocketHandler(h *hub.Hub) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  16 * 1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("websocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
			return
		}
		if err := h.Register(conn); err != nil {
			slog.Warn("connection rejected", "error", err, "remote_addr", r.RemoteAddr)
		}
	}
}

func runCacheSweeper(ctx context.Context, cm *cache.Manager) {
	if err := cm.CleanupOldCache(); err != nil {
		slog.Warn("cache sweep failed", "error", err)
	}
	ticker := time.NewTicker(cacheSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := cm.CleanupOldCache(); err != nil {
				slog.Warn("cache sweep failed", "error", err)
			}
		}
	}
}
