// AI Friend - chat assistant server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/aifriend/internal/api"
	"github.com/ashureev/aifriend/internal/chat"
	"github.com/ashureev/aifriend/internal/config"
	"github.com/ashureev/aifriend/internal/identity"
	"github.com/ashureev/aifriend/internal/middleware"
	"github.com/ashureev/aifriend/internal/probe"
	"github.com/ashureev/aifriend/internal/session"
	"github.com/ashureev/aifriend/internal/store"
	"github.com/ashureev/aifriend/internal/ui"
	"github.com/ashureev/aifriend/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())
	if cfg.RemoteEnabled() {
		slog.Info("Hugging Face API key configured, replies come from the model", "mode", cfg.Mode(), "model_url", cfg.HFModelURL)
	} else {
		slog.Info("No Hugging Face API key, using fallback replies", "mode", cfg.Mode())
	}

	// Initialize dependencies.
	repo, err := store.Open(cfg.History)
	if err != nil {
		slog.Error("Failed to initialize history store", "backend", cfg.History.Backend, "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Warn("History store health check failed", "backend", cfg.History.Backend, "error", err)
	} else {
		slog.Info("History store ready", "backend", cfg.History.Backend)
	}

	responder := chat.NewResponderFromConfig(cfg, logger)
	sessions := session.NewManager(cfg.Session.BufferSize)
	limiter := api.NewRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst)

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, responder)
	chatHandler := api.NewChatHandler(baseHandler, limiter, cfg)
	healthHandler := api.NewHealthHandler(repo, cfg)
	wsHandler := ui.NewChatHandler(responder, sessions, cfg.CORSOrigins, cfg.IsDevelopment(), cfg.Mode())
	wsHandler.SetLimiter(limiter)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(middleware.RecoverJSON)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.Route("/api", api.Routes(chatHandler, healthHandler))

	// Browser routes carry the anonymous session cookie.
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(cfg.IsDevelopment()))
		r.Get("/ws/chat", wsHandler.ServeHTTP)
		r.Handle("/*", web.SPAHandler())
	})

	// WebSocket chats are long-lived, so there is no server-wide write timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session.StartSweeper(ctx, sessions, cfg.Session.TTL, session.DefaultSweepInterval)
	go limiter.Run(ctx)

	var probeServer *probe.Server
	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			slog.Error("Failed to listen for gRPC health probe", "port", cfg.GRPCPort, "error", err)
			os.Exit(1)
		}
		probeServer = probe.New(cfg.RemoteEnabled())
		go func() {
			if err := probeServer.Serve(lis); err != nil {
				slog.Error("gRPC health probe failed", "error", err)
			}
		}()
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if probeServer != nil {
		probeServer.Stop()
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
