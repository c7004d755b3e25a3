package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adi-253/Talkie/chatcore/internal/clock"
	"github.com/adi-253/Talkie/chatcore/internal/config"
	"github.com/adi-253/Talkie/chatcore/internal/handlers"
	"github.com/adi-253/Talkie/chatcore/internal/logging"
	"github.com/adi-253/Talkie/chatcore/internal/metrics"
	"github.com/adi-253/Talkie/chatcore/internal/services"
	"github.com/adi-253/Talkie/chatcore/internal/sqlite"
	"github.com/adi-253/Talkie/chatcore/internal/supabase"
	"github.com/adi-253/Talkie/chatcore/internal/websocket"
)

func main() {
	// Load configuration from environment
	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stderr})
	log := logging.Component("server")

	m := metrics.New(prometheus.DefaultRegisterer)

	// Websocket hub pushes session events to connected clients
	hub := websocket.NewHub()
	go hub.Run()

	var notifier services.Notifier = hub

	// Pick the repository conversations are loaded from and saved to
	var repo services.Repository
	switch cfg.StorageBackend {
	case "supabase":
		db := supabase.NewClient(cfg)
		repo = db
		notifier = services.Notifiers{hub, db}
	default:
		store, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.SQLitePath).Msg("failed to open sqlite store")
		}
		defer store.Close()
		repo = store
	}
	log.Info().Str("backend", cfg.StorageBackend).Msg("storage ready")

	if cfg.SeedFile != "" {
		if err := seed(repo, cfg.SeedFile); err != nil {
			log.Fatal().Err(err).Str("file", cfg.SeedFile).Msg("failed to seed conversations")
		}
	}

	// Initialize services
	sessionService := services.NewSessionService(repo, services.OptionsFromConfig(cfg, m), notifier)
	cleanupService := services.NewCleanupService(sessionService, clock.Real(), cfg.CleanupInterval, cfg.SessionIdleTimeout)

	// Start background cleanup worker
	go cleanupService.Start()

	// Initialize handlers
	sessionHandler := handlers.NewSessionHandler(sessionService)
	// Attachments are base64-inflated in memory; leave headroom for a few of them.
	messageHandler := handlers.NewMessageHandler(sessionService, 4*cfg.MaxAttachmentSize)
	wsHandler := websocket.NewHandler(hub, sessionService)

	// Set up router with middleware
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(handlers.RequestLogger)
	r.Use(middleware.Recoverer)

	log.Info().Strs("origins", cfg.CORSOrigins).Msg("CORS allowed origins")

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check and metrics endpoints
	r.Get("/health", handlers.HealthCheck(sessionService))
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		handlers.Routes(r, sessionHandler, messageHandler)
	})

	// WebSocket endpoint
	r.Get("/ws/sessions/{sid}", wsHandler.ServeWS)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Talkie thread engine starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	cleanupService.Stop()
	if err := sessionService.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("failed to save sessions")
	}
	hub.Stop()
}

// seed fills an empty repository from a JSON file of conversations.
func seed(repo services.Repository, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := services.Seed(ctx, repo, f)
	if err != nil {
		return err
	}
	if n > 0 {
		log := logging.Component("server")
		log.Info().Int("conversations", n).Msg("repository seeded")
	}
	return nil
}
