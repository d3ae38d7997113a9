package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"babelbridge/internal/config"
	"babelbridge/internal/handlers"
	"babelbridge/internal/jobs"
	"babelbridge/internal/logging"
	"babelbridge/internal/middleware"
	"babelbridge/internal/services"
	"babelbridge/internal/store"
	"babelbridge/internal/translation"
	"babelbridge/pkg/auth"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting BabelBridge Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, Environment: %s)", cfg.Port, cfg.Environment)

	if cfg.JWTSecret == "" {
		log.Fatal("❌ JWT_SECRET environment variable is required")
	}

	tokenService, err := auth.NewTokenService(cfg.JWTSecret, cfg.SessionMaxAge)
	if err != nil {
		log.Fatalf("❌ Failed to create token service: %v", err)
	}

	// Session store, with optional Redis-backed snapshots for restarts
	sessionStore := store.New()
	var snapshotter *store.RedisSnapshotter
	if cfg.RedisURL != "" {
		snapshotter, err = store.NewRedisSnapshotter(cfg.RedisURL, cfg.SessionMaxAge)
		if err != nil {
			log.Printf("⚠️  Redis unavailable, continuing without session snapshots: %v", err)
		} else {
			sessionStore.SetSnapshotter(snapshotter)
			log.Println("✅ Redis session snapshots enabled")
		}
	}

	// Translation pipeline: cache -> phrase table -> provider -> offline dictionary
	provider := translation.NewProvider(cfg.TranslateURL, cfg.TranslateAPIKey, cfg.TranslateTimeout, cfg.TranslateRPS)
	resolver := translation.NewResolver(
		translation.NewCache(cfg.TranslationCacheSize),
		translation.DefaultTiers(provider)...,
	)

	connManager := services.NewConnectionManager()
	agentRegistry := services.NewAgentRegistry()

	// Background jobs
	scheduler, err := jobs.NewScheduler()
	if err != nil {
		log.Fatalf("❌ Failed to create job scheduler: %v", err)
	}
	cleanup := jobs.NewSessionCleanup(sessionStore, cfg.SessionMaxAge)
	if err := scheduler.Every("session-cleanup", cfg.CleanupInterval, cleanup.Run); err != nil {
		log.Fatalf("❌ Failed to register cleanup job: %v", err)
	}
	scheduler.Start()

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "BabelBridge v1.0",
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("babelbridge")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	rateLimitConfig := middleware.LoadRateLimitConfig()
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, Auth=%d/min, WS=%d/min",
		rateLimitConfig.GlobalAPIMax,
		rateLimitConfig.AuthMax,
		rateLimitConfig.WebSocketMax,
	)

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: cfg.AllowedOrigins != "*",
	}))

	// Handlers
	authHandler := handlers.NewAuthHandler(cfg, tokenService)
	localesHandler := handlers.NewLocalesHandler(cfg.LocalesDir)
	healthHandler := handlers.NewHealthHandler(connManager, agentRegistry, sessionStore)
	wsHandler := handlers.NewWebSocketHandler(connManager, agentRegistry, sessionStore, resolver)

	// Routes
	app.Get("/health", healthHandler.Handle)
	app.Get("/auth", middleware.AuthRateLimiter(rateLimitConfig), authHandler.Handle)
	app.Get("/locales/:lang", middleware.GlobalAPIRateLimiter(rateLimitConfig), localesHandler.Handle)

	app.Use("/ws",
		middleware.WebSocketRateLimiter(rateLimitConfig),
		middleware.WebSocketUpgrade(),
		middleware.WebSocketAuth(cfg, tokenService),
	)
	app.Get("/ws", websocket.New(wsHandler.Handle))

	log.Printf("🌐 WebSocket endpoint: ws://localhost:%s/ws", cfg.Port)
	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)
	log.Printf("🕐 Background jobs: session cleanup (every %v, max age %v)", cfg.CleanupInterval, cfg.SessionMaxAge)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		if err := scheduler.Stop(); err != nil {
			log.Printf("⚠️ Error stopping scheduler: %v", err)
		}

		if snapshotter != nil {
			if err := snapshotter.Close(); err != nil {
				log.Printf("⚠️ Error closing Redis: %v", err)
			}
		}

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
