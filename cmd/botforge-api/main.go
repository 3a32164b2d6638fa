package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"botforge/internal/api"
	"botforge/internal/auth"
	"botforge/internal/config"
	"botforge/internal/db"
	"botforge/internal/jobs"
	"botforge/internal/notify"
	"botforge/internal/publish"
	"botforge/internal/pubsub"
	"botforge/internal/service"
	"botforge/internal/storage"
	"botforge/internal/wizard"
	"botforge/internal/ws"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "goose-migrate" {
		if err := runGooseMigrations(); err != nil {
			log.Fatalf("Goose migration failed: %v", err)
		}
		os.Exit(0)
	}
	if len(os.Args) > 1 && os.Args[1] != "serve" {
		log.Fatalf("Unknown command: %s (use 'serve' or 'goose-migrate')", os.Args[1])
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	dbPool, err := db.NewPool(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	defer rdb.Close()

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	// Pub/sub bus
	bus := pubsub.New(rdb, logger)

	// Background provisioning jobs
	jobServer, jobClient := jobs.NewJobServer(cfg.Redis.Addr, dbPool, bus, logger)
	go func() {
		if err := jobServer.Start(); err != nil {
			logger.Fatal("Job server failed", zap.Error(err))
		}
	}()
	defer jobServer.Stop()

	// WebSocket hub
	hub := ws.NewHub(logger)
	go hub.Run()
	bus.SetWSHub(hub)

	// Object storage
	bucket, err := storage.NewLocalBucket(cfg.Storage.BaseDir, cfg.Storage.BaseURL)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}

	// Shared service state
	jwtCfg := auth.NewJWTConfig(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	center := notify.NewCenter()
	busy := service.NewBusyTracker()
	jobClientWrapper := service.NewAsynqJobClient(jobClient)

	deps := api.Dependencies{
		DB:        dbPool,
		Bus:       bus,
		Hub:       hub,
		Log:       logger,
		JWT:       jwtCfg,
		Notify:    center,
		Busy:      busy,
		Bucket:    bucket,
		Validator: publish.NewValidator(),
		Sessions:  wizard.NewSessions(),

		Auth:      service.NewSessionService(dbPool.Queries, jwtCfg, center, busy, logger),
		Posts:     service.NewPostStore(dbPool.Queries, center, busy, logger),
		Cases:     service.NewCaseStore(dbPool.Queries, center, busy, logger),
		Keys:      service.NewKeyStore(dbPool.Queries, center, busy, logger),
		Media:     service.NewMediaStore(bucket, center, busy, logger),
		Dashboard: service.NewDashboardService(dbPool.Queries, center, busy, logger),
		Agents: service.NewAgentService(
			dbPool.Queries, bucket, jobClientWrapper, bus,
			center, busy, logger, cfg.Provision.Timeout),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Timeout middleware - skip for WebSocket upgrades
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, req)
				return
			}
			middleware.Timeout(60 * time.Second)(next).ServeHTTP(w, req)
		})
	})

	r.Mount("/v1", api.Routes(deps))

	// Public media objects
	r.Get("/media/*", func(w http.ResponseWriter, req *http.Request) {
		http.StripPrefix("/media/",
			http.FileServer(http.Dir(cfg.Storage.BaseDir))).ServeHTTP(w, req)
	})

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	logger.Info("Starting server", zap.String("addr", cfg.Server.Addr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}
