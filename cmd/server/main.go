package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	"github.com/playmatatu/royale/internal/admin"
	"github.com/playmatatu/royale/internal/api"
	"github.com/playmatatu/royale/internal/config"
	"github.com/playmatatu/royale/internal/database"
	"github.com/playmatatu/royale/internal/game"
	"github.com/playmatatu/royale/internal/history"
	"github.com/playmatatu/royale/internal/migrations"
	"github.com/playmatatu/royale/internal/payment"
	"github.com/playmatatu/royale/internal/redis"
	"github.com/playmatatu/royale/internal/ws"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	// Match history archive (optional)
	var db *sqlx.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if cfg.MigrateOnStart {
			log.Println("↗ Running DB migrations on startup...")
			if err := migrations.RunMigrations(cfg.DatabaseURL, "migrations"); err != nil {
				log.Fatalf("Failed to run migrations: %v", err)
			}
		}
	} else {
		log.Printf("[HISTORY] DATABASE_URL not set; match history and operator access disabled")
	}

	// Redis (optional): event mirror, join throttle, payout caches
	var rdb *goredis.Client
	if cfg.RedisURL != "" {
		var err error
		rdb, err = redis.Connect(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
	}

	// Payout service (optional). A misconfigured gateway disables payouts
	// instead of stopping the server.
	payouts, closePayouts, err := payment.Open(cfg, rdb)
	if err != nil {
		log.Printf("[PAYOUT] Failed to initialize payout system: %v", err)
		log.Printf("[PAYOUT] Winner payouts will be disabled")
	} else if payouts == nil {
		log.Printf("[PAYOUT] PAYOUT_DRIVER not set; winner payouts disabled")
	} else {
		log.Printf("[PAYOUT] Winner payout system initialized (driver=%s, amount=%.2f)", cfg.PayoutDriver, payouts.Amount())
	}

	hub := ws.NewHub()
	mirror := redis.NewEventMirror(rdb, cfg.EventsChannel)

	publishers := game.Publishers{hub}
	if mirror != nil {
		publishers = append(publishers, mirror)
	}

	opts := game.Options{
		Quota:                   cfg.MatchQuota,
		Retention:               time.Duration(cfg.SessionRetentionSeconds) * time.Second,
		StrictWinnerDeclaration: cfg.StrictWinnerDeclaration,
		PayoutTimeout:           time.Duration(cfg.PayoutTimeoutSeconds) * time.Second,
		Publisher:               publishers,
	}
	deps := api.Deps{Config: cfg, Hub: hub}

	// Interfaces only receive non-nil implementations.
	if payouts != nil {
		opts.Payer = payouts
		deps.Wallet = payouts
	}
	if store := history.NewStore(db); store != nil {
		opts.Recorder = store
		deps.Archive = store
	}
	if dir := admin.NewDirectory(db); dir != nil {
		deps.Admins = dir
	}
	if limiter := redis.NewJoinLimiter(rdb, time.Duration(cfg.JoinRateLimitSeconds)*time.Second); limiter != nil {
		opts.Guard = limiter
	}

	manager := game.NewManager(opts)
	deps.Matches = manager
	deps.Dispatcher = ws.NewDispatcher(manager)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	api.SetupRoutes(router, deps)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Battle Royale server running on port %s (quota=%d)", cfg.Port, manager.Quota())
		log.Printf("WebSocket server ready for connections at /ws")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}

	// Order matters: stop producers before closing the mirror.
	hub.Close()
	manager.Close()
	if mirror != nil {
		mirror.Close()
	}
	closePayouts()

	log.Println("Server stopped")
}
