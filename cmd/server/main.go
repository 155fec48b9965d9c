package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/skilledgame/backend/internal/api"
	"github.com/skilledgame/backend/internal/config"
	"github.com/skilledgame/backend/internal/database"
	"github.com/skilledgame/backend/internal/lobby"
	"github.com/skilledgame/backend/internal/matchmaking"
	"github.com/skilledgame/backend/internal/migrations"
	"github.com/skilledgame/backend/internal/notify"
	"github.com/skilledgame/backend/internal/realtime"
	"github.com/skilledgame/backend/internal/redis"
	"github.com/skilledgame/backend/internal/settlement"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations on start if requested
	if os.Getenv("MIGRATE_ON_START") == "true" {
		log.Println("Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Initialize Redis
	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	// Wire services: all balance mutation flows through the settlement
	// engine's ledger calls, lobbies and the matchmaker create games, the
	// hub relays Redis pushes to websocket clients.
	notifier := notify.New(rdb)
	engine := settlement.NewEngine(db, rdb, cfg, notifier)
	queue := matchmaking.NewQueue(db, rdb, cfg, notifier, engine)
	lobbyMgr := lobby.NewManager(db, cfg, notifier, engine)
	hub := realtime.NewHub(rdb, engine, queue)

	ctx := context.Background()

	// Background workers: FIFO pairing + stale sweep, disconnect forfeits,
	// waiting-game expiry.
	go queue.StartWorker(ctx)
	go engine.StartDisconnectWorker(ctx)
	go engine.StartExpiryWorker(ctx)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	api.SetupRoutes(router, api.Deps{
		DB:       db,
		Cfg:      cfg,
		Lobby:    lobbyMgr,
		Queue:    queue,
		Engine:   engine,
		Hub:      hub,
		Notifier: notifier,
	})

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting Skilled server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
