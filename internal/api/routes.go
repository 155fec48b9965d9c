package api

import (
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/skilledgame/backend/internal/api/handlers"
	"github.com/skilledgame/backend/internal/auth"
	"github.com/skilledgame/backend/internal/config"
	"github.com/skilledgame/backend/internal/lobby"
	"github.com/skilledgame/backend/internal/matchmaking"
	"github.com/skilledgame/backend/internal/notify"
	"github.com/skilledgame/backend/internal/realtime"
	"github.com/skilledgame/backend/internal/settlement"
)

// Deps bundles the wired services the routes close over.
type Deps struct {
	DB       *sqlx.DB
	Cfg      *config.Config
	Lobby    *lobby.Manager
	Queue    *matchmaking.Queue
	Engine   *settlement.Engine
	Hub      *realtime.Hub
	Notifier *notify.Notifier
}

// SetupRoutes configures all API routes.
func SetupRoutes(router *gin.Engine, d Deps) {
	// CORS middleware for the web client
	allowOrigin := d.Cfg.FrontendURL
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", allowOrigin)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)
		v1.GET("/config", handlers.ClientConfig(d.Cfg))
		v1.POST("/register", handlers.Register(d.DB, d.Cfg))
		v1.POST("/support/login", handlers.SupportLogin(d.DB, d.Cfg))

		authed := v1.Group("")
		authed.Use(auth.Middleware(d.Cfg))
		{
			// Private lobbies
			lobbyGroup := authed.Group("/lobby")
			{
				lobbyGroup.POST("", handlers.CreateLobby(d.Lobby))
				lobbyGroup.POST("/join", handlers.JoinLobby(d.Lobby))
				lobbyGroup.GET("/:id", handlers.GetLobby(d.Lobby))
				lobbyGroup.POST("/:id/ready", handlers.ToggleReady(d.Lobby))
				lobbyGroup.POST("/:id/start", handlers.StartGame(d.Lobby))
				lobbyGroup.DELETE("/:id", handlers.CancelLobby(d.Lobby))
			}

			// Matchmaking
			queueGroup := authed.Group("/queue")
			{
				queueGroup.POST("", handlers.Enqueue(d.Queue))
				queueGroup.DELETE("", handlers.Dequeue(d.Queue))
				queueGroup.GET("/estimate", handlers.QueueEstimate(d.Queue))
			}

			// Games
			gameGroup := authed.Group("/game")
			{
				gameGroup.GET("/:id", handlers.GetGame(d.Engine))
				gameGroup.POST("/:id/lock", handlers.LockWager(d.Engine))
				gameGroup.POST("/:id/settle", handlers.SettleGame(d.Engine))
				gameGroup.POST("/:id/move", handlers.PlayMove(d.DB, d.Engine, d.Notifier))
				gameGroup.GET("/:id/moves", handlers.GetMoves(d.DB, d.Engine))
			}

			// Player
			playerGroup := authed.Group("/player")
			{
				playerGroup.GET("/me", handlers.GetProfile(d.DB))
				playerGroup.POST("/deposit", handlers.Deposit(d.DB))
				playerGroup.POST("/withdraw", handlers.Withdraw(d.DB))
			}

			// Realtime
			authed.GET("/ws", handlers.HandleWebSocket(d.Hub))
		}
	}
}
