package handlers

import (
	"github.com/decred/slog"
	"github.com/gin-gonic/gin"

	"betinho-miniapp/internal/middleware"
	"betinho-miniapp/internal/services"
)

type Deps struct {
	Session  *services.SessionManager
	Games    *services.GameDirectory
	Faucet   *services.FaucetClient
	Redis    *services.RedisService
	JWT      *services.JWTService
	Hub      *WebSocketHub
	ChatPeer string
	Log      slog.Logger
}

func cors(c *gin.Context) {
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if c.Request.Method == "OPTIONS" {
		c.AbortWithStatus(204)
		return
	}

	c.Next()
}

// NewRouter wires the login, home and game page routes.
func NewRouter(d Deps) *gin.Engine {
	authHandler := NewAuthHandler(d.Session, d.JWT, d.Redis, d.Log)
	homeHandler := NewHomeHandler(d.Session, d.Games, d.Faucet)
	gameHandler := NewGamePageHandler(d.Session, d.Games, d.Faucet)
	chatHandler := NewChatHandler(d.Session, d.ChatPeer, d.Log)
	wsHandler := NewWebSocketHandler(d.Session, d.Hub, d.ChatPeer, d.Log)

	router := gin.New()
	router.Use(gin.Recovery(), cors)

	ready := middleware.RequireSession(d.Session)

	router.GET("/", ready, authHandler.Status)
	router.POST("/auth/login", ready, authHandler.Login)

	protected := []gin.HandlerFunc{
		ready,
		middleware.AuthMiddleware(d.JWT, d.Redis),
		middleware.RequireConnected(d.Session),
		middleware.RateLimitMiddleware(d.Redis),
	}

	api := router.Group("/api", ready, middleware.AuthMiddleware(d.JWT, d.Redis))
	{
		api.POST("/logout", authHandler.Logout)
	}

	home := router.Group("/home", protected...)
	home.Use(middleware.InitDirectory(d.Games))
	{
		home.GET("", homeHandler.GetHome)
		home.POST("/games", homeHandler.CreateGame)
		home.GET("/games/latest", homeHandler.LatestGames)
		home.POST("/games/:id/star", homeHandler.ToggleStar)
		home.POST("/faucet", homeHandler.RequestFaucet)
	}

	game := router.Group("/game-page/:contractAddress", protected...)
	game.Use(middleware.InitDirectory(d.Games))
	{
		game.GET("", gameHandler.GetGame)
		game.POST("/pick", gameHandler.PickOption)
		game.POST("/resolve", gameHandler.ResolveGame)
		game.POST("/claim", gameHandler.ClaimReward)
		game.POST("/subscribe", gameHandler.Subscribe)

		game.GET("/chat", chatHandler.History)
		game.POST("/chat", chatHandler.Send)
		game.GET("/chat/ws", wsHandler.HandleWebSocket)
	}

	return router
}
