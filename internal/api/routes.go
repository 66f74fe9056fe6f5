package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/royale/internal/api/handlers"
	"github.com/playmatatu/royale/internal/config"
	"github.com/playmatatu/royale/internal/middleware"
	"github.com/playmatatu/royale/internal/ws"
)

// Deps carries everything the routes need. Wallet, Archive and Admins are
// nil when the corresponding backend is not configured.
type Deps struct {
	Config     *config.Config
	Matches    handlers.Matchmaker
	Wallet     handlers.Wallet
	Archive    handlers.Archive
	Admins     handlers.AdminDirectory
	Hub        *ws.Hub
	Dispatcher *ws.Dispatcher
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, d Deps) {
	cfg := d.Config
	router.Use(middleware.CORSMiddleware(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Next()
		})
		log.Println("[DEV MODE] no-cache headers enabled for all routes")
	}

	var connections func() int
	if d.Hub != nil {
		connections = d.Hub.Count
		router.GET("/ws", middleware.WebSocketCORSCheck(cfg), ws.HandleWebSocket(d.Hub, d.Dispatcher))
	}

	// Public routes live at the root and under /api/v1.
	public := func(g gin.IRoutes) {
		g.POST("/joinQueue", handlers.JoinQueue(d.Matches))
		g.GET("/queue", handlers.GetQueueStatus(d.Matches))
		g.GET("/games", handlers.ListGames(d.Matches))
		g.GET("/games/history", handlers.GetGameHistory(d.Archive))
		g.GET("/health", handlers.HealthCheck(d.Matches, connections))
		g.GET("/wallet/balance", handlers.GetWalletBalance(d.Wallet))
		g.GET("/payout/info", handlers.GetPayoutInfo(cfg, d.Matches, d.Wallet))
	}
	public(router)

	v1 := router.Group("/api/v1")
	public(v1)

	adminGroup := v1.Group("/admin")
	{
		adminGroup.POST("/login", handlers.AdminLogin(d.Admins, cfg))

		guarded := adminGroup.Group("", middleware.AdminAuth(cfg))
		guarded.GET("/games/:id", handlers.AdminGetGame(d.Matches, d.Archive))
		guarded.POST("/games/:id/payout", handlers.AdminRequestPayout(d.Matches, d.Admins))
		guarded.GET("/audit", handlers.AdminGetAuditLog(d.Admins))
	}
}
