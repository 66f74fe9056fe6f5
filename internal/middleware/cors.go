package middleware

import (
	"log"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/playmatatu/royale/internal/config"
)

// allowedOrigins parses FRONTEND_URL, which may hold a comma-separated list.
func allowedOrigins(cfg *config.Config) []string {
	var out []string
	for _, o := range strings.Split(cfg.FrontendURL, ",") {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func isDevelopment(cfg *config.Config) bool {
	return cfg.Environment == "development"
}

// CORSMiddleware returns a CORS middleware configured for the environment
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	log.Printf("[CORS] Environment: %s, FrontendURL: %s", cfg.Environment, cfg.FrontendURL)

	corsConfig := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Length", "Content-Type", "Authorization",
			"Accept", "Cache-Control", "X-Requested-With",
		},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}

	origins := allowedOrigins(cfg)
	if isDevelopment(cfg) || len(origins) == 0 {
		// Game clients are served from arbitrary local ports during development.
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
		corsConfig.AllowCredentials = true
		log.Printf("[CORS] Production allowed origins: %v", origins)
	}

	return cors.New(corsConfig)
}

// WebSocketCORSCheck validates WebSocket upgrade origins
func WebSocketCORSCheck(cfg *config.Config) gin.HandlerFunc {
	origins := allowedOrigins(cfg)

	return func(c *gin.Context) {
		if !strings.Contains(strings.ToLower(c.GetHeader("Connection")), "upgrade") ||
			strings.ToLower(c.GetHeader("Upgrade")) != "websocket" {
			c.Next()
			return
		}

		origin := strings.TrimRight(c.GetHeader("Origin"), "/")
		if isDevelopment(cfg) || len(origins) == 0 {
			c.Next()
			return
		}
		if origin == "" {
			c.AbortWithStatusJSON(400, gin.H{"error": "WebSocket origin required"})
			return
		}

		for _, allowed := range origins {
			if origin == allowed {
				c.Next()
				return
			}
		}

		log.Printf("[CORS] Rejected WebSocket origin %s", origin)
		c.AbortWithStatusJSON(403, gin.H{"error": "WebSocket origin not allowed"})
	}
}
