package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

const version = "1.0.0"

// HealthCheck returns server health status
func HealthCheck(m Matchmaker, connections func() int) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{
			"status":      "ok",
			"service":     "royale-server",
			"version":     version,
			"uptime":      time.Since(startTime).String(),
			"queueSize":   m.QueueSize(),
			"activeGames": m.ActiveGames(),
		}
		if connections != nil {
			body["connections"] = connections()
		}
		c.JSON(http.StatusOK, body)
	}
}
