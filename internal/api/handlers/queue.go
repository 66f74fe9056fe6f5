package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JoinQueue adds a wallet to the match queue
func JoinQueue(m Matchmaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Wallet string `json:"wallet"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Wallet address required"})
			return
		}

		size, err := m.JoinQueue(c.Request.Context(), req.Wallet)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true, "queueSize": size})
	}
}

// GetQueueStatus returns the wallets waiting for the next match
func GetQueueStatus(m Matchmaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		players := m.QueueStatus()
		c.JSON(http.StatusOK, gin.H{"queueSize": len(players), "players": players})
	}
}

// ListGames returns a summary of every registered session
func ListGames(m Matchmaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, m.Sessions())
	}
}
