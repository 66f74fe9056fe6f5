package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/royale/internal/config"
)

// GetWalletBalance returns the game wallet balance
func GetWalletBalance(w Wallet) gin.HandlerFunc {
	return func(c *gin.Context) {
		if w == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Winner payout system not available"})
			return
		}

		balance, err := w.GetBalance(c.Request.Context())
		if err != nil {
			log.Printf("[PAYOUT] Balance lookup failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"balance": balance})
	}
}

// GetPayoutInfo describes the pot and entry fee of a match
func GetPayoutInfo(cfg *config.Config, m Matchmaker, w Wallet) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "disabled"
		totalPot := cfg.PayoutAmount
		if w != nil {
			status = "enabled"
			totalPot = w.Amount()
		}
		c.JSON(http.StatusOK, gin.H{
			"totalPot":       totalPot,
			"entryFee":       cfg.EntryFee,
			"playersPerGame": m.Quota(),
			"payoutSystem":   status,
		})
	}
}
