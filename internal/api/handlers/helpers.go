package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/royale/internal/game"
)

// respondError maps a match error onto a status code and a gin.H body.
func respondError(c *gin.Context, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, game.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, game.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrWinnerMismatch), errors.Is(err, game.ErrPayoutAlreadyRequested):
		status = http.StatusConflict
	case errors.Is(err, game.ErrPayoutUnavailable):
		status = http.StatusServiceUnavailable
	}

	msg := game.PublicMessage(err)
	if msg == "" {
		log.Printf("[API] Internal error on %s: %v", c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": msg})
}

// queryLimit reads ?limit=N, falling back to def for missing or invalid values.
func queryLimit(c *gin.Context, def int) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", ""))
	if err != nil || limit <= 0 {
		return def
	}
	return limit
}
