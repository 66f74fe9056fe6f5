package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/royale/internal/models"
)

type matchView struct {
	ID          string   `json:"id"`
	Players     []string `json:"players"`
	PlayerCount int      `json:"playerCount"`
	Winner      string   `json:"winner,omitempty"`
	StartTime   int64    `json:"startTime"`
	EndTime     int64    `json:"endTime"`
	Duration    int64    `json:"duration"`
}

func newMatchView(m models.Match) matchView {
	return matchView{
		ID:          m.ID,
		Players:     m.Players,
		PlayerCount: m.PlayerCount,
		Winner:      m.Winner.String,
		StartTime:   m.StartedAt.UnixMilli(),
		EndTime:     m.EndedAt.UnixMilli(),
		Duration:    m.DurationMs,
	}
}

// GetGameHistory lists recently finished matches, newest first
func GetGameHistory(a Archive) gin.HandlerFunc {
	return func(c *gin.Context) {
		if a == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Match history not available"})
			return
		}

		matches, err := a.RecentMatches(c.Request.Context(), queryLimit(c, 20))
		if err != nil {
			log.Printf("[HISTORY] Failed to list matches: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch match history"})
			return
		}

		out := make([]matchView, 0, len(matches))
		for _, m := range matches {
			out = append(out, newMatchView(m))
		}
		c.JSON(http.StatusOK, out)
	}
}
