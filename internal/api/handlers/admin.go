package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/royale/internal/admin"
	"github.com/playmatatu/royale/internal/config"
	"github.com/playmatatu/royale/internal/middleware"
	"github.com/playmatatu/royale/internal/models"
)

// AdminLogin exchanges an operator username and token for a session JWT
func AdminLogin(dir AdminDirectory, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if dir == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Operator access not configured"})
			return
		}

		var req struct {
			Username string `json:"username" binding:"required"`
			Token    string `json:"token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		username := strings.TrimSpace(req.Username)
		ctx := c.Request.Context()

		acct, err := dir.Authenticate(ctx, username, strings.TrimSpace(req.Token))
		if err != nil {
			log.Printf("[ADMIN] Login failed for %s: %v", username, err)
			dir.Audit(ctx, username, c.ClientIP(), c.FullPath(), "login", map[string]interface{}{"username": username}, false)
			if errors.Is(err, admin.ErrAccountNotFound) || errors.Is(err, admin.ErrInvalidToken) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
			}
			return
		}

		ttl := time.Duration(cfg.AdminSessionMinutes) * time.Minute
		token, expires, err := admin.IssueToken(cfg.JWTSecret, acct.Username, acct.Roles, ttl, time.Now())
		if err != nil {
			log.Printf("[ADMIN] Failed to issue token for %s: %v", username, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
			return
		}

		dir.Audit(ctx, username, c.ClientIP(), c.FullPath(), "login", map[string]interface{}{"username": username}, true)
		c.JSON(http.StatusOK, gin.H{"token": token, "expiresAt": expires.Unix()})
	}
}

// AdminGetGame returns the full snapshot of a registered session, plus any
// archived payout attempts for it.
func AdminGetGame(m Matchmaker, a Archive) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		snap, ok := m.Session(id)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
			return
		}

		body := gin.H{"game": snap}
		if a != nil {
			payouts, err := a.PayoutsForGame(c.Request.Context(), id)
			if err != nil {
				log.Printf("[ADMIN] Failed to load payouts for %s: %v", id, err)
			} else {
				body["payouts"] = payoutViews(payouts)
			}
		}
		c.JSON(http.StatusOK, body)
	}
}

// AdminRequestPayout lets an operator request the payout for a session's winner
func AdminRequestPayout(m Matchmaker, dir AdminDirectory) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Winner string `json:"winner" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Winner required"})
			return
		}
		id := c.Param("id")
		operator := c.GetString(middleware.AdminUserKey)
		err := m.DeclareWinner(c.Request.Context(), id, req.Winner)

		if dir != nil {
			details := map[string]interface{}{"game_id": id, "winner": req.Winner}
			if err != nil {
				details["error"] = err.Error()
			}
			dir.Audit(c.Request.Context(), operator, c.ClientIP(), c.FullPath(), "request_payout", details, err == nil)
		}

		if err != nil {
			respondError(c, err)
			return
		}
		log.Printf("[ADMIN] %s requested payout for game %s to %s", operator, id, req.Winner)
		c.JSON(http.StatusAccepted, gin.H{"ok": true, "gameId": id, "winner": req.Winner})
	}
}

const maxAuditPage = 200

// AdminGetAuditLog pages through recorded operator actions, newest first
func AdminGetAuditLog(dir AdminDirectory) gin.HandlerFunc {
	return func(c *gin.Context) {
		if dir == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Operator access not configured"})
			return
		}

		limit := queryLimit(c, 25)
		if limit > maxAuditPage {
			limit = maxAuditPage
		}
		offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if err != nil || offset < 0 {
			offset = 0
		}

		logs, err := dir.AuditLog(c.Request.Context(), limit, offset)
		if err != nil {
			log.Printf("[ADMIN] Failed to load audit log: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load audit log"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": auditViews(logs), "limit": limit, "offset": offset})
	}
}

type auditView struct {
	ID        int             `json:"id"`
	Username  string          `json:"admin_username"`
	IP        string          `json:"ip"`
	Route     string          `json:"route"`
	Action    string          `json:"action"`
	Details   json.RawMessage `json:"details,omitempty"`
	Success   bool            `json:"success"`
	CreatedAt time.Time       `json:"created_at"`
}

func auditViews(entries []models.AdminAudit) []auditView {
	out := make([]auditView, 0, len(entries))
	for _, e := range entries {
		v := auditView{
			ID:        e.ID,
			Username:  e.AdminUsername,
			IP:        e.IP,
			Route:     e.Route,
			Action:    e.Action,
			Success:   e.Success,
			CreatedAt: e.CreatedAt,
		}
		if json.Valid(e.Details) {
			v.Details = json.RawMessage(e.Details)
		}
		out = append(out, v)
	}
	return out
}

type payoutView struct {
	Winner    string  `json:"winner"`
	Status    string  `json:"status"`
	Amount    float64 `json:"amount,omitempty"`
	Signature string  `json:"signature,omitempty"`
	Error     string  `json:"error,omitempty"`
	CreatedAt int64   `json:"createdAt"`
}

func payoutViews(ps []models.Payout) []payoutView {
	out := make([]payoutView, 0, len(ps))
	for _, p := range ps {
		out = append(out, payoutView{
			Winner:    p.Winner,
			Status:    p.Status,
			Amount:    p.Amount.Float64,
			Signature: p.Signature.String,
			Error:     p.Error.String,
			CreatedAt: p.CreatedAt.UnixMilli(),
		})
	}
	return out
}
