package handlers

import (
	"context"

	"github.com/playmatatu/royale/internal/game"
	"github.com/playmatatu/royale/internal/models"
)

// Matchmaker is the match coordination surface exposed over HTTP.
type Matchmaker interface {
	JoinQueue(ctx context.Context, wallet string) (int, error)
	QueueStatus() []string
	QueueSize() int
	ActiveGames() int
	Sessions() []game.SessionSummary
	Session(id string) (game.SessionSnapshot, bool)
	DeclareWinner(ctx context.Context, sessionID, winner string) error
	Quota() int
}

// Wallet reports on the game wallet that funds payouts.
type Wallet interface {
	GetBalance(ctx context.Context) (float64, error)
	Amount() float64
}

// Archive lists finished matches.
type Archive interface {
	RecentMatches(ctx context.Context, limit int) ([]models.Match, error)
	PayoutsForGame(ctx context.Context, gameID string) ([]models.Payout, error)
}

// AdminDirectory authenticates operators and records their actions.
type AdminDirectory interface {
	Authenticate(ctx context.Context, username, token string) (*models.AdminAccount, error)
	Audit(ctx context.Context, username, ip, route, action string, details map[string]interface{}, success bool)
	AuditLog(ctx context.Context, limit, offset int) ([]models.AdminAudit, error)
}
