package models

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// Match is an archived, finished royale session
type Match struct {
	ID          string         `db:"id" json:"id"`
	Players     pq.StringArray `db:"players" json:"players"`
	Eliminated  pq.StringArray `db:"eliminated" json:"eliminated"`
	PlayerCount int            `db:"player_count" json:"playerCount"`
	Winner      sql.NullString `db:"winner" json:"-"`
	StartedAt   time.Time      `db:"started_at" json:"startedAt"`
	EndedAt     time.Time      `db:"ended_at" json:"endedAt"`
	DurationMs  int64          `db:"duration_ms" json:"duration"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
}

// Payout is one winner payout attempt and its result
type Payout struct {
	ID        int             `db:"id" json:"id"`
	GameID    string          `db:"game_id" json:"gameId"`
	Winner    string          `db:"winner" json:"winner"`
	Amount    sql.NullFloat64 `db:"amount" json:"-"`
	Signature sql.NullString  `db:"signature" json:"-"`
	Status    string          `db:"status" json:"status"`
	Error     sql.NullString  `db:"error" json:"-"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
}

// Payout statuses
const (
	PayoutStatusSuccess = "success"
	PayoutStatusFailed  = "failed"
)

// AdminAccount is an operator allowed to inspect sessions and override payouts
type AdminAccount struct {
	Username    string         `db:"username" json:"username"`
	DisplayName string         `db:"display_name" json:"display_name"`
	TokenHash   string         `db:"token_hash" json:"-"`
	Roles       pq.StringArray `db:"roles" json:"roles"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// AdminAudit is one recorded operator action
type AdminAudit struct {
	ID            int       `db:"id" json:"id"`
	AdminUsername string    `db:"admin_username" json:"admin_username"`
	IP            string    `db:"ip" json:"ip"`
	Route         string    `db:"route" json:"route"`
	Action        string    `db:"action" json:"action"`
	Details       []byte    `db:"details" json:"details"`
	Success       bool      `db:"success" json:"success"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
