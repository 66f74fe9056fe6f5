package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/playmatatu/royale/internal/game"
	"github.com/playmatatu/royale/internal/models"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Store archives finished matches and payout results in Postgres.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	if db == nil {
		return nil
	}
	return &Store{db: db}
}

// RecordMatch stores a finished session. Re-recording the same session is a no-op.
func (s *Store) RecordMatch(ctx context.Context, snap game.SessionSnapshot) error {
	m := matchFromSnapshot(snap)
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO matches (id, players, eliminated, player_count, winner, started_at, ended_at, duration_ms)
		VALUES (:id, :players, :eliminated, :player_count, :winner, :started_at, :ended_at, :duration_ms)
		ON CONFLICT (id) DO NOTHING
	`, m)
	if err != nil {
		return fmt.Errorf("insert match %s: %w", snap.ID, err)
	}
	return nil
}

// RecordPayout stores the outcome of one payout request.
func (s *Store) RecordPayout(ctx context.Context, o game.PayoutOutcome) error {
	p := payoutFromOutcome(o)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payouts (game_id, winner, amount, signature, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.GameID, p.Winner, p.Amount, p.Signature, p.Status, p.Error, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert payout for %s: %w", o.GameID, err)
	}
	return nil
}

// RecentMatches returns the most recently finished matches, newest first.
func (s *Store) RecentMatches(ctx context.Context, limit int) ([]models.Match, error) {
	limit = clampLimit(limit)
	var out []models.Match
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, players, eliminated, player_count, winner, started_at, ended_at, duration_ms, created_at
		FROM matches
		ORDER BY ended_at DESC
		LIMIT $1
	`, limit)
	return out, err
}

// PayoutsForGame returns every payout attempt recorded for one match.
func (s *Store) PayoutsForGame(ctx context.Context, gameID string) ([]models.Payout, error) {
	var out []models.Payout
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, game_id, winner, amount, signature, status, error, created_at
		FROM payouts
		WHERE game_id = $1
		ORDER BY created_at
	`, gameID)
	return out, err
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func matchFromSnapshot(snap game.SessionSnapshot) models.Match {
	end := snap.StartTime
	if snap.EndTime != nil {
		end = *snap.EndTime
	}
	dur := end.Sub(snap.StartTime)
	if dur < 0 {
		dur = 0
	}
	eliminated := snap.Eliminated
	if eliminated == nil {
		eliminated = []string{}
	}
	return models.Match{
		ID:          snap.ID,
		Players:     pq.StringArray(snap.Players),
		Eliminated:  pq.StringArray(eliminated),
		PlayerCount: len(snap.Players),
		Winner:      sql.NullString{String: snap.Winner, Valid: snap.Winner != ""},
		StartedAt:   snap.StartTime,
		EndedAt:     end,
		DurationMs:  dur.Milliseconds(),
	}
}

func payoutFromOutcome(o game.PayoutOutcome) models.Payout {
	p := models.Payout{
		GameID:    o.GameID,
		Winner:    o.Winner,
		Status:    models.PayoutStatusSuccess,
		CreatedAt: o.At,
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if o.Error != "" {
		p.Status = models.PayoutStatusFailed
		p.Error = sql.NullString{String: o.Error, Valid: true}
		return p
	}
	p.Amount = sql.NullFloat64{Float64: o.Amount, Valid: true}
	p.Signature = sql.NullString{String: o.Signature, Valid: o.Signature != ""}
	return p
}
