package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/playmatatu/royale/internal/payment"
)

// Payer transfers the pot to a winner. Implementations may block; the manager
// never calls them while holding queue or session locks.
type Payer interface {
	RequestPayout(ctx context.Context, gameID, winner string) (*payment.Receipt, error)
}

// JoinGuard can veto a join attempt before it reaches the queue.
type JoinGuard interface {
	AllowJoin(ctx context.Context, wallet string) (bool, error)
}

// PayoutOutcome is the archived result of one payout request
type PayoutOutcome struct {
	GameID    string
	Winner    string
	Amount    float64
	Signature string
	Error     string
	At        time.Time
}

// Recorder archives finished matches and payout outcomes.
type Recorder interface {
	RecordMatch(ctx context.Context, snap SessionSnapshot) error
	RecordPayout(ctx context.Context, outcome PayoutOutcome) error
}

type Options struct {
	Quota                   int
	Retention               time.Duration
	StrictWinnerDeclaration bool
	PayoutTimeout           time.Duration

	Publisher Publisher
	Payer     Payer
	Recorder  Recorder
	Guard     JoinGuard

	// Now defaults to time.Now.
	Now func() time.Time
}

// Manager coordinates the queue, the session registry and payouts.
type Manager struct {
	queue    *Queue
	sessions *Registry
	opts     Options

	// joinMu serializes Join, DrainIfFull and session creation so a quota is
	// crossed exactly once no matter which ingress triggered it.
	joinMu sync.Mutex

	// closeMu guards closed and every inflight.Add, so no background work
	// starts once Close has begun waiting.
	closeMu  sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// NewManager creates a match manager
func NewManager(opts Options) *Manager {
	if opts.Quota < 2 {
		opts.Quota = 2
	}
	if opts.PayoutTimeout <= 0 {
		opts.PayoutTimeout = 60 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		queue:    NewQueue(),
		sessions: NewRegistry(),
		opts:     opts,
	}
}

func (m *Manager) Quota() int { return m.opts.Quota }

func (m *Manager) publish(ev Event) {
	if m.opts.Publisher != nil {
		m.opts.Publisher.Publish(ev)
	}
}

// JoinQueue adds a wallet to the queue and starts a match when the quota is
// reached. It returns the queue size after the join. Wallets are compared
// exactly as given; blank input is rejected.
func (m *Manager) JoinQueue(ctx context.Context, wallet string) (int, error) {
	if strings.TrimSpace(wallet) == "" {
		return m.queue.Size(), ErrWalletRequired
	}

	// A queued wallet is a duplicate, not a throttled one.
	if m.queue.Contains(wallet) {
		return m.queue.Size(), ErrAlreadyQueued
	}

	if m.opts.Guard != nil {
		allowed, err := m.opts.Guard.AllowJoin(ctx, wallet)
		if err != nil {
			log.Printf("[QUEUE] Join guard error for %s (allowing): %v", wallet, err)
		} else if !allowed {
			return m.queue.Size(), ErrRateLimited
		}
	}

	m.joinMu.Lock()
	defer m.joinMu.Unlock()

	if err := m.queue.Join(wallet); err != nil {
		return m.queue.Size(), err
	}

	players := m.queue.Players()
	log.Printf("[QUEUE] Player %s joined queue. Queue size: %d", wallet, len(players))
	m.publish(NewQueueUpdate(players))

	if drained, ok := m.queue.DrainIfFull(m.opts.Quota); ok {
		m.startMatch(drained)
	}

	return m.queue.Size(), nil
}

// startMatch must be called with joinMu held.
func (m *Manager) startMatch(players []string) {
	s := m.sessions.Create(players, m.opts.Now())
	log.Printf("[MATCH] Match %s started with %d players", s.ID(), len(players))
	m.publish(NewStartMatch(s.ID(), s.Players()))
}

// ReportElimination marks player as out of the session and returns the number
// of players still standing. Invalid reports are logged and ignored.
func (m *Manager) ReportElimination(ctx context.Context, sessionID, player string) (int, error) {
	s, ok := m.sessions.Get(sessionID)
	if !ok {
		return 0, ErrSessionNotFound
	}

	res := s.Eliminate(player, m.opts.Now(), func(e Elimination) {
		log.Printf("[SESSION] Player %s eliminated in game %s (remaining=%d)", e.Player, e.SessionID, e.Remaining)
		m.publish(NewPlayerEliminated(e.SessionID, e.Player, e.Remaining))
		if e.Finished {
			if e.Winner == "" {
				log.Printf("[SESSION] ANOMALY: game %s finished with no remaining players; no winner declared", e.SessionID)
			} else {
				log.Printf("[SESSION] Game %s ended. Winner: %s", e.SessionID, e.Winner)
			}
			m.publish(NewGameEnd(e.SessionID, e.Winner, e.Duration))
		}
	})

	switch res.Outcome {
	case OutcomeNotMember:
		log.Printf("[SESSION] Ignoring elimination of %q: not a player in game %s", player, sessionID)
	case OutcomeAlreadyEliminated:
		log.Printf("[SESSION] Duplicate elimination of %s in game %s ignored", player, sessionID)
	case OutcomeSessionFinished:
		log.Printf("[SESSION] Elimination of %s ignored: game %s already finished", player, sessionID)
	}

	if res.Finished {
		m.finish(s, res)
	}
	return res.Remaining, nil
}

// finish runs the follow-up work of a session that just ended, outside the
// session lock.
func (m *Manager) finish(s *Session, res Elimination) {
	m.sessions.RemoveAfter(s.ID(), m.opts.Retention)

	if m.opts.Recorder != nil {
		snap := s.Snapshot()
		m.background(func(ctx context.Context) {
			if err := m.opts.Recorder.RecordMatch(ctx, snap); err != nil {
				log.Printf("[HISTORY] Failed to record game %s: %v", snap.ID, err)
			}
		})
	}

	if res.Winner == "" {
		return
	}
	if m.opts.Payer == nil {
		log.Printf("[PAYOUT] Winner payout system not available; skipping payout for game %s", s.ID())
		return
	}
	if !s.claimPayout() {
		log.Printf("[PAYOUT] Payout for game %s already requested; skipping automatic payout", s.ID())
		return
	}
	m.dispatchPayout(s.ID(), res.Winner)
}

// DeclareWinner requests a payout for a caller-asserted winner. The declared
// winner is compared with the session's own state; a mismatch is logged, and
// rejected only in strict mode.
func (m *Manager) DeclareWinner(ctx context.Context, sessionID, winner string) error {
	s, ok := m.sessions.Get(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	if strings.TrimSpace(winner) == "" {
		return ErrWinnerRequired
	}
	if m.opts.Payer == nil {
		log.Printf("[PAYOUT] Winner payout system not available; ignoring declared winner for game %s", sessionID)
		return ErrPayoutUnavailable
	}

	log.Printf("[SESSION] Winner declared for game %s: %s", sessionID, winner)

	if reason := m.declarationConflict(s, winner); reason != "" {
		if m.opts.StrictWinnerDeclaration {
			log.Printf("[SESSION] Rejecting declared winner %s for game %s: %s", winner, sessionID, reason)
			return fmt.Errorf("%w: %s", ErrWinnerMismatch, reason)
		}
		log.Printf("[SESSION] WARNING: declared winner %s for game %s accepted despite conflict: %s", winner, sessionID, reason)
	}

	if !s.claimPayout() {
		return ErrPayoutAlreadyRequested
	}
	if !m.dispatchPayout(sessionID, winner) {
		return ErrPayoutUnavailable
	}
	return nil
}

func (m *Manager) declarationConflict(s *Session, winner string) string {
	if !s.HasPlayer(winner) {
		return "not a player in this game"
	}
	if s.IsEliminated(winner) {
		return "player was eliminated"
	}
	snap := s.Snapshot()
	if snap.Status != StatusFinished {
		return fmt.Sprintf("game still active with %d players remaining", snap.Remaining)
	}
	if snap.Winner != winner {
		return fmt.Sprintf("game winner is %s", snap.Winner)
	}
	return ""
}

// dispatchPayout issues the payout on its own goroutine; the outcome is
// published whenever it arrives, even if the session was removed meanwhile.
// It reports false when the manager is shutting down.
func (m *Manager) dispatchPayout(gameID, winner string) bool {
	if !m.track() {
		log.Printf("[PAYOUT] Shutting down; payout for game %s to %s not issued", gameID, winner)
		return false
	}
	go func() {
		defer m.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), m.opts.PayoutTimeout)
		defer cancel()

		log.Printf("[PAYOUT] Processing payout to winner %s for game %s", winner, gameID)
		receipt, err := m.opts.Payer.RequestPayout(ctx, gameID, winner)
		if err == nil && receipt == nil {
			err = errors.New("payout returned no receipt")
		}

		outcome := PayoutOutcome{GameID: gameID, Winner: winner, At: m.opts.Now()}
		if err != nil {
			log.Printf("[PAYOUT] Winner payout failed for game %s: %v", gameID, err)
			outcome.Error = err.Error()
			m.publish(NewWinnerPayoutFailed(gameID, winner, err.Error()))
		} else {
			log.Printf("[PAYOUT] Winner payout successful for game %s: amount=%.2f signature=%s", gameID, receipt.Amount, receipt.Signature)
			outcome.Amount = receipt.Amount
			outcome.Signature = receipt.Signature
			m.publish(NewWinnerPayoutSuccess(gameID, winner, receipt.Amount, receipt.Signature))
		}

		if m.opts.Recorder != nil {
			rctx, rcancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer rcancel()
			if err := m.opts.Recorder.RecordPayout(rctx, outcome); err != nil {
				log.Printf("[HISTORY] Failed to record payout for game %s: %v", gameID, err)
			}
		}
	}()
	return true
}

// track registers one unit of background work unless the manager is closed.
func (m *Manager) track() bool {
	m.closeMu.Lock()
	defer m.closeMu.Unlock()
	if m.closed {
		return false
	}
	m.inflight.Add(1)
	return true
}

func (m *Manager) background(fn func(ctx context.Context)) {
	if !m.track() {
		return
	}
	go func() {
		defer m.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		fn(ctx)
	}()
}

// QueueStatus returns the queued wallets in join order
func (m *Manager) QueueStatus() []string {
	return m.queue.Players()
}

func (m *Manager) QueueSize() int {
	return m.queue.Size()
}

// ActiveGames counts the sessions still held by the registry.
func (m *Manager) ActiveGames() int {
	return m.sessions.Len()
}

func (m *Manager) Sessions() []SessionSummary {
	list := m.sessions.List()
	out := make([]SessionSummary, 0, len(list))
	for _, s := range list {
		out = append(out, s.Summary())
	}
	return out
}

func (m *Manager) Session(id string) (SessionSnapshot, bool) {
	s, ok := m.sessions.Get(id)
	if !ok {
		return SessionSnapshot{}, false
	}
	return s.Snapshot(), true
}

// Wait blocks until every in-flight payout and archive write has completed.
func (m *Manager) Wait() {
	m.inflight.Wait()
}

// Close stops pending session cleanups, refuses new background work and
// waits for in-flight payouts.
func (m *Manager) Close() {
	m.closeMu.Lock()
	m.closed = true
	m.closeMu.Unlock()

	m.sessions.Close()
	m.Wait()
}
