package game

import (
	"sync"
	"time"
)

// EliminationOutcome classifies an elimination report
type EliminationOutcome int

const (
	// OutcomeEliminated means the report changed session state.
	OutcomeEliminated EliminationOutcome = iota
	OutcomeAlreadyEliminated
	OutcomeNotMember
	OutcomeSessionFinished
)

func (o EliminationOutcome) String() string {
	switch o {
	case OutcomeEliminated:
		return "eliminated"
	case OutcomeAlreadyEliminated:
		return "already_eliminated"
	case OutcomeNotMember:
		return "not_member"
	case OutcomeSessionFinished:
		return "session_finished"
	}
	return "unknown"
}

// Elimination describes the effect of one elimination report.
type Elimination struct {
	SessionID string
	Player    string
	Outcome   EliminationOutcome
	Remaining int

	// Set when this report finished the session.
	Finished bool
	Winner   string
	EndTime  time.Time
	Duration time.Duration
}

// Session is one running match. The roster is fixed at creation; every other
// field is guarded by mu.
type Session struct {
	id        string
	players   []string
	members   map[string]struct{}
	startTime time.Time

	mu              sync.Mutex
	eliminated      map[string]struct{}
	eliminatedOrder []string
	status          SessionStatus
	winner          string
	endTime         time.Time
	payoutRequested bool
}

// SessionSnapshot is a consistent copy of a session's state
type SessionSnapshot struct {
	ID              string        `json:"id"`
	Players         []string      `json:"players"`
	Eliminated      []string      `json:"eliminated"`
	Remaining       int           `json:"remainingPlayers"`
	Status          SessionStatus `json:"status"`
	Winner          string        `json:"winner,omitempty"`
	StartTime       time.Time     `json:"startTime"`
	EndTime         *time.Time    `json:"endTime,omitempty"`
	PayoutRequested bool          `json:"payoutRequested"`
}

// SessionSummary is the public listing shape; startTime is epoch milliseconds.
type SessionSummary struct {
	ID          string        `json:"id"`
	PlayerCount int           `json:"playerCount"`
	Status      SessionStatus `json:"status"`
	StartTime   int64         `json:"startTime"`
}

func newSession(id string, players []string, now time.Time) *Session {
	roster := make([]string, len(players))
	copy(roster, players)
	members := make(map[string]struct{}, len(roster))
	for _, p := range roster {
		members[p] = struct{}{}
	}
	return &Session{
		id:         id,
		players:    roster,
		members:    members,
		startTime:  now,
		eliminated: make(map[string]struct{}),
		status:     StatusActive,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) StartTime() time.Time { return s.startTime }

// Players returns a copy of the roster
func (s *Session) Players() []string {
	out := make([]string, len(s.players))
	copy(out, s.players)
	return out
}

func (s *Session) HasPlayer(player string) bool {
	_, ok := s.members[player]
	return ok
}

func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) Winner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.winner
}

func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingLocked()
}

func (s *Session) IsEliminated(player string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.eliminated[player]
	return ok
}

func (s *Session) remainingLocked() int {
	return len(s.players) - len(s.eliminated)
}

// Eliminate records that player is out. Reports for unknown players, repeated
// reports and reports against a finished session leave the session untouched.
//
// onChange runs with the session lock held, only when state changed, so
// callbacks for one session observe transitions in order.
func (s *Session) Eliminate(player string, now time.Time, onChange func(Elimination)) Elimination {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := Elimination{SessionID: s.id, Player: player}

	switch {
	case s.status == StatusFinished:
		res.Outcome = OutcomeSessionFinished
	case !s.HasPlayer(player):
		res.Outcome = OutcomeNotMember
	default:
		if _, done := s.eliminated[player]; done {
			res.Outcome = OutcomeAlreadyEliminated
		}
	}
	if res.Outcome != OutcomeEliminated {
		res.Remaining = s.remainingLocked()
		return res
	}

	s.eliminated[player] = struct{}{}
	s.eliminatedOrder = append(s.eliminatedOrder, player)
	res.Remaining = s.remainingLocked()

	if res.Remaining <= 1 {
		if res.Remaining == 1 {
			s.winner = s.survivorLocked()
		}
		s.status = StatusFinished
		s.endTime = now
		res.Finished = true
		res.Winner = s.winner
		res.EndTime = now
		res.Duration = now.Sub(s.startTime)
		if res.Duration < 0 {
			res.Duration = 0
		}
	}

	if onChange != nil {
		onChange(res)
	}
	return res
}

func (s *Session) survivorLocked() string {
	for _, p := range s.players {
		if _, out := s.eliminated[p]; !out {
			return p
		}
	}
	return ""
}

// claimPayout marks the session's single payout as issued. It reports false
// if a payout was already requested.
func (s *Session) claimPayout() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.payoutRequested {
		return false
	}
	s.payoutRequested = true
	return true
}

func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	elim := make([]string, len(s.eliminatedOrder))
	copy(elim, s.eliminatedOrder)
	snap := SessionSnapshot{
		ID:              s.id,
		Players:         s.Players(),
		Eliminated:      elim,
		Remaining:       s.remainingLocked(),
		Status:          s.status,
		Winner:          s.winner,
		StartTime:       s.startTime,
		PayoutRequested: s.payoutRequested,
	}
	if !s.endTime.IsZero() {
		end := s.endTime
		snap.EndTime = &end
	}
	return snap
}

func (s *Session) Summary() SessionSummary {
	return SessionSummary{
		ID:          s.id,
		PlayerCount: len(s.players),
		Status:      s.Status(),
		StartTime:   s.startTime.UnixMilli(),
	}
}
