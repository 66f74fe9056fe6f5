package game

import "time"

// Outbound event types, carried in the "type" field of every event.
const (
	EventQueueUpdate         = "QUEUE_UPDATE"
	EventStartMatch          = "START_MATCH"
	EventPlayerEliminated    = "PLAYER_ELIMINATED"
	EventGameEnd             = "GAME_END"
	EventWinnerPayoutSuccess = "WINNER_PAYOUT_SUCCESS"
	EventWinnerPayoutFailed  = "WINNER_PAYOUT_FAILED"
	EventError               = "ERROR"
)

// Event is a typed, JSON-serializable notification delivered to observers.
type Event interface {
	Kind() string
}

// Publisher fans an event out to every observer.
type Publisher interface {
	Publish(ev Event)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ev Event)

func (f PublisherFunc) Publish(ev Event) { f(ev) }

// Publishers delivers each event to every publisher in order.
type Publishers []Publisher

func (ps Publishers) Publish(ev Event) {
	for _, p := range ps {
		if p != nil {
			p.Publish(ev)
		}
	}
}

type QueueUpdate struct {
	Type      string   `json:"type"`
	QueueSize int      `json:"queueSize"`
	Players   []string `json:"players"`
}

func (e QueueUpdate) Kind() string { return e.Type }

func NewQueueUpdate(players []string) QueueUpdate {
	return QueueUpdate{Type: EventQueueUpdate, QueueSize: len(players), Players: players}
}

type StartMatch struct {
	Type    string   `json:"type"`
	GameID  string   `json:"gameId"`
	Players []string `json:"players"`
}

func (e StartMatch) Kind() string { return e.Type }

func NewStartMatch(gameID string, players []string) StartMatch {
	return StartMatch{Type: EventStartMatch, GameID: gameID, Players: players}
}

type PlayerEliminated struct {
	Type             string `json:"type"`
	GameID           string `json:"gameId"`
	Player           string `json:"player"`
	RemainingPlayers int    `json:"remainingPlayers"`
}

func (e PlayerEliminated) Kind() string { return e.Type }

func NewPlayerEliminated(gameID, player string, remaining int) PlayerEliminated {
	return PlayerEliminated{Type: EventPlayerEliminated, GameID: gameID, Player: player, RemainingPlayers: remaining}
}

// GameEnd carries the match duration in milliseconds. Winner is omitted when
// the session finished without one.
type GameEnd struct {
	Type     string `json:"type"`
	GameID   string `json:"gameId"`
	Winner   string `json:"winner,omitempty"`
	Duration int64  `json:"duration"`
}

func (e GameEnd) Kind() string { return e.Type }

func NewGameEnd(gameID, winner string, d time.Duration) GameEnd {
	return GameEnd{Type: EventGameEnd, GameID: gameID, Winner: winner, Duration: d.Milliseconds()}
}

type WinnerPayoutSuccess struct {
	Type      string  `json:"type"`
	GameID    string  `json:"gameId"`
	Winner    string  `json:"winner"`
	Amount    float64 `json:"amount"`
	Signature string  `json:"signature"`
}

func (e WinnerPayoutSuccess) Kind() string { return e.Type }

func NewWinnerPayoutSuccess(gameID, winner string, amount float64, signature string) WinnerPayoutSuccess {
	return WinnerPayoutSuccess{Type: EventWinnerPayoutSuccess, GameID: gameID, Winner: winner, Amount: amount, Signature: signature}
}

type WinnerPayoutFailed struct {
	Type   string `json:"type"`
	GameID string `json:"gameId"`
	Winner string `json:"winner"`
	Error  string `json:"error"`
}

func (e WinnerPayoutFailed) Kind() string { return e.Type }

func NewWinnerPayoutFailed(gameID, winner, reason string) WinnerPayoutFailed {
	return WinnerPayoutFailed{Type: EventWinnerPayoutFailed, GameID: gameID, Winner: winner, Error: reason}
}

// ErrorMessage is sent only to the connection that caused it.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e ErrorMessage) Kind() string { return e.Type }

func NewErrorMessage(msg string) ErrorMessage {
	return ErrorMessage{Type: EventError, Message: msg}
}
