package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/playmatatu/royale/internal/game"
)

// Inbound message types
const (
	MsgJoinQueue     = "JOIN_QUEUE"
	MsgGameAction    = "GAME_ACTION"
	MsgDeclareWinner = "DECLARE_WINNER"

	ActionEliminate = "ELIMINATE"
)

// ErrUnknownMessage is returned by Decode for shapes the server does not handle.
var ErrUnknownMessage = errors.New("unknown message")

// InboundMessage is the flat wire shape of every client message
type InboundMessage struct {
	Type   string `json:"type"`
	Wallet string `json:"wallet,omitempty"`
	GameID string `json:"gameId,omitempty"`
	Action string `json:"action,omitempty"`
	Player string `json:"player,omitempty"`
	Winner string `json:"winner,omitempty"`
}

// Command is a decoded inbound message.
type Command interface {
	command()
}

type JoinQueue struct {
	Wallet string
}

type ReportElimination struct {
	SessionID string
	Player    string
}

type DeclareWinner struct {
	SessionID string
	Winner    string
}

func (JoinQueue) command() {}
func (ReportElimination) command() {}
func (DeclareWinner) command() {}

// Decode parses a raw message into a Command
func Decode(raw []byte) (Command, error) {
	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownMessage, err)
	}

	switch msg.Type {
	case MsgJoinQueue:
		return JoinQueue{Wallet: msg.Wallet}, nil
	case MsgGameAction:
		if msg.Action != ActionEliminate {
			return nil, fmt.Errorf("%w: game action %q", ErrUnknownMessage, msg.Action)
		}
		return ReportElimination{SessionID: msg.GameID, Player: msg.Player}, nil
	case MsgDeclareWinner:
		return DeclareWinner{SessionID: msg.GameID, Winner: msg.Winner}, nil
	default:
		return nil, fmt.Errorf("%w: type %q", ErrUnknownMessage, msg.Type)
	}
}

// Coordinator is the set of match operations reachable from the push channel.
type Coordinator interface {
	JoinQueue(ctx context.Context, wallet string) (int, error)
	ReportElimination(ctx context.Context, sessionID, player string) (int, error)
	DeclareWinner(ctx context.Context, sessionID, winner string) error
}

// Replier sends an event back to the originating connection.
type Replier interface {
	Send(ev game.Event)
}

// Dispatcher routes decoded commands to the coordinator. Validation errors
// go back to the sender only; malformed messages are logged and dropped.
type Dispatcher struct {
	coord Coordinator
}

func NewDispatcher(coord Coordinator) *Dispatcher {
	return &Dispatcher{coord: coord}
}

func (d *Dispatcher) Handle(ctx context.Context, from Replier, raw []byte) {
	cmd, err := Decode(raw)
	if err != nil {
		log.Printf("[WS] Dropping message: %v", err)
		return
	}

	switch cmd := cmd.(type) {
	case JoinQueue:
		_, err = d.coord.JoinQueue(ctx, cmd.Wallet)
	case ReportElimination:
		_, err = d.coord.ReportElimination(ctx, cmd.SessionID, cmd.Player)
	case DeclareWinner:
		err = d.coord.DeclareWinner(ctx, cmd.SessionID, cmd.Winner)
	}
	if err == nil {
		return
	}

	if msg := game.PublicMessage(err); msg != "" {
		from.Send(game.NewErrorMessage(msg))
		return
	}
	log.Printf("[WS] Command %T failed: %v", cmd, err)
}
