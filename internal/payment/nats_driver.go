package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// ConnectNATS connects to the broker that fronts the wallet service.
func ConnectNATS(url string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("royale-coordinator"),
		nats.Timeout(10 * time.Second),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(5),
	}
	return nats.Connect(url, opts...)
}

// walletRequest is the payload sent to the wallet service
type walletRequest struct {
	Reference string  `json:"reference,omitempty"`
	GameID    string  `json:"game_id,omitempty"`
	Recipient string  `json:"recipient,omitempty"`
	Amount    float64 `json:"amount,omitempty"`
}

// walletReply is the wallet service's answer to any request
type walletReply struct {
	Ok        bool    `json:"ok"`
	Signature string  `json:"signature,omitempty"`
	Balance   float64 `json:"balance,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// NATSDriver performs payouts by request/reply against a wallet service
// listening on <subject>.transfer and <subject>.balance.
type NATSDriver struct {
	nc      *nats.Conn
	subject string
	timeout time.Duration
}

func NewNATSDriver(nc *nats.Conn, subject string, timeout time.Duration) *NATSDriver {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &NATSDriver{nc: nc, subject: subject, timeout: timeout}
}

func (d *NATSDriver) request(ctx context.Context, op string, req walletRequest) (*walletReply, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal wallet request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	msg, err := d.nc.RequestWithContext(ctx, d.subject+"."+op, data)
	if err != nil {
		return nil, fmt.Errorf("wallet %s request failed: %w", op, err)
	}

	return decodeWalletReply(msg.Data)
}

func decodeWalletReply(data []byte) (*walletReply, error) {
	var reply walletReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, fmt.Errorf("failed to decode wallet reply: %w", err)
	}
	if !reply.Ok {
		if reply.Error == "" {
			reply.Error = "wallet service rejected request"
		}
		return &reply, errors.New(reply.Error)
	}
	return &reply, nil
}

func (d *NATSDriver) Transfer(ctx context.Context, req TransferRequest) (string, error) {
	reply, err := d.request(ctx, "transfer", walletRequest{
		Reference: req.Reference,
		GameID:    req.GameID,
		Recipient: req.Recipient,
		Amount:    req.Amount,
	})
	if err != nil {
		return "", err
	}
	if reply.Signature == "" {
		return "", errors.New("wallet service returned no signature")
	}
	return reply.Signature, nil
}

func (d *NATSDriver) Balance(ctx context.Context) (float64, error) {
	reply, err := d.request(ctx, "balance", walletRequest{})
	if err != nil {
		return 0, err
	}
	return reply.Balance, nil
}
