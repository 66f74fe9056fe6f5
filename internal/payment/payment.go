package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/playmatatu/royale/internal/config"
	"github.com/redis/go-redis/v9"
)

var (
	ErrUnavailable       = errors.New("winner payout system not available")
	ErrInsufficientFunds = errors.New("insufficient funds in game wallet")
	ErrInvalidAddress    = errors.New("invalid wallet address")
)

// Receipt is proof of a completed payout
type Receipt struct {
	Winner    string  `json:"winner"`
	Amount    float64 `json:"amount"`
	Signature string  `json:"signature"`
}

// TransferRequest asks a driver to move funds from the game wallet
type TransferRequest struct {
	Reference string
	GameID    string
	Recipient string
	Amount    float64
}

// Driver talks to the service that actually holds the game wallet.
type Driver interface {
	Transfer(ctx context.Context, req TransferRequest) (signature string, err error)
	Balance(ctx context.Context) (float64, error)
}

// Service pays winners through a Driver. It checks the game wallet balance
// before every transfer.
type Service struct {
	driver     Driver
	amount     float64
	rdb        *redis.Client
	balanceTTL time.Duration
	cacheKey   string
}

// NewService creates a payout service. rdb may be nil, which disables the
// balance cache.
func NewService(driver Driver, amount float64, rdb *redis.Client, balanceTTL time.Duration) *Service {
	return &Service{
		driver:     driver,
		amount:     amount,
		rdb:        rdb,
		balanceTTL: balanceTTL,
		cacheKey:   "payout_balance",
	}
}

// Open builds the payout service selected by cfg.PayoutDriver. It returns a
// nil service when payouts are not configured, and a close func that is
// always safe to call.
func Open(cfg *config.Config, rdb *redis.Client) (*Service, func(), error) {
	noop := func() {}
	balanceTTL := time.Duration(cfg.BalanceCacheSeconds) * time.Second

	switch cfg.PayoutDriver {
	case "":
		return nil, noop, nil
	case "http":
		d := NewHTTPDriver(cfg, rdb)
		if d == nil {
			return nil, noop, fmt.Errorf("http payout driver not fully configured")
		}
		return NewService(d, cfg.PayoutAmount, rdb, balanceTTL), noop, nil
	case "nats":
		nc, err := ConnectNATS(cfg.NATSURL)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		d := NewNATSDriver(nc, cfg.PayoutNATSSubject, time.Duration(cfg.PayoutTimeoutSeconds)*time.Second)
		return NewService(d, cfg.PayoutAmount, rdb, balanceTTL), func() { nc.Drain() }, nil
	default:
		return nil, noop, fmt.Errorf("unknown payout driver %q", cfg.PayoutDriver)
	}
}

func (s *Service) Amount() float64 { return s.amount }

// RequestPayout transfers the configured pot to winner
func (s *Service) RequestPayout(ctx context.Context, gameID, winner string) (*Receipt, error) {
	if s == nil || s.driver == nil {
		return nil, ErrUnavailable
	}

	if err := ValidateWalletAddress(winner); err != nil {
		return nil, err
	}

	balance, err := s.driver.Balance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check game wallet balance: %w", err)
	}
	log.Printf("[PAYOUT] Game wallet balance: %.4f", balance)

	if balance < s.amount {
		return nil, fmt.Errorf("%w. Required: %.4f, Available: %.4f", ErrInsufficientFunds, s.amount, balance)
	}

	req := TransferRequest{
		Reference: GenerateReference(),
		GameID:    gameID,
		Recipient: winner,
		Amount:    s.amount,
	}
	signature, err := s.driver.Transfer(ctx, req)
	s.invalidateBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("transfer failed: %w", err)
	}

	log.Printf("[PAYOUT] Transfer confirmed: game=%s ref=%s signature=%s", gameID, req.Reference, signature)
	return &Receipt{Winner: winner, Amount: s.amount, Signature: signature}, nil
}

// GetBalance returns the game wallet balance, served from Redis when a
// recent value is cached.
func (s *Service) GetBalance(ctx context.Context) (float64, error) {
	if s == nil || s.driver == nil {
		return 0, ErrUnavailable
	}

	if s.rdb != nil && s.balanceTTL > 0 {
		if cached, err := s.rdb.Get(ctx, s.cacheKey).Result(); err == nil {
			if v, perr := strconv.ParseFloat(cached, 64); perr == nil {
				return v, nil
			}
		}
	}

	balance, err := s.driver.Balance(ctx)
	if err != nil {
		return 0, err
	}

	if s.rdb != nil && s.balanceTTL > 0 {
		if err := s.rdb.Set(ctx, s.cacheKey, strconv.FormatFloat(balance, 'f', -1, 64), s.balanceTTL).Err(); err != nil {
			log.Printf("[PAYOUT] Failed to cache balance: %v", err)
		}
	}
	return balance, nil
}

func (s *Service) invalidateBalance(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, s.cacheKey).Err(); err != nil {
		log.Printf("[PAYOUT] Failed to clear cached balance: %v", err)
	}
}
