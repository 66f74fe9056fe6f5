package game

import "errors"

var (
	ErrWalletRequired         = errors.New("wallet address required")
	ErrAlreadyQueued          = errors.New("already in queue")
	ErrRateLimited            = errors.New("too many join attempts")
	ErrSessionNotFound        = errors.New("game not found")
	ErrWinnerRequired         = errors.New("winner required")
	ErrWinnerMismatch         = errors.New("declared winner does not match game state")
	ErrPayoutAlreadyRequested = errors.New("payout already requested")
	ErrPayoutUnavailable      = errors.New("winner payout system not available")
)

var publicMessages = map[error]string{
	ErrWalletRequired:         "Wallet address required",
	ErrAlreadyQueued:          "Already in queue",
	ErrRateLimited:            "Too many join attempts, slow down",
	ErrSessionNotFound:        "Game not found",
	ErrWinnerRequired:         "Winner required",
	ErrWinnerMismatch:         "Declared winner does not match game state",
	ErrPayoutAlreadyRequested: "Payout already requested for this game",
	ErrPayoutUnavailable:      "Winner payout system not available",
}

// PublicMessage returns the text shown to the caller for a validation error,
// or "" when err is not one of this package's errors.
func PublicMessage(err error) string {
	for target, msg := range publicMessages {
		if errors.Is(err, target) {
			return msg
		}
	}
	return ""
}
