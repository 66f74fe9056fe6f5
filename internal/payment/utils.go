package payment

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Base58 alphabet, 32 to 44 characters: the textual form of a 32-byte public key.
var walletRegex = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

// ValidateWalletAddress checks that address looks like a base58 public key
func ValidateWalletAddress(address string) error {
	address = strings.TrimSpace(address)
	if !walletRegex.MatchString(address) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return nil
}

// Snowflake-style reference generator
var (
	lastTimestamp int64
	sequence      int64
	mu            sync.Mutex

	nodeID       = int64(1) // 0-1023
	nodeBits     = 10
	sequenceBits = 12
	customEpoch  = int64(1700000000000) // milliseconds
	maxSequence  = (1 << sequenceBits) - 1
)

// GenerateTransactionID generates a unique 64-bit Snowflake ID
// Format: [timestamp (42 bits)][node ID (10 bits)][sequence (12 bits)]
func GenerateTransactionID() int64 {
	mu.Lock()
	defer mu.Unlock()

	ts := time.Now().UnixMilli() - customEpoch

	if ts < lastTimestamp {
		ts = lastTimestamp
	}

	if ts == lastTimestamp {
		sequence++
		if sequence > int64(maxSequence) {
			for ts <= lastTimestamp {
				time.Sleep(time.Millisecond)
				ts = time.Now().UnixMilli() - customEpoch
			}
			sequence = 0
		}
	} else {
		sequence = 0
	}

	lastTimestamp = ts

	return (ts << (nodeBits + sequenceBits)) | (nodeID << sequenceBits) | sequence
}

// GenerateReference returns the idempotency reference sent with a transfer
func GenerateReference() string {
	return "PAYOUT_" + strconv.FormatInt(GenerateTransactionID(), 10)
}
