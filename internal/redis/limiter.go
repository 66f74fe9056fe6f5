package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// JoinLimiter throttles queue joins per wallet with a SETNX key.
type JoinLimiter struct {
	rdb    *redis.Client
	window time.Duration
	prefix string
}

// NewJoinLimiter returns nil when rdb is nil or the window is not positive.
func NewJoinLimiter(rdb *redis.Client, window time.Duration) *JoinLimiter {
	if rdb == nil || window <= 0 {
		return nil
	}
	return &JoinLimiter{rdb: rdb, window: window, prefix: "join_rate:"}
}

// AllowJoin reports whether wallet may join now. The first call in a window
// claims it; later calls in the same window are refused.
func (l *JoinLimiter) AllowJoin(ctx context.Context, wallet string) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, l.prefix+wallet, "1", l.window).Result()
	if err != nil {
		return true, fmt.Errorf("join rate check failed: %w", err)
	}
	return ok, nil
}
