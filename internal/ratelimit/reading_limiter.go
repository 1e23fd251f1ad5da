package ratelimit

import (
	"context"
	"fmt"
	"strings"

	"github.com/mietwerk/mietwerk/internal/config"
	"github.com/redis/go-redis/v9"
)

const keyReadingSubmit = "reading:submit:person:%s"

// ReadingLimiter throttles meter reading submissions per tenant so a
// misbehaving client cannot flood the reading history. It is disabled
// when no Redis address is configured.
type ReadingLimiter struct {
	enabled bool
	bucket  *TokenBucket
	rate    float64
	burst   int
}

func NewReadingLimiter(cfg config.Config) *ReadingLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr})

	// One reading every 10 seconds sustained, bursts of 5.
	return &ReadingLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    0.1,
		burst:   5,
	}
}

func (l *ReadingLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *ReadingLimiter) Allow(ctx context.Context, personID string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyReadingSubmit, strings.TrimSpace(personID)), l.rate, l.burst)
}
