// Package limiters tracks failed authentication attempts in Redis using a
// sliding TTL window per counter. Counters are advisory: a lost race between
// the increment and the expiry call only stretches the window slightly,
// which is an accepted imprecision.
package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable wraps Redis transport failures from any limiter.
var ErrUnavailable = errors.New("limiters: redis unavailable")

const (
	defaultLockoutThreshold = 5
	defaultLockoutWindow    = 15 * time.Minute
)

// LockoutConfig tunes the failed-login counter.
type LockoutConfig struct {
	Threshold int
	Window    time.Duration
}

// Lockout counts failed login attempts per (tenant, email). The window
// slides on every failure; the account should be locked once the threshold
// is reached.
type Lockout struct {
	redis     redis.UniversalClient
	threshold int64
	window    time.Duration
}

// NewLockout creates a lockout counter. Zero-value config fields fall back
// to 5 attempts / 15 minutes.
func NewLockout(client redis.UniversalClient, cfg LockoutConfig) *Lockout {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = defaultLockoutThreshold
	}
	window := cfg.Window
	if window <= 0 {
		window = defaultLockoutWindow
	}
	return &Lockout{redis: client, threshold: int64(threshold), window: window}
}

func (l *Lockout) key(tenantID, email string) string {
	return "failed:" + tenantID + ":" + email
}

// RecordFailure increments the failure counter and refreshes its TTL window.
// It returns true once the count reaches the threshold, meaning the caller
// should flip the account to locked.
func (l *Lockout) RecordFailure(ctx context.Context, tenantID, email string) (bool, error) {
	key := l.key(tenantID, email)

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := l.redis.Expire(ctx, key, l.window).Err(); err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return count >= l.threshold, nil
}

// Failures returns the current failure count within the window.
func (l *Lockout) Failures(ctx context.Context, tenantID, email string) (int, error) {
	count, err := l.redis.Get(ctx, l.key(tenantID, email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(count), nil
}

// Reset clears the failure counter, e.g. after a manual unlock.
func (l *Lockout) Reset(ctx context.Context, tenantID, email string) error {
	if err := l.redis.Del(ctx, l.key(tenantID, email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
