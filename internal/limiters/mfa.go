package limiters

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultMFAWindow = 5 * time.Minute

// MFAFailures counts failed MFA code attempts per user. Unlike Lockout it
// never triggers an account lock; callers log a warning once the count
// crosses their threshold.
type MFAFailures struct {
	redis  redis.UniversalClient
	window time.Duration
}

// NewMFAFailures creates an MFA failure counter with the given sliding
// window (default 5 minutes).
func NewMFAFailures(client redis.UniversalClient, window time.Duration) *MFAFailures {
	if window <= 0 {
		window = defaultMFAWindow
	}
	return &MFAFailures{redis: client, window: window}
}

func (m *MFAFailures) key(userID string) string {
	return "mfa:failed:" + userID
}

// RecordFailure increments the per-user MFA failure counter, refreshes its
// window, and returns the new count.
func (m *MFAFailures) RecordFailure(ctx context.Context, userID string) (int, error) {
	key := m.key(userID)

	count, err := m.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := m.redis.Expire(ctx, key, m.window).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return int(count), nil
}
