// Package session persists the short-lived server-side state behind issued
// tokens: session records, refresh-token records, and pending MFA enrollment
// secrets. All state is Redis-backed and expires via TTL; there are no
// background sweeps.
//
// Correctness relies only on the atomicity of individual key operations.
// No multi-key transactions are used.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned when the requested record does not exist or
	// has expired.
	ErrNotFound = errors.New("session: not found")
	// ErrUnavailable wraps Redis transport failures.
	ErrUnavailable = errors.New("session: redis unavailable")
)

// Store is a Redis-backed session store. A Store is safe for concurrent use.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a Store backed by the given Redis client. prefix
// namespaces every key and may be empty.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	return &Store{redis: client, prefix: prefix}
}

func (s *Store) key(parts string) string {
	if s.prefix == "" {
		return parts
	}
	return s.prefix + ":" + parts
}

func (s *Store) sessionKey(sessionID string) string {
	return s.key("session:" + sessionID)
}

func (s *Store) refreshKey(userID, sessionID string) string {
	return s.key("refresh:" + userID + ":" + sessionID)
}

func (s *Store) enrollmentKey(userID string) string {
	return s.key("mfa:setup:" + userID)
}

// SaveSession writes a session record with the given TTL.
func (s *Store) SaveSession(ctx context.Context, sessionID string, rec *Record, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.sessionKey(sessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// GetSession returns the session record for sessionID, or ErrNotFound.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*Record, error) {
	data, err := s.redis.Get(ctx, s.sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	rec := &Record{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("session: corrupt record: %v", err)
	}
	return rec, nil
}

// TouchSession resets the session TTL to a full window (sliding expiration
// on refresh). It returns false if the session no longer exists.
func (s *Store) TouchSession(ctx context.Context, sessionID string, ttl time.Duration) (bool, error) {
	ok, err := s.redis.Expire(ctx, s.sessionKey(sessionID), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return ok, nil
}

// DeleteSession removes a session record. Deleting an absent key is not an
// error.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, s.sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// SaveRefresh stores the signed refresh token for (userID, sessionID).
// The stored value is compared byte-for-byte on refresh to detect replay
// of revoked tokens.
func (s *Store) SaveRefresh(ctx context.Context, userID, sessionID, token string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, s.refreshKey(userID, sessionID), token, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// GetRefresh returns the stored refresh token for (userID, sessionID), or
// ErrNotFound.
func (s *Store) GetRefresh(ctx context.Context, userID, sessionID string) (string, error) {
	token, err := s.redis.Get(ctx, s.refreshKey(userID, sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return token, nil
}

// DeleteRefresh removes the refresh-token record. Idempotent.
func (s *Store) DeleteRefresh(ctx context.Context, userID, sessionID string) error {
	if err := s.redis.Del(ctx, s.refreshKey(userID, sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// SaveEnrollment stores a pending, unconfirmed TOTP secret for userID.
// A second call overwrites the previous pending secret.
func (s *Store) SaveEnrollment(ctx context.Context, userID, secret string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, s.enrollmentKey(userID), secret, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// GetEnrollment returns the pending TOTP secret for userID, or ErrNotFound
// once the enrollment window has lapsed.
func (s *Store) GetEnrollment(ctx context.Context, userID string) (string, error) {
	secret, err := s.redis.Get(ctx, s.enrollmentKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return secret, nil
}

// DeleteEnrollment removes the pending TOTP secret. Idempotent.
func (s *Store) DeleteEnrollment(ctx context.Context, userID string) error {
	if err := s.redis.Del(ctx, s.enrollmentKey(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Ping reports Redis availability and round-trip latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}
