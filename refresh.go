package authcore

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/oru-platform/authcore/audit"
	"github.com/oru-platform/authcore/metrics"
	"github.com/oru-platform/authcore/session"
	"github.com/oru-platform/authcore/token"
)

// Refresh exchanges a valid refresh token for a new access token and slides
// the session TTL back to a full window. The refresh token itself is not
// rotated; it stays valid until logout or its own expiry.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		s.metrics.Refresh(metrics.ResultInvalid)
		return "", ErrInvalidRefresh
	}

	stored, err := s.sessions.GetRefresh(ctx, claims.UserID, claims.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			s.metrics.Refresh(metrics.ResultInvalid)
			return "", ErrInvalidRefresh
		}
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(refreshToken)) != 1 {
		s.metrics.Refresh(metrics.ResultInvalid)
		return "", ErrInvalidRefresh
	}

	rec, err := s.sessions.GetSession(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			s.metrics.Refresh(metrics.ResultExpired)
			return "", ErrSessionExpired
		}
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	accessToken, err := s.tokens.SignAccess(token.Identity{
		UserID:      rec.UserID,
		TenantID:    rec.TenantID,
		Email:       rec.Email,
		Role:        rec.Role,
		Permissions: rec.Permissions,
		SessionID:   claims.SessionID,
	})
	if err != nil {
		return "", err
	}

	if _, err := s.sessions.TouchSession(ctx, claims.SessionID, s.cfg.SessionTTL); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.metrics.Refresh(metrics.ResultSuccess)
	return accessToken, nil
}

// Logout deletes the session and its refresh record and emits the LOGOUT
// audit event. Logging out an already-dead session is not an error.
func (s *Service) Logout(ctx context.Context, sessionID, userID, tenantID string) error {
	if tenantID == "" {
		tenantID = PlatformTenantID
	}

	if err := s.sessions.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := s.sessions.DeleteRefresh(ctx, userID, sessionID); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.record(ctx, audit.Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		TenantID:  tenantID,
		UserID:    userID,
		Action:    "LOGOUT",
		Entity:    "Session",
		EntityID:  sessionID,
		Details:   map[string]any{"event": "logout"},
	})

	s.metrics.Logout()
	return nil
}

// VerifyToken validates an access token. The token is good only while both
// the signature verifies and the backing session record is still live; the
// two failure modes are indistinguishable to the caller.
func (s *Service) VerifyToken(ctx context.Context, accessToken string) (*token.AccessClaims, error) {
	claims, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if _, err := s.sessions.GetSession(ctx, claims.SessionID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return claims, nil
}

// Authorize checks the verified claims against a required permission.
// Only an exact match or the universal wildcard passes.
func (s *Service) Authorize(claims *token.AccessClaims, permission string) error {
	if claims == nil {
		return ErrPermissionDenied
	}
	if slices.Contains(claims.Permissions, permission) ||
		slices.Contains(claims.Permissions, WildcardPermission) {
		return nil
	}
	return ErrPermissionDenied
}
