package authcore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oru-platform/authcore/audit"
	"github.com/oru-platform/authcore/metrics"
	"github.com/oru-platform/authcore/password"
	"github.com/oru-platform/authcore/session"
	"github.com/oru-platform/authcore/token"
)

// Login authenticates email/password within a tenant. The reserved
// super-admin email bypasses the tenant directory entirely. When the
// principal has MFA enabled the result carries a challenge token instead of
// the session token pair.
func (s *Service) Login(ctx context.Context, email, pass, tenantID string) (*LoginResult, error) {
	if s.cfg.SuperAdmin.Email != "" && strings.EqualFold(email, s.cfg.SuperAdmin.Email) {
		return s.loginPlatform(ctx, email, pass)
	}
	return s.loginTenant(ctx, email, pass, tenantID)
}

func (s *Service) loginPlatform(ctx context.Context, email, pass string) (*LoginResult, error) {
	if err := password.Verify(s.cfg.SuperAdmin.PasswordHash, pass); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			s.metrics.Login(metrics.ResultInvalidCredentials)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// The super admin exists outside every directory: a synthetic principal
	// with the universal wildcard role and MFA permanently off.
	return s.issueSession(ctx, &Principal{
		ID:        s.cfg.SuperAdmin.ID,
		TenantID:  PlatformTenantID,
		Email:     email,
		FirstName: "Super",
		LastName:  "Admin",
		Role: &Role{
			ID:          "super-admin",
			Name:        "Super Admin",
			Permissions: []Permission{{Resource: "*", Action: "*"}},
		},
	})
}

func (s *Service) loginTenant(ctx context.Context, email, pass, tenantID string) (*LoginResult, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}

	tenant, err := s.tenants.FindTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	if tenant == nil || !statusActive(tenant.Status) {
		return nil, ErrTenantNotFound
	}

	user, err := s.users.FindPrincipal(ctx, tenantID, email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	if user == nil {
		if err := s.recordLoginFailure(ctx, tenantID, email); err != nil {
			return nil, err
		}
		s.metrics.Login(metrics.ResultInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	// Status is checked before the password so a locked account rejects
	// without touching the failure counter.
	if !statusActive(user.Status) {
		s.metrics.Login(metrics.ResultInactive)
		return nil, ErrAccountInactive
	}

	if err := password.Verify(user.PasswordHash, pass); err != nil {
		if !errors.Is(err, password.ErrMismatch) {
			return nil, err
		}
		if err := s.recordLoginFailure(ctx, tenantID, email); err != nil {
			return nil, err
		}
		s.metrics.Login(metrics.ResultInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	if user.MFAEnabled {
		mfaToken, err := s.tokens.SignChallenge(user.ID, tenantID)
		if err != nil {
			return nil, err
		}
		s.metrics.Login(metrics.ResultMFARequired)
		return &LoginResult{RequiresMFA: true, MFAToken: mfaToken, UserID: user.ID}, nil
	}

	return s.issueSession(ctx, user)
}

// recordLoginFailure bumps the lockout counter and, once the threshold is
// reached, flips the account to LOCKED. The write-back is best-effort; the
// counter itself is not.
func (s *Service) recordLoginFailure(ctx context.Context, tenantID, email string) error {
	locked, err := s.lockout.RecordFailure(ctx, tenantID, email)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !locked {
		return nil
	}

	s.metrics.Lockout()
	status := StatusLocked
	if err := s.users.UpdatePrincipalByEmail(ctx, tenantID, email, PrincipalPatch{Status: &status}); err != nil {
		s.logger.Warn("lock write-back skipped",
			"tenantId", tenantID, "email", email, "error", err)
	}
	return nil
}

// issueSession mints the token pair, persists the session and refresh
// records, and emits the LOGIN audit event.
func (s *Service) issueSession(ctx context.Context, user *Principal) (*LoginResult, error) {
	sessionID, err := newSessionID()
	if err != nil {
		return nil, err
	}

	perms := flattenPermissions(user.Role)
	role := roleName(user.Role)

	accessToken, err := s.tokens.SignAccess(token.Identity{
		UserID:      user.ID,
		TenantID:    user.TenantID,
		Email:       user.Email,
		Role:        role,
		Permissions: perms,
		SessionID:   sessionID,
	})
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.tokens.SignRefresh(user.ID, sessionID)
	if err != nil {
		return nil, err
	}

	rec := &session.Record{
		UserID:      user.ID,
		TenantID:    user.TenantID,
		Email:       user.Email,
		Role:        role,
		Permissions: perms,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.sessions.SaveSession(ctx, sessionID, rec, s.cfg.SessionTTL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := s.sessions.SaveRefresh(ctx, user.ID, sessionID, refreshToken, s.cfg.RefreshTTL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if user.TenantID != PlatformTenantID {
		now := time.Now().UTC()
		if err := s.users.UpdatePrincipal(ctx, user.ID, PrincipalPatch{LastLogin: &now}); err != nil {
			s.logger.Warn("lastLogin update skipped", "userId", user.ID, "error", err)
		}
	}

	s.record(ctx, audit.Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		TenantID:  user.TenantID,
		UserID:    user.ID,
		Action:    "LOGIN",
		Entity:    "Session",
		EntityID:  sessionID,
		Details:   map[string]any{"permissions": perms, "event": "login"},
	})

	s.metrics.Login(metrics.ResultSuccess)
	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User: &UserInfo{
			ID:          user.ID,
			Email:       user.Email,
			FirstName:   user.FirstName,
			LastName:    user.LastName,
			Role:        role,
			Permissions: perms,
		},
	}, nil
}

// record writes an audit event, logging instead of failing the operation
// when the sink rejects it.
func (s *Service) record(ctx context.Context, event audit.Event) {
	if err := s.audit.Record(ctx, event); err != nil {
		s.logger.Warn("audit write failed", "action", event.Action, "error", err)
	}
}

func newSessionID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("authcore: session id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
