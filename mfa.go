package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/oru-platform/authcore/metrics"
	"github.com/oru-platform/authcore/session"
)

// totpOpts matches the codes produced by standard authenticator apps while
// tolerating two 30-second steps of clock drift in either direction.
var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      2,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// SetupMFA generates a fresh TOTP secret for userID and stores it as a
// pending enrollment. The secret takes effect only after ConfirmMFA; calling
// SetupMFA again replaces the pending secret.
func (s *Service) SetupMFA(ctx context.Context, userID string) (*MFASetup, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.cfg.Issuer,
		AccountName: userID,
	})
	if err != nil {
		return nil, err
	}

	if err := s.sessions.SaveEnrollment(ctx, userID, key.Secret(), s.cfg.EnrollmentTTL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return &MFASetup{Secret: key.Secret(), QRCode: key.URL()}, nil
}

// ConfirmMFA activates the pending enrollment once the user proves they can
// produce a valid code from it.
func (s *Service) ConfirmMFA(ctx context.Context, userID, code string) error {
	secret, err := s.sessions.GetEnrollment(ctx, userID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return ErrMFASetupExpired
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if !validTOTP(secret, code) {
		return ErrMFAInvalidCode
	}

	enabled := true
	if err := s.users.UpdatePrincipal(ctx, userID, PrincipalPatch{
		MFASecret:  &secret,
		MFAEnabled: &enabled,
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}

	// MFA is already active at this point, so a failed cleanup only leaves
	// a pending record that expires on its own.
	if err := s.sessions.DeleteEnrollment(ctx, userID); err != nil {
		s.logger.Warn("enrollment cleanup skipped", "userId", userID, "error", err)
	}
	return nil
}

// VerifyMFA completes a login that Login answered with a challenge token.
// The challenge token proves a recent password check; the code proves
// possession of the enrolled authenticator.
func (s *Service) VerifyMFA(ctx context.Context, userID, challengeToken, code string) (*LoginResult, error) {
	if _, err := s.tokens.ParseChallenge(challengeToken); err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.users.FindPrincipalByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	if user == nil || user.MFASecret == "" {
		return nil, ErrMFANotConfigured
	}

	if !validTOTP(user.MFASecret, code) {
		s.recordMFAFailure(ctx, userID)
		s.metrics.MFA(metrics.ResultInvalid)
		return nil, ErrMFAInvalidCode
	}

	s.metrics.MFA(metrics.ResultSuccess)
	return s.issueSession(ctx, user)
}

// recordMFAFailure bumps the per-user MFA failure counter. Repeated failures
// only raise a warning; they never lock the account.
func (s *Service) recordMFAFailure(ctx context.Context, userID string) {
	count, err := s.mfaFails.RecordFailure(ctx, userID)
	if err != nil {
		s.logger.Warn("MFA failure counter unavailable", "userId", userID, "error", err)
		return
	}
	if count >= s.cfg.MFAWarnThreshold {
		s.logger.Warn("multiple MFA failures", "userId", userID, "count", count)
	}
}

func validTOTP(secret, code string) bool {
	ok, err := totp.ValidateCustom(code, secret, time.Now().UTC(), totpOpts)
	return err == nil && ok
}
