package authcore

import (
	"errors"
	"time"
)

const (
	defaultAccessTTL     = 15 * time.Minute
	defaultRefreshTTL    = 7 * 24 * time.Hour
	defaultSessionTTL    = 8 * time.Hour
	defaultChallengeTTL  = 5 * time.Minute
	defaultEnrollmentTTL = 10 * time.Minute

	defaultIssuer       = "Oru Platform"
	defaultSuperAdminID = "OONRU-SA-001"

	defaultLockoutThreshold = 5
	defaultLockoutWindow    = 15 * time.Minute
	defaultMFAWarnThreshold = 3
	defaultMFAFailureWindow = 5 * time.Minute
)

// SuperAdminConfig describes the platform-level break-glass account. When
// Email is empty the super-admin path is disabled entirely.
type SuperAdminConfig struct {
	Email        string
	ID           string
	PasswordHash string
}

// Config holds all tunables for a Service. Zero values fall back to the
// platform defaults listed on each field.
type Config struct {
	// AccessSecret signs access and MFA challenge tokens. Required.
	AccessSecret []byte
	// RefreshSecret signs refresh tokens. Defaults to AccessSecret.
	RefreshSecret []byte

	AccessTTL     time.Duration // default 15m
	RefreshTTL    time.Duration // default 7d
	SessionTTL    time.Duration // default 8h
	ChallengeTTL  time.Duration // default 5m
	EnrollmentTTL time.Duration // default 10m

	// Issuer is stamped into every token and into TOTP provisioning URIs.
	Issuer string // default "Oru Platform"

	// RedisPrefix namespaces every Redis key. Empty means no prefix.
	RedisPrefix string

	// Leeway tolerated when validating token expiry.
	Leeway time.Duration

	SuperAdmin SuperAdminConfig

	LockoutThreshold int           // failed logins before lock, default 5
	LockoutWindow    time.Duration // default 15m
	MFAWarnThreshold int           // MFA failures before warning, default 3
	MFAFailureWindow time.Duration // default 5m
}

func (c *Config) applyDefaults() {
	if c.AccessTTL <= 0 {
		c.AccessTTL = defaultAccessTTL
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = defaultRefreshTTL
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = defaultSessionTTL
	}
	if c.ChallengeTTL <= 0 {
		c.ChallengeTTL = defaultChallengeTTL
	}
	if c.EnrollmentTTL <= 0 {
		c.EnrollmentTTL = defaultEnrollmentTTL
	}
	if c.Issuer == "" {
		c.Issuer = defaultIssuer
	}
	if c.SuperAdmin.Email != "" && c.SuperAdmin.ID == "" {
		c.SuperAdmin.ID = defaultSuperAdminID
	}
	if c.LockoutThreshold <= 0 {
		c.LockoutThreshold = defaultLockoutThreshold
	}
	if c.LockoutWindow <= 0 {
		c.LockoutWindow = defaultLockoutWindow
	}
	if c.MFAWarnThreshold <= 0 {
		c.MFAWarnThreshold = defaultMFAWarnThreshold
	}
	if c.MFAFailureWindow <= 0 {
		c.MFAFailureWindow = defaultMFAFailureWindow
	}
}

// Validate reports configuration errors after defaults have been applied.
func (c *Config) Validate() error {
	if len(c.AccessSecret) == 0 {
		return errors.New("authcore: access secret required")
	}
	if c.SuperAdmin.Email != "" && c.SuperAdmin.PasswordHash == "" {
		return errors.New("authcore: super admin enabled without password hash")
	}
	return nil
}
