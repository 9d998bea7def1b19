package authcore

import "errors"

// Sentinel errors returned by Service operations. HTTP handlers map these to
// status codes; anything not listed here is an internal failure.
var (
	// ErrTenantRequired is returned when a non-platform login omits the
	// tenant ID.
	ErrTenantRequired = errors.New("tenant ID required for regular users")

	// ErrTenantNotFound covers both an unknown tenant and a tenant that is
	// not active.
	ErrTenantNotFound = errors.New("invalid tenant or tenant not active")

	// ErrInvalidCredentials is returned for an unknown email or a wrong
	// password. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountInactive is returned when the account status is anything
	// other than active, including locked accounts.
	ErrAccountInactive = errors.New("account inactive")

	// ErrMFANotConfigured is returned when MFA verification targets a user
	// without a confirmed TOTP secret.
	ErrMFANotConfigured = errors.New("MFA not configured")

	// ErrMFAInvalidCode is returned for a TOTP code that does not match
	// within the accepted step window.
	ErrMFAInvalidCode = errors.New("invalid MFA code")

	// ErrMFASetupExpired is returned when the pending enrollment secret has
	// lapsed before confirmation.
	ErrMFASetupExpired = errors.New("MFA setup expired")

	// ErrInvalidRefresh is returned for a refresh token that fails
	// verification or no longer matches the stored record.
	ErrInvalidRefresh = errors.New("invalid refresh token")

	// ErrSessionExpired is returned on refresh when the refresh record is
	// still valid but the session itself has expired.
	ErrSessionExpired = errors.New("session expired")

	// ErrInvalidToken is returned for an access token that fails signature
	// verification or whose backing session is gone.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrPermissionDenied is returned by Authorize when the caller lacks the
	// required permission.
	ErrPermissionDenied = errors.New("insufficient permissions")

	// ErrStoreUnavailable wraps Redis transport failures.
	ErrStoreUnavailable = errors.New("session store unavailable")

	// ErrDirectoryUnavailable wraps user or tenant directory failures.
	ErrDirectoryUnavailable = errors.New("directory unavailable")
)
