package authcore

import (
	"context"
	"strings"
	"time"
)

const (
	// PlatformTenantID is the synthetic tenant assigned to the super admin.
	PlatformTenantID = "PLATFORM"

	// WildcardPermission grants every permission check. It is the only
	// wildcard form recognized by Authorize.
	WildcardPermission = "*.*"

	// StatusActive is the only principal status allowed to log in. The
	// comparison is case-insensitive and an empty status counts as active.
	StatusActive = "active"

	// StatusLocked is written back to a principal once the failed-login
	// threshold is reached.
	StatusLocked = "LOCKED"
)

// Permission is a single (resource, action) grant on a role.
type Permission struct {
	Resource string
	Action   string
}

// Role is a named permission bundle attached to a principal. Roles are
// read-only from authcore's point of view.
type Role struct {
	ID          string
	Name        string
	Permissions []Permission
}

// Principal is an authenticatable user as the directory sees it.
type Principal struct {
	ID           string
	TenantID     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Status       string
	MFAEnabled   bool
	MFASecret    string
	Role         *Role
}

// Tenant is the organization a principal belongs to.
type Tenant struct {
	ID     string
	Name   string
	Status string
}

// PrincipalPatch carries partial updates to a principal. Nil fields are left
// untouched.
type PrincipalPatch struct {
	Status     *string
	MFASecret  *string
	MFAEnabled *bool
	LastLogin  *time.Time
}

// UserDirectory looks up and updates principals. Lookups return (nil, nil)
// when no principal matches; errors are reserved for backend failures.
type UserDirectory interface {
	FindPrincipal(ctx context.Context, tenantID, email string) (*Principal, error)
	FindPrincipalByID(ctx context.Context, userID string) (*Principal, error)
	UpdatePrincipal(ctx context.Context, userID string, patch PrincipalPatch) error
	UpdatePrincipalByEmail(ctx context.Context, tenantID, email string, patch PrincipalPatch) error
}

// TenantDirectory looks up tenants. Lookups return (nil, nil) when no tenant
// matches.
type TenantDirectory interface {
	FindTenant(ctx context.Context, tenantID string) (*Tenant, error)
}

// UserInfo is the caller-facing user summary returned alongside tokens.
type UserInfo struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// LoginResult is the outcome of Login or VerifyMFA. When RequiresMFA is set
// only MFAToken and UserID are populated; otherwise the token pair and User
// are.
type LoginResult struct {
	RequiresMFA  bool      `json:"requiresMFA,omitempty"`
	MFAToken     string    `json:"mfaToken,omitempty"`
	UserID       string    `json:"userId,omitempty"`
	AccessToken  string    `json:"accessToken,omitempty"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	User         *UserInfo `json:"user,omitempty"`
}

// MFASetup is a freshly generated, unconfirmed TOTP enrollment.
type MFASetup struct {
	Secret string `json:"secret"`
	QRCode string `json:"qrCode"`
}

// flattenPermissions turns a role's grants into lower-cased
// "resource.action" strings, the form carried in tokens and sessions.
func flattenPermissions(role *Role) []string {
	if role == nil {
		return []string{}
	}
	perms := make([]string, 0, len(role.Permissions))
	for _, p := range role.Permissions {
		perms = append(perms, strings.ToLower(p.Resource+"."+p.Action))
	}
	return perms
}

// roleName returns the display name carried in tokens, defaulting to "user".
func roleName(role *Role) string {
	if role == nil || role.Name == "" {
		return "user"
	}
	return role.Name
}

func statusActive(status string) bool {
	return status == "" || strings.EqualFold(status, StatusActive)
}
