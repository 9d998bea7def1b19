// Package token signs and verifies the three token kinds used by the
// authentication service: short-lived access tokens carrying the full
// identity claim set, longer-lived refresh tokens binding a user to a
// session, and five-minute MFA challenge tokens issued between password
// verification and TOTP confirmation.
//
// All tokens are HS256 JWTs. The refresh secret may differ from the access
// secret and defaults to it when unset.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalid is returned for any token that fails signature verification,
// is expired, or carries claims of the wrong shape.
var ErrInvalid = errors.New("token: invalid")

// Config holds the signing material and lifetimes for the codec.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte // defaults to AccessSecret
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	ChallengeTTL  time.Duration
	Issuer        string
	Leeway        time.Duration
}

// Identity is the claim payload minted into access tokens.
type Identity struct {
	UserID      string
	TenantID    string
	Email       string
	Role        string
	Permissions []string
	SessionID   string
}

// AccessClaims is the decoded access-token claim set.
type AccessClaims struct {
	UserID      string   `json:"userId"`
	TenantID    string   `json:"tenantId"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	SessionID   string   `json:"sessionId"`
	jwt.RegisteredClaims
}

// RefreshClaims is the decoded refresh-token claim set.
type RefreshClaims struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
	jwt.RegisteredClaims
}

// ChallengeClaims is the decoded MFA challenge-token claim set.
type ChallengeClaims struct {
	UserID      string `json:"userId"`
	TenantID    string `json:"tenantId"`
	RequiresMFA bool   `json:"requiresMFA"`
	jwt.RegisteredClaims
}

// Codec signs and parses tokens. A Codec is immutable after construction
// and safe for concurrent use.
type Codec struct {
	cfg Config
}

// NewCodec validates cfg and returns a Codec. The refresh secret falls
// back to the access secret when empty.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, errors.New("token: access secret required")
	}
	if len(cfg.RefreshSecret) == 0 {
		cfg.RefreshSecret = cfg.AccessSecret
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 || cfg.ChallengeTTL <= 0 {
		return nil, errors.New("token: invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("token: invalid leeway configuration")
	}
	return &Codec{cfg: cfg}, nil
}

// SignAccess mints an access token for the given identity.
func (c *Codec) SignAccess(id Identity) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		UserID:      id.UserID,
		TenantID:    id.TenantID,
		Email:       id.Email,
		Role:        id.Role,
		Permissions: id.Permissions,
		SessionID:   id.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.cfg.AccessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.cfg.AccessSecret)
}

// ParseAccess verifies an access token and returns its claims.
func (c *Codec) ParseAccess(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := c.parse(tokenStr, claims, c.cfg.AccessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// SignRefresh mints a refresh token binding userID to sessionID, signed
// with the refresh secret.
func (c *Codec) SignRefresh(userID, sessionID string) (string, error) {
	now := time.Now()
	claims := RefreshClaims{
		UserID:    userID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.cfg.RefreshTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.cfg.RefreshSecret)
}

// ParseRefresh verifies a refresh token and returns its claims.
func (c *Codec) ParseRefresh(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.parse(tokenStr, claims, c.cfg.RefreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// SignChallenge mints a short-lived MFA challenge token. The holder has
// proven the password but has not yet presented a TOTP code.
func (c *Codec) SignChallenge(userID, tenantID string) (string, error) {
	now := time.Now()
	claims := ChallengeClaims{
		UserID:      userID,
		TenantID:    tenantID,
		RequiresMFA: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.cfg.ChallengeTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.cfg.AccessSecret)
}

// ParseChallenge verifies an MFA challenge token and returns its claims.
func (c *Codec) ParseChallenge(tokenStr string) (*ChallengeClaims, error) {
	claims := &ChallengeClaims{}
	if err := c.parse(tokenStr, claims, c.cfg.AccessSecret); err != nil {
		return nil, err
	}
	if !claims.RequiresMFA {
		return nil, ErrInvalid
	}
	return claims, nil
}

func (c *Codec) parse(tokenStr string, claims jwt.Claims, secret []byte) error {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if c.cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.cfg.Leeway))
	}
	if c.cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.cfg.Issuer))
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil || !tok.Valid {
		return ErrInvalid
	}
	return nil
}
