package session

import "time"

// Record is the server-side session state written at login and consulted on
// every authenticated request. It caches the claims needed to mint fresh
// access tokens on refresh without another directory lookup.
type Record struct {
	UserID      string    `json:"userId"`
	TenantID    string    `json:"tenantId"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"createdAt"`
}
