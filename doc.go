// Package authcore implements the session and credential lifecycle for the
// Oru platform: password login with brute-force lockout, TOTP-based MFA
// enrollment and verification, JWT access and refresh tokens, Redis-backed
// sessions with sliding expiration, and permission-based authorization.
//
// The package is storage-agnostic about users and tenants: callers supply
// UserDirectory and TenantDirectory implementations (typically backed by the
// platform database) while authcore owns all volatile state in Redis.
package authcore
