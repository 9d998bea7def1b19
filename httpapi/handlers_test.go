package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pquerna/otp/totp"
	"github.com/redis/go-redis/v9"

	"github.com/oru-platform/authcore"
	"github.com/oru-platform/authcore/password"
)

const (
	tenantID  = "tenant-1"
	userEmail = "ops@acme.test"
	userPass  = "correct horse battery staple"
)

type fixtureUsers struct {
	mu   sync.Mutex
	byID map[string]*authcore.Principal
}

func (d *fixtureUsers) FindPrincipal(_ context.Context, tenant, email string) (*authcore.Principal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.byID {
		if p.TenantID == tenant && p.Email == email {
			return p, nil
		}
	}
	return nil, nil
}

func (d *fixtureUsers) FindPrincipalByID(_ context.Context, userID string) (*authcore.Principal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.byID[userID], nil
}

func (d *fixtureUsers) UpdatePrincipal(_ context.Context, userID string, patch authcore.PrincipalPatch) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.byID[userID]; ok {
		apply(p, patch)
	}
	return nil
}

func (d *fixtureUsers) UpdatePrincipalByEmail(_ context.Context, tenant, email string, patch authcore.PrincipalPatch) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.byID {
		if p.TenantID == tenant && p.Email == email {
			apply(p, patch)
		}
	}
	return nil
}

func apply(p *authcore.Principal, patch authcore.PrincipalPatch) {
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.MFASecret != nil {
		p.MFASecret = *patch.MFASecret
	}
	if patch.MFAEnabled != nil {
		p.MFAEnabled = *patch.MFAEnabled
	}
}

type fixtureTenants struct{}

func (fixtureTenants) FindTenant(_ context.Context, id string) (*authcore.Tenant, error) {
	if id == tenantID {
		return &authcore.Tenant{ID: tenantID, Name: "Acme", Status: "active"}, nil
	}
	return nil, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *fixtureUsers, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	hash, err := password.Hash(userPass)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	users := &fixtureUsers{byID: map[string]*authcore.Principal{
		"user-1": {
			ID:           "user-1",
			TenantID:     tenantID,
			Email:        userEmail,
			FirstName:    "Omar",
			LastName:     "Reyes",
			PasswordHash: hash,
			Status:       "active",
			Role: &authcore.Role{
				ID:          "role-ops",
				Name:        "Operator",
				Permissions: []authcore.Permission{{Resource: "inventory", Action: "view"}},
			},
		},
	}}

	svc, err := authcore.New(authcore.Config{
		AccessSecret: []byte("test-access-secret"),
	}, authcore.Options{
		Users:   users,
		Tenants: fixtureTenants{},
		Redis:   client,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	handler := New(svc, nil)
	mux := http.NewServeMux()
	handler.Routes(mux)
	mux.Handle("GET /inventory", handler.Protect("inventory.view",
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})))
	mux.Handle("DELETE /inventory", handler.Protect("inventory.delete",
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, users, mr
}

func postJSON(t *testing.T, url, bearer string, payload any) (*http.Response, map[string]any) {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return do(t, req)
}

func get(t *testing.T, url, bearer string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return do(t, req)
}

func do(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func loginTokens(t *testing.T, srv *httptest.Server) (access, refresh string) {
	t.Helper()
	resp, body := postJSON(t, srv.URL+"/auth/login", "", map[string]string{
		"email": userEmail, "password": userPass, "tenantId": tenantID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d: %v", resp.StatusCode, body)
	}
	access, _ = body["accessToken"].(string)
	refresh, _ = body["refreshToken"].(string)
	if access == "" || refresh == "" {
		t.Fatalf("missing tokens in %v", body)
	}
	return access, refresh
}

func TestLoginLogoutRoundTrip(t *testing.T) {
	srv, _, _ := newTestServer(t)
	access, _ := loginTokens(t, srv)

	resp, body := get(t, srv.URL+"/auth/me", access)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/auth/me status = %d", resp.StatusCode)
	}
	if body["id"] != "user-1" || body["email"] != userEmail {
		t.Fatalf("unexpected /auth/me body: %v", body)
	}

	if resp, _ := get(t, srv.URL+"/inventory", access); resp.StatusCode != http.StatusOK {
		t.Fatalf("protected route status = %d", resp.StatusCode)
	}

	if resp, _ := postJSON(t, srv.URL+"/auth/logout", access, struct{}{}); resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d", resp.StatusCode)
	}

	// The still-unexpired token is dead after logout.
	resp, body = get(t, srv.URL+"/auth/me", access)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("post-logout status = %d", resp.StatusCode)
	}
	if body["error"] != "Invalid or expired token" {
		t.Fatalf("post-logout error = %v", body["error"])
	}
}

func TestProtectedRouteStatuses(t *testing.T) {
	srv, _, _ := newTestServer(t)
	access, _ := loginTokens(t, srv)

	if resp, body := get(t, srv.URL+"/inventory", ""); resp.StatusCode != http.StatusUnauthorized || body["error"] != "No authorization token" {
		t.Fatalf("anonymous: status = %d, body = %v", resp.StatusCode, body)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/inventory", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	resp, body := do(t, req)
	if resp.StatusCode != http.StatusForbidden || body["error"] != "Insufficient permissions" {
		t.Fatalf("underprivileged: status = %d, body = %v", resp.StatusCode, body)
	}
}

func TestLoginValidationAndLockout(t *testing.T) {
	srv, users, _ := newTestServer(t)

	resp, _ := postJSON(t, srv.URL+"/auth/login", "", map[string]string{
		"email": userEmail, "password": userPass,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing tenant status = %d", resp.StatusCode)
	}

	resp, _ = postJSON(t, srv.URL+"/auth/login", "", map[string]string{
		"email": userEmail, "password": userPass, "tenantId": "nope",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown tenant status = %d", resp.StatusCode)
	}

	for i := 0; i < 5; i++ {
		resp, _ := postJSON(t, srv.URL+"/auth/login", "", map[string]string{
			"email": userEmail, "password": "wrong", "tenantId": tenantID,
		})
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d", i+1, resp.StatusCode)
		}
	}
	if got := users.byID["user-1"].Status; got != authcore.StatusLocked {
		t.Fatalf("status = %q, want LOCKED", got)
	}

	// The right password no longer helps.
	resp, body := postJSON(t, srv.URL+"/auth/login", "", map[string]string{
		"email": userEmail, "password": userPass, "tenantId": tenantID,
	})
	if resp.StatusCode != http.StatusUnauthorized || body["error"] != "account inactive" {
		t.Fatalf("locked login: status = %d, body = %v", resp.StatusCode, body)
	}
}

func TestRefreshEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)
	_, refresh := loginTokens(t, srv)

	resp, body := postJSON(t, srv.URL+"/auth/refresh", "", map[string]string{"refreshToken": refresh})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status = %d: %v", resp.StatusCode, body)
	}
	if access, _ := body["accessToken"].(string); access == "" {
		t.Fatalf("no accessToken in %v", body)
	}

	resp, _ = postJSON(t, srv.URL+"/auth/refresh", "", map[string]string{"refreshToken": "garbage"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage refresh status = %d", resp.StatusCode)
	}
}

func TestMFAOverHTTP(t *testing.T) {
	srv, _, _ := newTestServer(t)
	access, _ := loginTokens(t, srv)

	resp, body := postJSON(t, srv.URL+"/auth/mfa/setup", access, struct{}{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("setup status = %d: %v", resp.StatusCode, body)
	}
	secret, _ := body["secret"].(string)
	if secret == "" {
		t.Fatalf("no secret in %v", body)
	}

	code, err := totp.GenerateCode(secret, time.Now().UTC())
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	resp, _ = postJSON(t, srv.URL+"/auth/mfa/confirm", access, map[string]string{"code": code})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm status = %d", resp.StatusCode)
	}

	// A fresh login now requires the second factor.
	resp, body = postJSON(t, srv.URL+"/auth/login", "", map[string]string{
		"email": userEmail, "password": userPass, "tenantId": tenantID,
	})
	if resp.StatusCode != http.StatusOK || body["requiresMFA"] != true {
		t.Fatalf("gated login: status = %d, body = %v", resp.StatusCode, body)
	}
	mfaToken, _ := body["mfaToken"].(string)
	userID, _ := body["userId"].(string)

	code, err = totp.GenerateCode(secret, time.Now().UTC())
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	resp, body = postJSON(t, srv.URL+"/auth/mfa/verify", "", map[string]string{
		"userId": userID, "mfaToken": mfaToken, "mfaCode": code,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify status = %d: %v", resp.StatusCode, body)
	}
	if tok, _ := body["accessToken"].(string); tok == "" {
		t.Fatalf("no accessToken after MFA: %v", body)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, mr := newTestServer(t)

	resp, body := get(t, srv.URL+"/health", "")
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("health: status = %d, body = %v", resp.StatusCode, body)
	}

	mr.SetError("connection refused")
	resp, body = get(t, srv.URL+"/health", "")
	if resp.StatusCode != http.StatusServiceUnavailable || body["status"] != "degraded" {
		t.Fatalf("degraded health: status = %d, body = %v", resp.StatusCode, body)
	}
}
