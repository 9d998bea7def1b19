package authcore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/oru-platform/authcore/password"
)

const (
	testTenant     = "tenant-1"
	testEmail      = "ops@acme.test"
	testPassword   = "correct horse battery staple"
	superEmail     = "artpromedia@oonru.ai"
	superPassword  = "platform-root-password"
	testPermission = "inventory.view"
)

type memoryUsers struct {
	mu        sync.Mutex
	byID      map[string]*Principal
	lastLogin map[string]time.Time
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{
		byID:      map[string]*Principal{},
		lastLogin: map[string]time.Time{},
	}
}

func (d *memoryUsers) add(p *Principal) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byID[p.ID] = p
}

func (d *memoryUsers) get(userID string) *Principal {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.byID[userID]
}

func (d *memoryUsers) FindPrincipal(_ context.Context, tenantID, email string) (*Principal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.byID {
		if p.TenantID == tenantID && p.Email == email {
			return p, nil
		}
	}
	return nil, nil
}

func (d *memoryUsers) FindPrincipalByID(_ context.Context, userID string) (*Principal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.byID[userID], nil
}

func (d *memoryUsers) UpdatePrincipal(_ context.Context, userID string, patch PrincipalPatch) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if patch.LastLogin != nil {
		d.lastLogin[userID] = *patch.LastLogin
	}
	if p, ok := d.byID[userID]; ok {
		applyPatch(p, patch)
	}
	return nil
}

func (d *memoryUsers) loggedInAt(userID string) (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ts, ok := d.lastLogin[userID]
	return ts, ok
}

func (d *memoryUsers) UpdatePrincipalByEmail(_ context.Context, tenantID, email string, patch PrincipalPatch) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.byID {
		if p.TenantID == tenantID && p.Email == email {
			applyPatch(p, patch)
		}
	}
	return nil
}

func applyPatch(p *Principal, patch PrincipalPatch) {
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

type memoryTenants struct {
	byID map[string]*Tenant
}

func (d *memoryTenants) FindTenant(_ context.Context, tenantID string) (*Tenant, error) {
	return d.byID[tenantID], nil
}

func newTestService(t *testing.T) (*Service, *memoryUsers, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	superHash, err := password.Hash(superPassword)
	if err != nil {
		t.Fatalf("hash super password: %v", err)
	}

	users := newMemoryUsers()
	tenants := &memoryTenants{byID: map[string]*Tenant{
		testTenant: {ID: testTenant, Name: "Acme", Status: "active"},
	}}

	svc, err := New(Config{
		AccessSecret: []byte("test-access-secret"),
		SuperAdmin: SuperAdminConfig{
			Email:        superEmail,
			PasswordHash: superHash,
		},
	}, Options{
		Users:   users,
		Tenants: tenants,
		Redis:   client,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc, users, mr
}

func seedUser(t *testing.T, users *memoryUsers, mutate func(*Principal)) *Principal {
	t.Helper()

	hash, err := password.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	p := &Principal{
		ID:           "user-1",
		TenantID:     testTenant,
		Email:        testEmail,
		FirstName:    "Omar",
		LastName:     "Reyes",
		PasswordHash: hash,
		Status:       "active",
		Role: &Role{
			ID:   "role-ops",
			Name: "Operator",
			Permissions: []Permission{
				{Resource: "Inventory", Action: "View"},
				{Resource: "inventory", Action: "update"},
			},
		},
	}
	if mutate != nil {
		mutate(p)
	}
	users.add(p)
	return p
}
