package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Login(ResultSuccess)
	m.Login(ResultSuccess)
	m.Login(ResultInvalidCredentials)
	m.MFA(ResultInvalid)
	m.Refresh(ResultExpired)
	m.Lockout()
	m.Logout()

	if got := testutil.ToFloat64(m.logins.WithLabelValues(ResultSuccess)); got != 2 {
		t.Fatalf("success logins = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.logins.WithLabelValues(ResultInvalidCredentials)); got != 1 {
		t.Fatalf("failed logins = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.lockouts); got != 1 {
		t.Fatalf("lockouts = %v, want 1", got)
	}
}

func TestNilReceiverIsNoOp(t *testing.T) {
	var m *Metrics
	m.Login(ResultSuccess)
	m.MFA(ResultSuccess)
	m.Refresh(ResultSuccess)
	m.Lockout()
	m.Logout()
}
