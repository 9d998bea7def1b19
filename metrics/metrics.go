// Package metrics exposes Prometheus counters for authentication outcomes.
// A nil *Metrics is a valid no-op receiver so instrumentation stays optional.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Login outcome labels.
const (
	ResultSuccess            = "success"
	ResultInvalidCredentials = "invalid_credentials"
	ResultInactive           = "inactive"
	ResultMFARequired        = "mfa_required"
	ResultInvalid            = "invalid"
	ResultExpired            = "expired"
)

// Metrics holds the counter families registered for the auth service.
type Metrics struct {
	logins    *prometheus.CounterVec
	mfa       *prometheus.CounterVec
	refreshes *prometheus.CounterVec
	lockouts  prometheus.Counter
	logouts   prometheus.Counter
}

// New registers the auth counter families on reg and returns the handle.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"result"}),
		mfa: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_mfa_verifications_total",
			Help: "MFA code verifications by outcome.",
		}, []string{"result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_token_refreshes_total",
			Help: "Access-token refreshes by outcome.",
		}, []string{"result"}),
		lockouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_account_lockouts_total",
			Help: "Accounts flipped to locked by the failed-login threshold.",
		}),
		logouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_logouts_total",
			Help: "Explicit session logouts.",
		}),
	}
	reg.MustRegister(m.logins, m.mfa, m.refreshes, m.lockouts, m.logouts)
	return m
}

// Login records a login attempt outcome.
func (m *Metrics) Login(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

// MFA records an MFA verification outcome.
func (m *Metrics) MFA(result string) {
	if m == nil {
		return
	}
	m.mfa.WithLabelValues(result).Inc()
}

// Refresh records a token refresh outcome.
func (m *Metrics) Refresh(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

// Lockout records an automatic account lock.
func (m *Metrics) Lockout() {
	if m == nil {
		return
	}
	m.lockouts.Inc()
}

// Logout records an explicit logout.
func (m *Metrics) Logout() {
	if m == nil {
		return
	}
	m.logouts.Inc()
}
