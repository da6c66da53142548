// Package metrics defines Prometheus collectors for Meridian Auth.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcome labels.
const (
	LoginOK                 = "success"
	LoginInvalidCredentials = "invalid_credentials"
	LoginBlocked            = "blocked"
	LoginNotActive          = "not_active"
)

// AuthMetrics holds the auth-related Prometheus collectors.
type AuthMetrics struct {
	registry *prometheus.Registry

	LoginAttempts *prometheus.CounterVec
	TokensIssued  *prometheus.CounterVec
	TokensRevoked prometheus.Counter
	Registrations prometheus.Counter
	PasswordHash  prometheus.Histogram
}

// New creates and registers the auth collectors on a fresh registry.
func New() *AuthMetrics {
	reg := prometheus.NewRegistry()

	m := &AuthMetrics{
		registry: reg,
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meridian",
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome.",
		}, []string{"result"}),
		TokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meridian",
			Subsystem: "auth",
			Name:      "tokens_issued_total",
			Help:      "JWTs issued by token type.",
		}, []string{"type"}),
		TokensRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "meridian",
			Subsystem: "auth",
			Name:      "tokens_revoked_total",
			Help:      "Tokens added to the deny-list.",
		}),
		Registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "meridian",
			Subsystem: "auth",
			Name:      "registrations_total",
			Help:      "Successful user registrations.",
		}),
		PasswordHash: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "meridian",
			Subsystem: "auth",
			Name:      "password_hash_seconds",
			Help:      "Time spent hashing passwords.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 8),
		}),
	}

	reg.MustRegister(m.LoginAttempts, m.TokensIssued, m.TokensRevoked, m.Registrations, m.PasswordHash)
	return m
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (m *AuthMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveLogin counts a login attempt by outcome. Nil-safe so services
// can run without metrics in tests.
func (m *AuthMetrics) ObserveLogin(result string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(result).Inc()
}

// ObserveTokenIssued counts an issued token. Nil-safe.
func (m *AuthMetrics) ObserveTokenIssued(tokenType string) {
	if m == nil {
		return
	}
	m.TokensIssued.WithLabelValues(tokenType).Inc()
}

// ObserveRegistration counts a successful registration. Nil-safe.
func (m *AuthMetrics) ObserveRegistration() {
	if m == nil {
		return
	}
	m.Registrations.Inc()
}

// ObserveRevocation counts a revoked token. Nil-safe.
func (m *AuthMetrics) ObserveRevocation() {
	if m == nil {
		return
	}
	m.TokensRevoked.Inc()
}

// ObservePasswordHash records time spent in a bcrypt operation. Nil-safe.
func (m *AuthMetrics) ObservePasswordHash(seconds float64) {
	if m == nil {
		return
	}
	m.PasswordHash.Observe(seconds)
}
