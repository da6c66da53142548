package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestAuthMetrics_Observe(t *testing.T) {
	m := New()

	m.ObserveLogin(LoginOK)
	m.ObserveLogin(LoginBlocked)
	m.ObserveTokenIssued("access")
	m.ObserveRevocation()
	m.ObserveRegistration()
	m.ObservePasswordHash(0.05)
	m.ObservePasswordHash(0.07)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.LoginAttempts.WithLabelValues(LoginOK)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.LoginAttempts.WithLabelValues(LoginBlocked)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TokensIssued.WithLabelValues("access")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TokensRevoked))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Registrations))
	assert.Equal(t, 1, testutil.CollectAndCount(m.PasswordHash, "meridian_auth_password_hash_seconds"))
}

func TestAuthMetrics_NilSafe(t *testing.T) {
	var m *AuthMetrics

	assert.NotPanics(t, func() {
		m.ObserveLogin(LoginOK)
		m.ObserveTokenIssued("access")
		m.ObserveRevocation()
		m.ObserveRegistration()
		m.ObservePasswordHash(0.05)
	})
}
