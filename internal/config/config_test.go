package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL":   "sqlite:file:cfg?mode=memory&cache=shared",
		"JWT_SECRET":     "jwt",
		"SESSION_SECRET": "session",
	}
}

func TestParse_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := Parse(env.Options{Environment: baseEnv()})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "http://localhost:3000", cfg.FrontendURL)
	assert.Equal(t, "user_events", cfg.KafkaTopic)
	assert.Equal(t, "sso-access-log", cfg.ESIndex)
	assert.Equal(t, []string{"openid", "profile", "email"}, cfg.RefreshScopes)
	assert.False(t, cfg.RefreshPreserveScopes)
	assert.True(t, cfg.SecureCookies)
	assert.False(t, cfg.LDAP.Enabled())
	assert.Equal(t, 5*time.Second, cfg.LDAP.Timeout)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestParse_Overrides(t *testing.T) {
	t.Parallel()

	e := baseEnv()
	e["KAFKA_BROKERS"] = "k1:9092,k2:9092"
	e["LDAP_URL"] = "ldap://dc.example.com:389"
	e["LDAP_SEARCH_BASE"] = "dc=example,dc=com"
	e["LDAP_TIMEOUT"] = "2s"
	e["REFRESH_SCOPES"] = "openid"
	e["REFRESH_PRESERVE_SCOPES"] = "true"

	cfg, err := Parse(env.Options{Environment: e})
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.LDAP.Enabled())
	assert.Equal(t, "sAMAccountName", cfg.LDAP.UserAttribute)
	assert.Equal(t, 2*time.Second, cfg.LDAP.Timeout)
	assert.Equal(t, []string{"openid"}, cfg.RefreshScopes)
	assert.True(t, cfg.RefreshPreserveScopes)
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(map[string]string)
	}{
		{name: "missing database url", mutate: func(e map[string]string) { delete(e, "DATABASE_URL") }},
		{name: "missing jwt secret", mutate: func(e map[string]string) { delete(e, "JWT_SECRET") }},
		{name: "blank session secret", mutate: func(e map[string]string) { e["SESSION_SECRET"] = "  " }},
		{name: "relative frontend", mutate: func(e map[string]string) { e["FRONTEND_URL"] = "/app" }},
		{name: "ldap without base", mutate: func(e map[string]string) { e["LDAP_URL"] = "ldap://dc:389" }},
		{name: "zero burst", mutate: func(e map[string]string) { e["LOGIN_RATE_BURST"] = "0" }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := baseEnv()
			tt.mutate(e)
			_, err := Parse(env.Options{Environment: e})
			require.Error(t, err)
		})
	}
}
