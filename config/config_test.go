package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaultsFillsZeroValues(t *testing.T) {
	var c AppConfig
	applyDefaults(&c)

	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, "mysql", c.DBDriver)
	assert.Equal(t, 30, c.AccessTokenTTLMinutes)
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
	assert.Equal(t, []string{"ADMIN"}, c.MaintenanceAllowedRoles)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("ADMIN_USERNAMES", " alice, bob ,,")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "120")

	c := AppConfig{DBDriver: "mysql"}
	applyEnvOverrides(&c)

	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, []string{"alice", "bob"}, c.AdminUsernames)
	assert.Equal(t, 120, c.RateLimitPerMinute)
}

func TestSetReplacesCachedConfig(t *testing.T) {
	Set(AppConfig{JWTSecret: "s3cret", AppPort: "9000"})

	got := Get()
	require.Equal(t, "s3cret", got.JWTSecret)
	require.Equal(t, "9000", got.AppPort)
	require.Equal(t, "release", got.GinMode)
}
