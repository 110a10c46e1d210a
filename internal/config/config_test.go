package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REDIS_DB", "")
	t.Setenv("APP_PORT", "")
	t.Setenv("CACHE_DASHBOARD_TTL_SECONDS", "")
	t.Setenv("SLA_SWEEP_CRON", "")
	t.Setenv("AUTH_ADMIN_EMAIL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, 60*time.Second, cfg.Cache.DashboardTTL())
	assert.Equal(t, "@every 5m", cfg.Scheduler.SLASweepSpec)
	assert.False(t, cfg.Auth.BootstrapAdmin())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("POSTGRES_MAX_CONNS", "not-a-number")
	t.Setenv("SLA_SWEEP_ENABLED", "false")
	t.Setenv("AUTH_ADMIN_EMAIL", "admin@isp.test")
	t.Setenv("AUTH_ADMIN_PASSWORD", "changeme123")
	t.Setenv("APP_TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.App.Port)
	assert.Equal(t, int32(10), cfg.Postgres.MaxConns)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.True(t, cfg.Auth.BootstrapAdmin())
	assert.Equal(t, "UTC", cfg.App.Location().String())
}

func TestLoadRejectsInvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "abc")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_DB")
}

func TestDurations(t *testing.T) {
	assert.Equal(t, time.Duration(0), AppConfig{}.RequestTimeout())
	assert.Equal(t, 2*time.Minute, AuthConfig{AccessTokenTTLMinutes: 2}.AccessTokenTTL())
	assert.Equal(t, time.UTC, AppConfig{Timezone: "Nowhere/Unknown"}.Location())
	assert.Equal(t, time.Duration(0), CacheConfig{}.DashboardTTL())
}
