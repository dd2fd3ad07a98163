package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"10":     10 * time.Second,
		"5m":     5 * time.Minute,
		`"30s"`:  30 * time.Second,
		" '2h' ": 2 * time.Hour,
	}
	for in, want := range cases {
		got, err := parseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseDuration("")
	assert.Error(t, err)
	_, err = parseDuration("soon")
	assert.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CACHE_DIR", t.TempDir())
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "default-trip", cfg.Trip.ID)
	assert.Equal(t, 30*time.Second, cfg.Reminder.Interval.Duration())
	assert.Equal(t, "file", cfg.Cache.Backend)
	assert.False(t, cfg.Remote.HasRemote())
}

func TestLoadRedisURL(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("REDIS_URL", "redis://default:pw@localhost:6390/3")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6390", cfg.Redis.Addr)
	assert.Equal(t, "pw", cfg.Redis.Password)
	assert.Equal(t, 3, cfg.Redis.DB)
}

func TestLoadRedisBackendNeedsAddr(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "redis")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "sqlite")
	_, err := Load()
	assert.Error(t, err)
}

func TestRemoteConfigHasRemote(t *testing.T) {
	t.Setenv("REMOTE_URL", "postgres://db/trips")
	t.Setenv("REMOTE_KEY", "k")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Remote.HasRemote())
}
