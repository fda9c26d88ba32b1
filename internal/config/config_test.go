package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DATABASE", "healthsync.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.Equal(t, 1000, cfg.SyncLogCap)
	assert.Equal(t, 5, cfg.SyncIntervalDefault)
	assert.Equal(t, 50, cfg.SyncHistoryLimit)
	assert.True(t, cfg.AutoSyncEnabled)
	assert.False(t, cfg.NotifyDedup)
	assert.Equal(t, "Google Fit", cfg.ProviderName)
	assert.Equal(t, 10*time.Second, cfg.ProviderTimeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_TYPE", "MySQL")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_USER", "health")
	t.Setenv("DB_DATABASE", "healthsync")
	t.Setenv("SYNC_LOG_CAP", "25")
	t.Setenv("NOTIFY_DEDUP", "true")
	t.Setenv("PROVIDER_TIMEOUT", "3s")
	t.Setenv("DB_CONNECTION_LIMIT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.DBType)
	assert.Equal(t, 25, cfg.SyncLogCap)
	assert.True(t, cfg.NotifyDedup)
	assert.Equal(t, 3*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, 5, cfg.DBConnectionLimit, "unparseable ints fall back to the default")
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "missing database",
			env:  map[string]string{},
			want: "DB_DATABASE is required",
		},
		{
			name: "network db without host",
			env:  map[string]string{"DB_TYPE": "postgres", "DB_DATABASE": "hs", "DB_USER": "u"},
			want: "DB_HOST is required",
		},
		{
			name: "network db without user",
			env:  map[string]string{"DB_TYPE": "postgres", "DB_DATABASE": "hs", "DB_HOST": "h"},
			want: "DB_USER is required",
		},
		{
			name: "non-positive log cap",
			env:  map[string]string{"DB_DATABASE": "hs.db", "SYNC_LOG_CAP": "0"},
			want: "SYNC_LOG_CAP must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DB_DATABASE", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
