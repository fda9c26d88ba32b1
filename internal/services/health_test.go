package services

import (
	"errors"
	"testing"

	"github.com/localnerve/healthsync/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func swapPinger(t *testing.T, fn func(string) error) {
	t.Helper()
	prev := pinger
	pinger = fn
	t.Cleanup(func() { pinger = prev })
}

func TestHealthCheckHealthy(t *testing.T) {
	swapPinger(t, func(string) error { return nil })
	db := testutil.NewDB(t)

	result := HealthCheck(testutil.NewConfig(), db)

	assert.Equal(t, "healthy", result.Status)
	assert.Equal(t, "ok", result.Database)
	assert.Equal(t, "ok", result.Provider)
	assert.Equal(t, "sqlite", result.Details["database_type"])
	assert.Empty(t, result.ErrorMessage)
}

func TestHealthCheckProviderDegrades(t *testing.T) {
	swapPinger(t, func(string) error { return errors.New("connection refused") })
	db := testutil.NewDB(t)

	result := HealthCheck(testutil.NewConfig(), db)

	assert.Equal(t, "degraded", result.Status)
	assert.Equal(t, "ok", result.Database)
	assert.Equal(t, "unreachable", result.Provider)
	assert.Contains(t, result.ErrorMessage, "Google Fit ping failed")
}

func TestHealthCheckDatabaseDown(t *testing.T) {
	swapPinger(t, func(string) error { return nil })
	db := testutil.NewDB(t)
	sqlDB, err := db.DB()
	assert.NoError(t, err)
	assert.NoError(t, sqlDB.Close())

	result := HealthCheck(testutil.NewConfig(), db)

	assert.Equal(t, "unhealthy", result.Status)
	assert.Equal(t, "unreachable", result.Database)
	assert.Contains(t, result.ErrorMessage, "Database ping failed")
}
