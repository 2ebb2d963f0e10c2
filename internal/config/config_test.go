package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "retailpos", cfg.App.Name)
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "RCP", cfg.Sales.ReceiptPrefix)
	assert.Equal(t, 5, cfg.Sales.StockAttempts)
	assert.Equal(t, 12*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, []string{"GET", "POST", "PUT", "OPTIONS"}, cfg.CORS.AllowedMethods)
	assert.Empty(t, cfg.CORS.AllowedHeaders)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORAGE_DRIVER", "MEMORY")
	t.Setenv("SALES_NUMBERING_STRATEGY", "cached")
	t.Setenv("WORKER_POLL_INTERVAL", "500ms")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://pos.example.com, https://admin.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, "cached", cfg.Sales.NumberingStrategy)
	assert.Equal(t, 500*time.Millisecond, cfg.Worker.PollInterval)
	assert.Equal(t, []string{"https://pos.example.com", "https://admin.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORAGE_DRIVER", "sqlite")

	_, err := Load()
	assert.Error(t, err)
}
