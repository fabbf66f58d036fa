package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/petalsync/internal/models"
)

// chdirTemp переходит во временную директорию, чтобы .env из рабочей копии не влиял на тест
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadClient_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := LoadClient("")
	require.NoError(t, err)

	assert.Equal(t, models.RoleAdmin, cfg.Role)
	assert.Empty(t, cfg.SyncEndpoint)
	assert.Equal(t, defaultDBPath, cfg.DBPath)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Empty(t, cfg.SyncKeys)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadClient_Env(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PETAL_ROLE", "Storefront")
	t.Setenv("PETAL_SYNC_ENDPOINT", " https://sync.petals.shop ")
	t.Setenv("PETAL_POLL_INTERVAL", "5s")
	t.Setenv("PETAL_REQUEST_TIMEOUT", "10s")
	t.Setenv("PETAL_SYNC_KEYS", "orders,messages, stock")
	t.Setenv("PETAL_AUTH_TOKEN", "token-1")

	cfg, err := LoadClient("")
	require.NoError(t, err)

	assert.Equal(t, models.RoleStorefront, cfg.Role)
	assert.Equal(t, "https://sync.petals.shop", cfg.SyncEndpoint)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []models.SyncKey{models.KeyOrders, models.KeyMessages, models.KeyStock}, cfg.SyncKeys)
	assert.Equal(t, "token-1", cfg.AuthToken)
}

func TestLoadClient_DotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PETAL_DB_PATH=from-dotenv.db\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("PETAL_DB_PATH") })

	cfg, err := LoadClient("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv.db", cfg.DBPath)
}

func TestLoadClient_ConfigFile(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "client.yaml")
	content := "role: storefront\npoll_interval: 1m\nsync_keys:\n  - orders\n  - requests\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// переменные окружения важнее файла
	t.Setenv("PETAL_ROLE", "admin")

	cfg, err := LoadClient(path)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, cfg.Role)
	assert.Equal(t, time.Minute, cfg.PollInterval)
	assert.Equal(t, []models.SyncKey{models.KeyOrders, models.KeyRequests}, cfg.SyncKeys)
}

func TestLoadClient_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown role", map[string]string{"PETAL_ROLE": "cashier"}},
		{"unknown key", map[string]string{"PETAL_SYNC_KEYS": "orders,cart"}},
		{"zero interval", map[string]string{"PETAL_POLL_INTERVAL": "0s"}},
		{"negative timeout", map[string]string{"PETAL_REQUEST_TIMEOUT": "-1s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdirTemp(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadClient("")
			assert.Error(t, err)
		})
	}
}

func TestLoadClient_MissingConfigFile(t *testing.T) {
	chdirTemp(t)
	_, err := LoadClient("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestLoadServer(t *testing.T) {
	chdirTemp(t)

	cfg, err := LoadServer("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, defaultServerDBPath, cfg.DBPath)
	assert.Empty(t, cfg.JWTSecret)
	assert.Equal(t, defaultRateLimit, cfg.RateLimit)
	assert.Equal(t, defaultTokenTTL, cfg.TokenTTL)

	t.Setenv("PETAL_SERVER_ADDR", "127.0.0.1:9090")
	t.Setenv("PETAL_JWT_SECRET", "s3cret")
	t.Setenv("PETAL_RATE_LIMIT", "0")
	cfg, err = LoadServer("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", cfg.Addr)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Zero(t, cfg.RateLimit)
}

func TestLoadServer_InvalidRateLimit(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PETAL_RATE_LIMIT", "-1")

	_, err := LoadServer("")
	assert.Error(t, err)
}
