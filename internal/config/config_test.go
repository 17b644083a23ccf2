package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, LegacySigningSecret, cfg.Signing.Secret)
	assert.Equal(t, "legacy", cfg.Signing.Scheme)
	assert.EqualValues(t, 500, cfg.Catalog.RevenuePerTicket)
	assert.Equal(t, "2025 Global Summit", cfg.Event.Name)
	assert.Equal(t, []string{"http://localhost:5173", "http://127.0.0.1:5173"}, cfg.CORSOriginList())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ticketing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9090"
store:
  driver: redis
redis:
  addr: cache:6379
signing:
  secret: from-file
  scheme: hmac-sha256
catalog:
  revenue_per_ticket: 750
`), 0o600))

	t.Setenv("SIGNING_SECRET", "from-env")
	t.Setenv("EVENT_NAME", "Demo Day")

	cfg, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, StoreRedis, cfg.Store.Driver)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, "from-env", cfg.Signing.Secret, "env overrides file")
	assert.Equal(t, "hmac-sha256", cfg.Signing.Scheme)
	assert.EqualValues(t, 750, cfg.Catalog.RevenuePerTicket)
	assert.Equal(t, "Demo Day", cfg.Event.Name)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := Config{
		Store:   StoreConfig{Driver: StoreMemory},
		Signing: SigningConfig{Secret: "k", Scheme: "legacy"},
		Notify:  NotifyConfig{Driver: NotifyLog},
	}
	require.NoError(t, valid.Validate())

	tests := map[string]func(c *Config){
		"unknown store":     func(c *Config) { c.Store.Driver = "bolt" },
		"postgres no dsn":   func(c *Config) { c.Store.Driver = StorePostgres },
		"redis no addr":     func(c *Config) { c.Store.Driver = StoreRedis },
		"empty secret":      func(c *Config) { c.Signing.Secret = "" },
		"unknown scheme":    func(c *Config) { c.Signing.Scheme = "md5" },
		"smtp without host": func(c *Config) { c.Notify.Driver = NotifySMTP },
		"unknown notifier":  func(c *Config) { c.Notify.Driver = "sms" },
		"negative revenue":  func(c *Config) { c.Catalog.RevenuePerTicket = -1 },
	}
	for name, mutate := range tests {
		c := valid
		mutate(&c)
		assert.Error(t, c.Validate(), name)
	}
}
