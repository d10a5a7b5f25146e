package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
telegram:
  token: "123:abc"
`))
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, DriverFile, cfg.Storage.Driver)
	assert.Equal(t, DefaultUsersFile, cfg.Storage.UsersFile)
	assert.Equal(t, DefaultAdminConfig, cfg.AdminConfig)
	assert.Equal(t, DefaultLang, cfg.DefaultLang)
	assert.Equal(t, DefaultBroadcast, cfg.Broadcast.RatePerSecond)
	assert.False(t, cfg.UsesDatabase())
	assert.Same(t, &cfg.Config, cfg.CoreConfig())
}

func TestLoadFull(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
telegram:
  token: "t"
logging:
  level: debug
storage:
  driver: Postgres
database:
  host: db
  name: rent
payment:
  amounts: [30000, 60000]
  apartment_count: 40
  exclusive_apartments: true
sessions:
  ttl: 2h
`))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.UsesDatabase())
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, []int64{30000, 60000}, cfg.Payment.Amounts)
	assert.Equal(t, 40, cfg.Payment.ApartmentCount)
	assert.True(t, cfg.Payment.ExclusiveApartments)
	assert.Equal(t, 2*time.Hour, cfg.Sessions.TTL)
}

func TestLoadEnvOverlay(t *testing.T) {
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("USERS_FILE", "/data/users.json")
	t.Setenv("ADMIN_CONFIG", "/data/admins.json")
	cfg, err := Load(writeConfig(t, "telegram:\n  token: file\n"))
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Telegram.Token)
	assert.Equal(t, "/data/users.json", cfg.Storage.UsersFile)
	assert.Equal(t, "/data/admins.json", cfg.AdminConfig)
}

func TestLoadInvalid(t *testing.T) {
	cases := map[string]string{
		"no token":        "storage:\n  driver: file\n",
		"driver":          "telegram:\n  token: t\nstorage:\n  driver: redis\n",
		"postgres host":   "telegram:\n  token: t\nstorage:\n  driver: postgres\n",
		"amount":          "telegram:\n  token: t\npayment:\n  amounts: [0]\n",
		"negative rate":   "telegram:\n  token: t\nbroadcast:\n  rate_per_second: -1\n",
		"negative window": "telegram:\n  token: t\npayment:\n  apartment_count: -3\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}
