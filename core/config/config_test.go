package config

import (
	"os"
	"path/filepath"
	"testing"

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
	path := writeConfig(t, `
telegram:
  token: "123:abc"
rate_limit:
  interval_ms: 500
  exclude_updates: [" Callback "]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, []string{UpdateCallback}, cfg.RateLimit.ExcludeUpdates)
	assert.False(t, cfg.Sentry.Enabled())
	assert.Empty(t, cfg.Health.Listen)
}

func TestLoadEnvOverlay(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "from-file"
sentry:
  dsn: ""
`)
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("SENTRY_DSN", "https://key@example.com/1")
	t.Setenv("HEALTH_LISTEN", ":8081")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.True(t, cfg.Sentry.Enabled())
	assert.Equal(t, 1.0, cfg.Sentry.SampleRate)
	assert.Equal(t, ":8081", cfg.Health.Listen)
}

func TestNormalizeErrors(t *testing.T) {
	cases := map[string]Config{
		"missing token": {},
		"bad run mode":  {Telegram: TelegramConfig{Token: "t", RunMode: "push"}},
		"webhook url":   {Telegram: TelegramConfig{Token: "t", RunMode: RunModeWebhook}},
		"webhook port": {
			Telegram: TelegramConfig{Token: "t", RunMode: RunModeWebhook},
			Webhook:  WebhookConfig{URL: "https://example.com", Listen: "0.0.0.0"},
		},
		"negative timeout": {Telegram: TelegramConfig{Token: "t", LongPollTimeoutSeconds: -1}},
		"bad exclusion": {
			Telegram:  TelegramConfig{Token: "t"},
			RateLimit: RateLimitConfig{ExcludeUpdates: []string{"photo"}},
		},
		"sample rate": {
			Telegram: TelegramConfig{Token: "t"},
			Sentry:   SentryConfig{DSN: "x", SampleRate: 2},
		},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, Normalize(&cfg))
		})
	}
	assert.Error(t, Normalize(nil))
}

func TestNormalizePollingAlias(t *testing.T) {
	cfg := Config{Telegram: TelegramConfig{Token: "t", RunMode: " Polling "}}
	require.NoError(t, Normalize(&cfg))
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
