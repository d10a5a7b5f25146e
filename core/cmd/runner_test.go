package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/rentbot/core/config"
	coretelegram "github.com/m3rciful/rentbot/core/telegram"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type app struct {
	closed bool
}

func (a *app) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{}, nil
}

func (a *app) Close() error {
	a.closed = true
	return nil
}

func TestRunLifecycle(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("RUNNER_TEST_VALUE=from-dotenv\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("RUNNER_TEST_VALUE") })
	t.Setenv("RUNNER_CONFIG", "cfg.yaml")

	a := &app{}
	var (
		gotPath   string
		started   bool
		stopped   bool
		loggerOff bool
	)
	err := Run(Options{
		ConfigEnvVar: "RUNNER_CONFIG",
		EnvFiles:     []string{envFile, filepath.Join(dir, "absent.env")},
		LoadConfig: func(path string) (ConfigCarrier, error) {
			gotPath = path
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(context.Context, ConfigCarrier) (TelegramApp, error) {
			assert.Equal(t, "from-dotenv", os.Getenv("RUNNER_TEST_VALUE"))
			return a, nil
		},
		ShutdownLogger: func() error {
			loggerOff = true
			return nil
		},
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			started = opts.OnStart(ctx, coretelegram.Runtime{}) == nil
			stopped = opts.OnStop(ctx, coretelegram.Runtime{}) == nil
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "cfg.yaml", gotPath)
	assert.True(t, started)
	assert.True(t, stopped)
	assert.True(t, a.closed)
	assert.True(t, loggerOff)
}

func TestRunBootstrapFailure(t *testing.T) {
	boom := errors.New("boom")
	loggerOff := false
	err := Run(Options{
		DefaultConfigPath: "cfg.yaml",
		EnvFiles:          []string{filepath.Join(t.TempDir(), "none.env")},
		LoadConfig: func(string) (ConfigCarrier, error) {
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(context.Context, ConfigCarrier) (TelegramApp, error) {
			return nil, boom
		},
		ShutdownLogger: func() error {
			loggerOff = true
			return nil
		},
	})
	assert.ErrorIs(t, err, boom)
	assert.True(t, loggerOff)
}

func TestRunRequiresConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	err := Run(Options{
		EnvFiles:   []string{filepath.Join(t.TempDir(), "none.env")},
		LoadConfig: func(string) (ConfigCarrier, error) { return nil, nil },
		Bootstrap:  func(context.Context, ConfigCarrier) (TelegramApp, error) { return nil, nil },
	})
	assert.Error(t, err)
}
