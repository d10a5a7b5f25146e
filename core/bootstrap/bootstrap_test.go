package bootstrap

import (
	"context"
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/rentbot/core/config"
	coredatabase "github.com/m3rciful/rentbot/core/database"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunWithoutDatabase(t *testing.T) {
	connected := false
	res, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		LoggerInit: noLogger,
		Connect: func(context.Context, coredatabase.Config) (*sqlx.DB, error) {
			connected = true
			return nil, nil
		},
	})
	require.NoError(t, err)
	assert.False(t, connected)
	assert.Nil(t, res.DB)
	assert.NoError(t, res.Close())
}

func TestRunNilConfig(t *testing.T) {
	_, err := Run(context.Background(), Options{})
	assert.Error(t, err)
}

func TestRunLoggerFailure(t *testing.T) {
	boom := errors.New("boom")
	_, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error { return boom },
	})
	assert.ErrorIs(t, err, boom)
}

func TestRunConnectFailure(t *testing.T) {
	boom := errors.New("refused")
	migrated := false
	_, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		Database:   &coredatabase.Config{Host: "db"},
		Migrations: fstest.MapFS{},
		LoggerInit: noLogger,
		Connect: func(context.Context, coredatabase.Config) (*sqlx.DB, error) {
			return nil, boom
		},
		Migrate: func(context.Context, coredatabase.Config, fs.FS) error {
			migrated = true
			return nil
		},
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, migrated)
}

func TestRunSentry(t *testing.T) {
	var got coreconfig.SentryConfig
	cfg := &coreconfig.Config{Sentry: coreconfig.SentryConfig{DSN: "https://k@example.com/1", SampleRate: 0.5}}
	res, err := Run(context.Background(), Options{
		Config:     cfg,
		LoggerInit: noLogger,
		SentryInit: func(c coreconfig.SentryConfig) error {
			got = c
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 0.5, got.SampleRate)
	assert.True(t, res.sentry)
}
