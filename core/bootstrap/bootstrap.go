package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/rentbot/core/buildinfo"
	coreconfig "github.com/m3rciful/rentbot/core/config"
	coredatabase "github.com/m3rciful/rentbot/core/database"
	"github.com/m3rciful/rentbot/core/logger"
)

const sentryFlushTimeout = 2 * time.Second

// Options control the generic bootstrap pipeline shared between bots.
type Options struct {
	Config *coreconfig.Config
	// Database is nil for bots without a relational store.
	Database   *coredatabase.Config
	Migrations fs.FS

	LoggerInit func(*coreconfig.Config) error
	SentryInit func(coreconfig.SentryConfig) error
	Connect    func(context.Context, coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(context.Context, coredatabase.Config, fs.FS) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	DB *sqlx.DB

	sentry bool
}

// Close flushes buffered error reports and closes the database.
func (r *Result) Close() error {
	if r == nil {
		return nil
	}
	if r.sentry {
		sentry.Flush(sentryFlushTimeout)
	}
	if r.DB != nil {
		return r.DB.Close()
	}
	return nil
}

// Run initializes the logger and error reporting, then connects to the
// database and applies migrations when one is configured.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	res := &Result{}
	if opts.Config.Sentry.Enabled() {
		sentryInit := opts.SentryInit
		if sentryInit == nil {
			sentryInit = InitSentry
		}
		if err := sentryInit(opts.Config.Sentry); err != nil {
			return nil, fmt.Errorf("bootstrap: sentry init failed: %w", err)
		}
		res.sentry = true
		logger.Info(ctx, "app", "sentry.init",
			slog.String("environment", opts.Config.Sentry.Environment),
			slog.Float64("sample_rate", opts.Config.Sentry.SampleRate),
		)
	}

	if opts.Database == nil {
		return res, nil
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(ctx, *opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	if opts.Migrations != nil {
		migrate := opts.Migrate
		if migrate == nil {
			migrate = coredatabase.RunMigrations
		}
		if err := migrate(ctx, *opts.Database, opts.Migrations); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
		}
	}

	res.DB = db
	return res, nil
}

// InitSentry configures the global sentry client.
func InitSentry(cfg coreconfig.SentryConfig) error {
	return sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		SampleRate:  cfg.SampleRate,
		Release:     buildinfo.Version,
	})
}
