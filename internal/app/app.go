// Package app wires configuration, storage, localization and the Telegram
// runtime into a runnable bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/rentbot/core/bootstrap"
	corecmd "github.com/m3rciful/rentbot/core/cmd"
	"github.com/m3rciful/rentbot/core/health"
	"github.com/m3rciful/rentbot/core/logger"
	coretelegram "github.com/m3rciful/rentbot/core/telegram"
	"github.com/m3rciful/rentbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/rentbot/core/telegram/helpers"
	"github.com/m3rciful/rentbot/core/telegram/sender"
	"github.com/m3rciful/rentbot/core/telegram/state"
	"github.com/m3rciful/rentbot/internal/admins"
	"github.com/m3rciful/rentbot/internal/bot"
	"github.com/m3rciful/rentbot/internal/config"
	"github.com/m3rciful/rentbot/internal/flow"
	"github.com/m3rciful/rentbot/internal/i18n"
	"github.com/m3rciful/rentbot/internal/store"
	"github.com/m3rciful/rentbot/migrations"
)

const component = "app"

// App holds the wired components of a running bot.
type App struct {
	cfg      *config.Config
	admins   admins.Config
	infra    *bootstrap.Result
	users    store.Users
	bundle   *i18n.Bundle
	sessions state.Store[flow.Session]
	telegram *bot.Telegram
}

// LoadConfig adapts config.Load to the runner.
func LoadConfig(path string) (corecmd.ConfigCarrier, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Bootstrap adapts New to the runner.
func Bootstrap(ctx context.Context, carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*config.Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	a, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// New initializes infrastructure and builds the conversation stack.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	adminCfg, err := admins.Load(cfg.AdminConfig)
	if err != nil {
		return nil, err
	}

	opts := bootstrap.Options{Config: cfg.CoreConfig()}
	if cfg.UsesDatabase() {
		db := cfg.Database
		opts.Database = &db
		opts.Migrations = migrations.FS
	}
	infra, err := bootstrap.Run(ctx, opts)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, admins: adminCfg, infra: infra}
	if err := a.build(); err != nil {
		_ = infra.Close()
		return nil, err
	}
	logger.Info(ctx, component, "wired",
		slog.String("storage", cfg.Storage.Driver),
		slog.Int("admins", len(adminCfg.Admins)),
		slog.String("default_lang", a.bundle.Default()),
	)
	return a, nil
}

func (a *App) build() error {
	bundle, err := i18n.New(a.cfg.DefaultLang)
	if err != nil {
		return err
	}
	a.bundle = bundle

	switch {
	case a.cfg.UsesDatabase():
		if a.infra.DB == nil {
			return errors.New("app: postgres driver selected but no database connection")
		}
		a.users = store.NewPostgres(a.infra.DB)
	default:
		a.users = store.NewFileStore(a.cfg.Storage.UsersFile)
	}

	sessions, err := state.NewCacheStore[flow.Session](a.cfg.Sessions.Capacity, a.cfg.Sessions.TTL)
	if err != nil {
		return err
	}
	a.sessions = sessions

	ledger, err := bot.NewLedger(0, 0)
	if err != nil {
		return err
	}

	machine := flow.NewMachine(flow.Options{
		Admins:              a.admins.Admins,
		CardNumber:          a.admins.CardNumber,
		MainAdminUsername:   a.admins.MainAdminUsername,
		Amounts:             a.cfg.Payment.Amounts,
		ApartmentCount:      a.cfg.Payment.ApartmentCount,
		ApartmentsPerRow:    a.cfg.Payment.ApartmentsPerRow,
		ExclusiveApartments: a.cfg.Payment.ExclusiveApartments,
	}, flow.Deps{
		Translator: bundle,
		Directory:  a.users,
		Ledger:     ledger,
		NewID:      bot.NewSubmissionID,
	})

	ctrl, err := bot.NewController(bot.ControllerOptions{
		Machine:       machine,
		Users:         a.users,
		Sessions:      sessions,
		Translate:     func(lang, key string) string { return bundle.T(lang, key, nil) },
		BroadcastRate: a.cfg.Broadcast.RatePerSecond,
	})
	if err != nil {
		return err
	}
	a.telegram = bot.NewTelegram(ctrl, a.admins.IsAdmin, a.notice("review.admins_only"))
	return nil
}

// TelegramRunOptions assembles registry, routes and lifecycle hooks.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	if err := a.telegram.Register(reg); err != nil {
		return coretelegram.RunOptions{}, err
	}

	core := a.cfg.CoreConfig()
	return coretelegram.RunOptions{
		Config:   core,
		Registry: reg,
		DispatcherOptions: sender.Options{
			QueueSize:  a.cfg.Broadcast.QueueSize,
			Workers:    a.cfg.Broadcast.Workers,
			MaxRetries: a.cfg.Broadcast.MaxRetries,
		},
		Middlewares: coretelegram.DefaultMiddlewares(core, a.notice("rate.limited")),
		Routes:      a.telegram.Routes(reg),
		Admins:      a.admins.Admins,
		OnStart:     a.onStart,
	}, nil
}

func (a *App) onStart(ctx context.Context, rt coretelegram.Runtime) error {
	if err := a.users.Ping(ctx); err != nil {
		return fmt.Errorf("app: user store unavailable: %w", err)
	}
	listen := a.cfg.Health.Listen
	if listen == "" {
		return nil
	}
	go func() {
		err := health.Serve(ctx, health.Options{
			Listen: listen,
			Probes: map[string]health.Probe{"store": a.users},
			Counters: func() map[string]uint64 {
				return map[string]uint64{
					"sessions":    uint64(a.sessions.Len()),
					"sent":        rt.Dispatcher.DoneCount(),
					"send_errors": rt.Dispatcher.ErrorCount(),
				}
			},
		})
		if err != nil {
			logger.Error(ctx, component, "health.serve",
				slog.String("status", "fail"),
				logger.Err(err),
			)
		}
	}()
	return nil
}

// notice replies with a fixed localized text in the sender's language.
func (a *App) notice(key string) tele.HandlerFunc {
	return func(c tele.Context) error {
		lang := a.bundle.Default()
		if s := c.Sender(); s != nil {
			if u, err := a.users.Find(tghelpers.BuildContext(c), s.ID); err == nil && u.Lang != "" {
				lang = u.Lang
			}
		}
		text := a.bundle.T(lang, key, nil)
		if c.Callback() != nil {
			return callbacks.Respond(c, &tele.CallbackResponse{Text: text})
		}
		return c.Send(text)
	}
}

// Close releases the database and flushes error reports.
func (a *App) Close() error {
	return a.infra.Close()
}
