// Package bot runs the conversation machine against live updates: it loads
// the sender's record and session, applies the resulting mutations and
// delivers the outbound effects.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/ratelimit"

	"github.com/m3rciful/rentbot/core/logger"
	"github.com/m3rciful/rentbot/core/telegram/helpers"
	"github.com/m3rciful/rentbot/core/telegram/state"
	"github.com/m3rciful/rentbot/internal/flow"
	"github.com/m3rciful/rentbot/internal/model"
	"github.com/m3rciful/rentbot/internal/store"
)

const (
	component = "bot"
	lockSlots = 64
)

// Update is one inbound event together with the sender's profile as seen by
// the transport. Profile seeds the record of first-time senders.
type Update struct {
	Profile model.User
	Event   flow.Event
}

// Replier delivers effects addressed to the sender of the current update.
type Replier interface {
	Reply(ctx context.Context, text string, mk *flow.Markup) error
	Edit(ctx context.Context, text string, mk *flow.Markup) error
	EditMarkup(ctx context.Context, mk *flow.Markup) error
	Answer(ctx context.Context, text string, alert bool) error
}

// Sender delivers messages to arbitrary users.
type Sender interface {
	Notify(ctx context.Context, to int64, text string) error
	Forward(ctx context.Context, to int64, fileID, caption string, mk *flow.Markup) error
}

// Stepper computes one transition.
type Stepper interface {
	Step(ctx context.Context, in flow.Input) (flow.Output, error)
}

// ControllerOptions configure a Controller.
type ControllerOptions struct {
	Machine  Stepper
	Users    store.Users
	Sessions state.Store[flow.Session]
	// Translate renders the generic failure notice for a language.
	Translate func(lang, key string) string
	// BroadcastRate caps messages per second sent to other users. Zero
	// disables pacing.
	BroadcastRate int
	Now           func() time.Time
}

// Controller serializes updates per sender and drives the machine.
type Controller struct {
	machine   Stepper
	users     store.Users
	sessions  state.Store[flow.Session]
	translate func(lang, key string) string
	limiter   ratelimit.Limiter
	now       func() time.Time

	locks [lockSlots]sync.Mutex
}

// NewController validates options and builds a controller.
func NewController(opts ControllerOptions) (*Controller, error) {
	if opts.Machine == nil || opts.Users == nil || opts.Sessions == nil {
		return nil, errors.New("bot: machine, users and sessions are required")
	}
	c := &Controller{
		machine:   opts.Machine,
		users:     opts.Users,
		sessions:  opts.Sessions,
		translate: opts.Translate,
		limiter:   ratelimit.NewUnlimited(),
		now:       opts.Now,
	}
	if opts.BroadcastRate > 0 {
		c.limiter = ratelimit.New(opts.BroadcastRate)
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.translate == nil {
		c.translate = func(_, key string) string { return key }
	}
	return c, nil
}

func (c *Controller) lock(id int64) func() {
	mu := &c.locks[uint64(id)%lockSlots]
	mu.Lock()
	return mu.Unlock
}

// Handle processes one update. Effects for the sender are delivered before
// Handle returns; messages to other users are queued on the outbound
// dispatcher. The session is only replaced when the step succeeded.
func (c *Controller) Handle(ctx context.Context, upd Update, r Replier, s Sender) error {
	id := upd.Profile.ID
	if id == 0 {
		return errors.New("bot: update without sender")
	}
	defer c.lock(id)()

	defaults := upd.Profile.Clone()
	if defaults.Payments == nil {
		defaults.Payments = []model.Payment{}
	}
	user, _, err := c.users.Ensure(ctx, defaults)
	if err != nil {
		return c.fail(ctx, r, upd, "", fmt.Errorf("bot: ensure user: %w", err))
	}

	sess, _ := c.sessions.Get(id)
	out, err := c.machine.Step(ctx, flow.Input{
		Session: sess,
		User:    user,
		Event:   upd.Event,
		Now:     c.now(),
	})
	if err != nil {
		return c.fail(ctx, r, upd, user.Lang, fmt.Errorf("bot: step: %w", err))
	}

	effects := out.Effects
	for _, mu := range out.Mutations {
		if _, err := c.users.Update(ctx, mu.UserID, mu.Apply); err != nil {
			var mapped []flow.Effect
			if out.Failure != nil {
				mapped = out.Failure(err)
			}
			if mapped == nil {
				return c.fail(ctx, r, upd, user.Lang, fmt.Errorf("bot: apply %s: %w", mu.Name, err))
			}
			logger.Warn(ctx, component, "mutation.rejected",
				slog.String("action", mu.Name),
				slog.Int64("payer_id", mu.UserID),
				logger.Err(err),
			)
			effects = mapped
			break
		}
	}

	if out.Session.IsZero() {
		c.sessions.Clear(id)
	} else {
		c.sessions.Set(id, out.Session)
	}

	c.deliver(ctx, effects, r, s)
	return nil
}

func (c *Controller) deliver(ctx context.Context, effects []flow.Effect, r Replier, s Sender) {
	for _, e := range effects {
		var err error
		switch e.Kind {
		case flow.EffectReply:
			err = r.Reply(ctx, e.Text, e.Markup)
		case flow.EffectEdit:
			err = r.Edit(ctx, e.Text, e.Markup)
		case flow.EffectEditMarkup:
			err = r.EditMarkup(ctx, e.Markup)
		case flow.EffectAnswer:
			err = r.Answer(ctx, e.Text, e.Alert)
		case flow.EffectNotify:
			c.enqueue(ctx, "notify", "sendMessage", e.To, func() error {
				return s.Notify(ctx, e.To, e.Text)
			})
		case flow.EffectForward:
			c.enqueue(ctx, "review.forward", "sendPhoto", e.To, func() error {
				return s.Forward(ctx, e.To, e.FileID, e.Text, e.Markup)
			})
		}
		if err != nil {
			logger.Warn(ctx, component, "deliver",
				slog.String("status", "fail"),
				slog.String("kind", e.Kind.String()),
				logger.Err(err),
			)
		}
	}
}

// enqueue hands a message for another user to the outbound dispatcher. Every
// recipient is an independent job, so one failing recipient never blocks or
// fails the others.
func (c *Controller) enqueue(ctx context.Context, action, endpoint string, to int64, send func() error) {
	endpoint += ":" + strconv.FormatInt(to, 10)
	err := helpers.Enqueue(ctx, action, endpoint, func() error {
		c.limiter.Take()
		return send()
	})
	if err != nil {
		logger.Warn(ctx, component, action,
			slog.String("status", "fail"),
			slog.Int64("to", to),
			logger.Err(err),
		)
	}
}

// fail logs and reports an unexpected error and tells the sender to retry.
func (c *Controller) fail(ctx context.Context, r Replier, upd Update, lang string, err error) error {
	logger.Error(ctx, component, "handle",
		slog.String("status", "fail"),
		slog.String("kind", upd.Event.Kind.String()),
		slog.String("action", upd.Event.Action),
		logger.Err(err),
	)
	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetUser(sentry.User{
			ID:       strconv.FormatInt(upd.Profile.ID, 10),
			Username: upd.Profile.Username,
		})
		scope.SetTag("event_kind", upd.Event.Kind.String())
		if upd.Event.Action != "" {
			scope.SetTag("action", upd.Event.Action)
		}
	})
	hub.CaptureException(err)

	text := c.translate(lang, "error.generic")
	if upd.Event.Kind == flow.EventCallback {
		if aerr := r.Answer(ctx, text, true); aerr == nil {
			return err
		}
	}
	if rerr := r.Reply(ctx, text, nil); rerr != nil {
		logger.Warn(ctx, component, "deliver",
			slog.String("status", "fail"),
			slog.String("kind", "error_notice"),
			logger.Err(rerr),
		)
	}
	return err
}
