package middleware

import (
	"log/slog"
	"time"

	"github.com/maypok86/otter"

	coreconfig "github.com/m3rciful/rentbot/core/config"
	"github.com/m3rciful/rentbot/core/logger"
	tghelpers "github.com/m3rciful/rentbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const rateLimitCapacity = 100_000

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	Interval  time.Duration
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
}

// RateLimitMiddleware drops updates that arrive sooner than Interval after the
// previous accepted update of the same user. Seen users are kept in a TTL
// cache, so memory stays bounded however many users write.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	if opts.Interval <= 0 {
		return func(next tele.HandlerFunc) tele.HandlerFunc { return next }
	}
	seen, err := otter.MustBuilder[int64, struct{}](rateLimitCapacity).
		WithTTL(opts.Interval).
		Build()
	if err != nil {
		panic(err)
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil {
				return next(c)
			}
			if _, skip := opts.Exclude[updateKind(c.Update())]; skip {
				return next(c)
			}
			if seen.SetIfAbsent(user.ID, struct{}{}) {
				return next(c)
			}

			logger.Warn(tghelpers.BuildContext(c), "tg", "tg.rate_limit",
				slog.String("status", "rate_limited"),
				slog.Int64("user_id", user.ID),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}

func updateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return coreconfig.UpdateCallback
	case upd.Message != nil:
		return coreconfig.UpdateMessage
	case upd.Query != nil:
		return coreconfig.UpdateInlineQuery
	}
	return "other"
}
