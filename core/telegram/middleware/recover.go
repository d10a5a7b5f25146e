package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/getsentry/sentry-go"

	"github.com/m3rciful/rentbot/core/logger"
	tghelpers "github.com/m3rciful/rentbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RecoverMiddleware turns a handler panic into a logged error. The panic is
// also reported to Sentry, which is a no-op when Sentry is not initialised.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			ctx := tghelpers.BuildContext(c)
			attrs := []slog.Attr{
				slog.String("status", "fail"),
				slog.Any("err", r),
			}
			if logger.StacksEnabled() {
				attrs = append(attrs, slog.String("stack", string(debug.Stack())))
			}
			logger.Error(ctx, "tg", "tg.panic", attrs...)

			hub := sentry.CurrentHub().Clone()
			hub.ConfigureScope(func(scope *sentry.Scope) {
				scope.SetTag("rid", logger.RIDFrom(ctx))
				scope.SetTag("handler", logger.HandlerFrom(ctx))
				if user := c.Sender(); user != nil {
					scope.SetUser(sentry.User{ID: fmt.Sprint(user.ID), Username: user.Username})
				}
			})
			hub.Recover(r)
			err = fmt.Errorf("telegram: handler panic: %v", r)
		}()
		return next(c)
	}
}
