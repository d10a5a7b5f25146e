package middleware

import (
	"log/slog"
	"time"

	"github.com/maypok86/otter"

	"github.com/m3rciful/rentbot/core/logger"
	"github.com/m3rciful/rentbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/rentbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const (
	receiptCapacity = 4096
	receiptTTL      = 10 * time.Second
)

// receipts remembers recently logged update IDs. Routes wrap their handlers
// with LoggerMiddleware on top of the global chain, so one update passes
// through it more than once.
var receipts = newReceipts()

func newReceipts() otter.Cache[int, struct{}] {
	cache, err := otter.MustBuilder[int, struct{}](receiptCapacity).
		WithTTL(receiptTTL).
		Build()
	if err != nil {
		panic(err)
	}
	return cache
}

func alreadyLogged(updateID int) bool {
	return !receipts.SetIfAbsent(updateID, struct{}{})
}

// LoggerMiddleware sets the rid of the update and logs one receipt line per update.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		updateID, chatID, userID := tghelpers.UpdateIDs(c)
		if _, ok := c.Get("update_start").(time.Time); !ok {
			c.Set("update_start", time.Now())
		}
		ctx := tghelpers.BuildContext(c)

		if alreadyLogged(updateID) || !logger.ShouldSampleDebug() {
			return next(c)
		}

		attrs := []slog.Attr{
			slog.String("status", "ok"),
			slog.Int("update_id", updateID),
		}
		if chat := c.Chat(); chat != nil {
			attrs = append(attrs,
				slog.Int64("chat_id", chatID),
				slog.String("chat_type", string(chat.Type)),
			)
		}
		if user := c.Sender(); user != nil {
			attrs = append(attrs, slog.Int64("user_id", userID))
			if user.Username != "" {
				attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
			}
			if user.LanguageCode != "" {
				attrs = append(attrs, slog.String("lang", user.LanguageCode))
			}
		}

		upd := c.Update()
		switch {
		case upd.Callback != nil:
			key, payload := callbacks.ParseCallbackData(upd.Callback)
			if key != "" {
				attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
			}
			if payload != "" {
				attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 256)))
			}
		case upd.Message != nil:
			if t := c.Text(); t != "" {
				attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 256)))
			}
			if upd.Message.Contact != nil {
				attrs = append(attrs, slog.String("kind", "contact"))
			}
			if upd.Message.Photo != nil {
				attrs = append(attrs, slog.String("kind", "photo"))
			}
		}
		logger.LogEvent(ctx, logger.Component("tg"), slog.LevelDebug, "update.received", attrs...)

		return next(c)
	}
}
