package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// answeredKey marks a callback query that already got its answer.
const answeredKey = "cb_answered"

// ParseCallbackData splits Telebot's "\f<unique>|<payload>" encoding.
// Generic OnCallback handlers receive the raw form; handlers bound to a
// unique get Unique and Data already split.
func ParseCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	unique, payload, _ := strings.Cut(raw, "|")
	return strings.TrimSpace(unique), payload
}

// Respond answers the callback query and records that it was answered.
// Telegram accepts a single answer per query.
func Respond(c tele.Context, resp *tele.CallbackResponse) error {
	if c.Callback() == nil || Answered(c) {
		return nil
	}
	c.Set(answeredKey, true)
	if resp == nil {
		return c.Respond()
	}
	return c.Respond(resp)
}

// Answered reports whether Respond already ran for the current update.
func Answered(c tele.Context) bool {
	v, _ := c.Get(answeredKey).(bool)
	return v
}
