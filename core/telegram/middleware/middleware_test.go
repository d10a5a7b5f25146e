package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context
	update tele.Update
	store  map[string]any
	sent   []any
}

func newFakeContext(userID int64, upd tele.Update) *fakeContext {
	if upd.Message == nil && upd.Callback == nil {
		upd.Message = &tele.Message{Text: "hi"}
	}
	if upd.Message != nil {
		upd.Message.Sender = &tele.User{ID: userID}
		upd.Message.Chat = &tele.Chat{ID: userID, Type: tele.ChatPrivate}
	}
	if upd.Callback != nil {
		upd.Callback.Sender = &tele.User{ID: userID}
	}
	return &fakeContext{update: upd, store: map[string]any{}}
}

func (f *fakeContext) Update() tele.Update { return f.update }

func (f *fakeContext) Sender() *tele.User {
	switch {
	case f.update.Callback != nil:
		return f.update.Callback.Sender
	case f.update.Message != nil:
		return f.update.Message.Sender
	}
	return nil
}

func (f *fakeContext) Chat() *tele.Chat {
	if f.update.Message != nil {
		return f.update.Message.Chat
	}
	return nil
}

func (f *fakeContext) Text() string {
	if f.update.Message != nil {
		return f.update.Message.Text
	}
	return ""
}

func (f *fakeContext) Get(key string) any        { return f.store[key] }
func (f *fakeContext) Set(key string, value any) { f.store[key] = value }

func (f *fakeContext) Send(what any, opts ...any) error {
	f.sent = append(f.sent, what)
	return nil
}

func counting(calls *int) tele.HandlerFunc {
	return func(tele.Context) error {
		*calls++
		return nil
	}
}

func TestAdminOnlyMiddleware(t *testing.T) {
	var calls, rejected int
	mw := AdminOnlyMiddleware(AdminOptions{
		IsAdmin:  func(id int64) bool { return id == 1 },
		OnReject: counting(&rejected),
	})
	h := mw(counting(&calls))

	require.NoError(t, h(newFakeContext(1, tele.Update{})))
	require.NoError(t, h(newFakeContext(2, tele.Update{})))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, rejected)

	closed := AdminOnlyMiddleware(AdminOptions{})(counting(&calls))
	require.NoError(t, closed(newFakeContext(1, tele.Update{})))
	assert.Equal(t, 1, calls)
}

func TestRateLimitMiddleware(t *testing.T) {
	var calls, limited int
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Hour,
		Exclude:   map[string]struct{}{"callback": {}},
		OnLimited: counting(&limited),
	})
	h := mw(counting(&calls))

	require.NoError(t, h(newFakeContext(7, tele.Update{ID: 1})))
	require.NoError(t, h(newFakeContext(7, tele.Update{ID: 2})))
	require.NoError(t, h(newFakeContext(8, tele.Update{ID: 3})))
	require.NoError(t, h(newFakeContext(7, tele.Update{ID: 4, Callback: &tele.Callback{Data: "\fapt|1"}})))

	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, limited)
}

func TestRateLimitDisabled(t *testing.T) {
	var calls int
	h := RateLimitMiddleware(RateLimitOptions{})(counting(&calls))
	for i := 0; i < 3; i++ {
		require.NoError(t, h(newFakeContext(7, tele.Update{ID: i})))
	}
	assert.Equal(t, 3, calls)
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	err := h(newFakeContext(5, tele.Update{ID: 9}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	plain := errors.New("plain")
	assert.ErrorIs(t, RecoverMiddleware(func(tele.Context) error { return plain })(newFakeContext(5, tele.Update{})), plain)
}

func TestLoggerMiddlewareSetsRID(t *testing.T) {
	c := newFakeContext(3, tele.Update{ID: 77})
	var rid string
	h := LoggerMiddleware(func(c tele.Context) error {
		rid, _ = c.Get("rid").(string)
		return nil
	})
	require.NoError(t, h(c))
	assert.Equal(t, "77:3:3", rid)
	assert.IsType(t, time.Time{}, c.Get("update_start"))
}

func TestMessageMetrics(t *testing.T) {
	c := newFakeContext(3, tele.Update{})
	h := MessageMetricsMiddleware(func(c tele.Context) error {
		require.NoError(t, c.Send("one"))
		return c.Send("two", &tele.ReplyMarkup{})
	})
	require.NoError(t, h(c))
	msgs, kb := GetCounters(c)
	assert.Equal(t, 2, msgs)
	assert.True(t, kb)

	CountMessage(c, false)
	msgs, _ = GetCounters(c)
	assert.Equal(t, 3, msgs)
}
