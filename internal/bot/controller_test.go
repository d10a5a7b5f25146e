package bot

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/rentbot/core/telegram/state"
	"github.com/m3rciful/rentbot/internal/flow"
	"github.com/m3rciful/rentbot/internal/i18n"
	"github.com/m3rciful/rentbot/internal/model"
	"github.com/m3rciful/rentbot/internal/store"
)

const (
	tenantID = int64(42)
	adminID  = int64(7)
	admin2ID = int64(8)
)

type sent struct {
	kind   string
	to     int64
	text   string
	fileID string
	markup *flow.Markup
	alert  bool
}

// recorder implements Replier and Sender.
type recorder struct {
	mu  sync.Mutex
	out []sent
	// failTo makes Notify and Forward to this user fail.
	failTo int64
}

func (r *recorder) add(s sent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.out = append(r.out, s)
}

func (r *recorder) Reply(_ context.Context, text string, mk *flow.Markup) error {
	r.add(sent{kind: "reply", text: text, markup: mk})
	return nil
}

func (r *recorder) Edit(_ context.Context, text string, mk *flow.Markup) error {
	r.add(sent{kind: "edit", text: text, markup: mk})
	return nil
}

func (r *recorder) EditMarkup(_ context.Context, mk *flow.Markup) error {
	r.add(sent{kind: "edit_markup", markup: mk})
	return nil
}

func (r *recorder) Answer(_ context.Context, text string, alert bool) error {
	r.add(sent{kind: "answer", text: text, alert: alert})
	return nil
}

func (r *recorder) Notify(_ context.Context, to int64, text string) error {
	if to == r.failTo {
		return errors.New("blocked by user")
	}
	r.add(sent{kind: "notify", to: to, text: text})
	return nil
}

func (r *recorder) Forward(_ context.Context, to int64, fileID, caption string, mk *flow.Markup) error {
	if to == r.failTo {
		return errors.New("chat not found")
	}
	r.add(sent{kind: "forward", to: to, text: caption, fileID: fileID, markup: mk})
	return nil
}

func (r *recorder) take(kind string) []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []sent
	for _, s := range r.out {
		if s.kind == kind {
			res = append(res, s)
		}
	}
	return res
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.out = nil
}

type fixture struct {
	t        *testing.T
	tr       *i18n.Bundle
	users    *store.FileStore
	sessions state.Store[flow.Session]
	ctrl     *Controller
}

func newFixture(t *testing.T, machine Stepper) *fixture {
	t.Helper()
	tr, err := i18n.New("ru")
	require.NoError(t, err)
	users := store.NewFileStore(filepath.Join(t.TempDir(), "users.json"))
	ledger, err := NewLedger(0, 0)
	require.NoError(t, err)
	if machine == nil {
		machine = flow.NewMachine(flow.Options{
			Admins:            []int64{adminID, admin2ID},
			CardNumber:        "8600 0000 0000 0000",
			MainAdminUsername: "@manager",
		}, flow.Deps{
			Translator: tr,
			Directory:  users,
			Ledger:     ledger,
			NewID:      NewSubmissionID,
		})
	}
	sessions := state.NewMemoryStore[flow.Session]()
	ctrl, err := NewController(ControllerOptions{
		Machine:   machine,
		Users:     users,
		Sessions:  sessions,
		Translate: func(lang, key string) string { return tr.T(lang, key, nil) },
		Now:       func() time.Time { return time.Date(2025, time.May, 3, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return &fixture{t: t, tr: tr, users: users, sessions: sessions, ctrl: ctrl}
}

func (f *fixture) handle(id int64, ev flow.Event, rec *recorder) error {
	return f.ctrl.Handle(context.Background(), Update{
		Profile: model.User{ID: id, FirstName: "Test", Username: "tester"},
		Event:   ev,
	}, rec, rec)
}

func (f *fixture) registered(id int64) {
	f.t.Helper()
	_, _, err := f.users.Ensure(context.Background(), model.User{
		ID: id, FirstName: "Aziz", Username: "aziz", Phone: "+998900000000", Apartment: "12", Lang: "ru",
	})
	require.NoError(f.t, err)
}

func TestHandleCreatesUserAndAsksLanguage(t *testing.T) {
	f := newFixture(t, nil)
	rec := &recorder{}

	require.NoError(t, f.handle(tenantID, flow.Event{Kind: flow.EventStart}, rec))

	u, err := f.users.Find(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, "tester", u.Username)
	assert.NotNil(t, u.Payments)

	replies := rec.take("reply")
	require.Len(t, replies, 1)
	assert.Equal(t, f.tr.T("ru", "lang.choose", nil), replies[0].text)
	require.NotNil(t, replies[0].markup)
	assert.Equal(t, flow.MarkupInline, replies[0].markup.Kind)
}

func TestHandlePaymentReviewRoundTrip(t *testing.T) {
	f := newFixture(t, nil)
	f.registered(tenantID)
	f.registered(adminID)
	rec := &recorder{failTo: admin2ID}
	ctx := context.Background()

	require.NoError(t, f.handle(tenantID, flow.Event{Kind: flow.EventText, Text: f.tr.T("ru", "menu.payment", nil)}, rec))
	require.NoError(t, f.handle(tenantID, flow.Event{Kind: flow.EventCallback, Action: flow.ActionMonth, Payload: "2025-05"}, rec))
	require.NoError(t, f.handle(tenantID, flow.Event{Kind: flow.EventCallback, Action: flow.ActionAmount, Payload: "50000"}, rec))
	sess, ok := f.sessions.Get(tenantID)
	require.True(t, ok)
	assert.True(t, sess.PaymentReady())

	rec.reset()
	require.NoError(t, f.handle(tenantID, flow.Event{Kind: flow.EventPhoto, FileID: "file-1"}, rec))

	forwards := rec.take("forward")
	require.Len(t, forwards, 1, "failing admin must not block the others")
	assert.Equal(t, adminID, forwards[0].to)
	assert.Equal(t, "file-1", forwards[0].fileID)
	_, ok = f.sessions.Get(tenantID)
	assert.False(t, ok, "payment context is discarded after forwarding")

	approve := forwards[0].markup.Rows[0][0]
	require.Equal(t, flow.ActionApprove, approve.Action)
	rec.reset()
	require.NoError(t, f.handle(adminID, flow.Event{Kind: flow.EventCallback, Action: approve.Action, Payload: approve.Payload}, rec))

	u, err := f.users.Find(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), u.Balance)
	assert.True(t, u.IsPaid)
	require.Len(t, u.Payments, 1)
	assert.Equal(t, "2025-05", u.Payments[0].Month)

	notes := rec.take("notify")
	require.Len(t, notes, 1)
	assert.Equal(t, tenantID, notes[0].to)
	edits := rec.take("edit_markup")
	require.Len(t, edits, 1)
	assert.Nil(t, edits[0].markup)

	rec.reset()
	require.NoError(t, f.handle(adminID, flow.Event{Kind: flow.EventCallback, Action: approve.Action, Payload: approve.Payload}, rec))
	u, err = f.users.Find(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), u.Balance)
	assert.Empty(t, rec.take("notify"))
}

type stubMachine struct {
	step func(flow.Input) (flow.Output, error)
}

func (s stubMachine) Step(_ context.Context, in flow.Input) (flow.Output, error) {
	return s.step(in)
}

func TestHandleStepErrorKeepsSession(t *testing.T) {
	boom := errors.New("directory unavailable")
	f := newFixture(t, stubMachine{step: func(flow.Input) (flow.Output, error) {
		return flow.Output{}, boom
	}})
	f.sessions.Set(tenantID, flow.Session{Pending: flow.PendingCustomAmount, PaymentMonth: "2025-05"})
	rec := &recorder{}

	err := f.handle(tenantID, flow.Event{Kind: flow.EventText, Text: "100"}, rec)
	assert.ErrorIs(t, err, boom)

	sess, ok := f.sessions.Get(tenantID)
	require.True(t, ok)
	assert.Equal(t, flow.PendingCustomAmount, sess.Pending)
	replies := rec.take("reply")
	require.Len(t, replies, 1)
	assert.Equal(t, f.tr.T("ru", "error.generic", nil), replies[0].text)
}

func TestHandleMappedMutationFailure(t *testing.T) {
	f := newFixture(t, stubMachine{step: func(in flow.Input) (flow.Output, error) {
		return flow.Output{
			Mutations: []flow.Mutation{{
				UserID: 999,
				Name:   "payment.approve",
				Apply:  func(*model.User) error { return nil },
			}},
			Effects: []flow.Effect{{Kind: flow.EffectNotify, To: 999, Text: "approved"}},
			Failure: func(err error) []flow.Effect {
				if errors.Is(err, model.ErrNotFound) {
					return []flow.Effect{{Kind: flow.EffectAnswer, Text: "not found", Alert: true}}
				}
				return nil
			},
		}, nil
	}})
	f.registered(adminID)
	rec := &recorder{}

	require.NoError(t, f.handle(adminID, flow.Event{Kind: flow.EventCallback, Action: flow.ActionApprove}, rec))

	assert.Empty(t, rec.take("notify"))
	answers := rec.take("answer")
	require.Len(t, answers, 1)
	assert.Equal(t, "not found", answers[0].text)
}

func TestHandleUnexpectedMutationFailure(t *testing.T) {
	boom := errors.New("disk full")
	f := newFixture(t, stubMachine{step: func(in flow.Input) (flow.Output, error) {
		return flow.Output{
			Session: flow.Session{Pending: flow.PendingEditField, EditField: model.FieldPhone},
			Mutations: []flow.Mutation{{
				UserID: in.User.ID,
				Name:   "phone",
				Apply:  func(*model.User) error { return boom },
			}},
			Effects: []flow.Effect{{Kind: flow.EffectReply, Text: "saved"}},
		}, nil
	}})
	rec := &recorder{}

	err := f.handle(tenantID, flow.Event{Kind: flow.EventCallback, Action: flow.ActionEdit}, rec)
	assert.ErrorIs(t, err, boom)

	_, ok := f.sessions.Get(tenantID)
	assert.False(t, ok)
	assert.Empty(t, rec.take("reply"))
	answers := rec.take("answer")
	require.Len(t, answers, 1)
	assert.True(t, answers[0].alert)
}

func TestHandleSerializesSameSender(t *testing.T) {
	f := newFixture(t, stubMachine{step: func(in flow.Input) (flow.Output, error) {
		next := in.Session.Clone()
		time.Sleep(time.Millisecond)
		next.PaymentAmount++
		return flow.Output{Session: next}, nil
	}})
	rec := &recorder{}

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.handle(tenantID, flow.Event{Kind: flow.EventText, Text: "x"}, rec))
		}()
	}
	wg.Wait()

	sess, ok := f.sessions.Get(tenantID)
	require.True(t, ok)
	assert.Equal(t, int64(n), sess.PaymentAmount)
}

func TestHandleRejectsMissingSender(t *testing.T) {
	f := newFixture(t, nil)
	assert.Error(t, f.ctrl.Handle(context.Background(), Update{}, &recorder{}, &recorder{}))
}

func TestNewControllerValidates(t *testing.T) {
	_, err := NewController(ControllerOptions{})
	assert.Error(t, err)
}
