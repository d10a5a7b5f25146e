// Package flow holds the conversation state machine of the bot. Machine.Step
// maps the sender's session, stored record and inbound event to a new session,
// record mutations and outbound effects without touching the transport.
package flow

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/m3rciful/rentbot/core/logger"
	"github.com/m3rciful/rentbot/internal/i18n"
	"github.com/m3rciful/rentbot/internal/model"
)

const component = "flow"

// Defaults applied by NewMachine to zero options.
const (
	DefaultApartmentCount   = 90
	DefaultApartmentsPerRow = 6
)

// DefaultAmounts are the fixed payment buttons.
var DefaultAmounts = []int64{50000, 100000}

// Translator renders localized texts.
type Translator interface {
	T(lang, key string, vars i18n.Vars) string
	Amount(lang string, n int64) string
	Languages() []string
	Default() string
}

// Directory gives read access to other users' records.
type Directory interface {
	Load(ctx context.Context) ([]model.User, error)
	Find(ctx context.Context, id int64) (model.User, error)
}

// Ledger records which administrator reviewed a submission first.
type Ledger interface {
	// Claim returns true for the first caller of a submission and the id of the
	// administrator holding it.
	Claim(submission string, admin int64) (owner int64, claimed bool)
	// Release forgets a claim whose review could not be recorded.
	Release(submission string)
}

// Options configure the conversation.
type Options struct {
	Admins              []int64
	CardNumber          string
	MainAdminUsername   string
	Amounts             []int64
	ApartmentCount      int
	ApartmentsPerRow    int
	ExclusiveApartments bool
	// AdminLang is the language of texts sent to administrators.
	AdminLang string
}

// Deps are the collaborators of the machine.
type Deps struct {
	Translator Translator
	Directory  Directory
	Ledger     Ledger
	NewID      func() string
}

type menuItem int

const (
	menuNone menuItem = iota
	menuProfile
	menuPayment
	menuHistory
	menuContact
	menuSummary
	menuUsers
)

var menuKeys = map[menuItem]string{
	menuProfile: "menu.profile",
	menuPayment: "menu.payment",
	menuHistory: "menu.history",
	menuContact: "menu.contact",
	menuSummary: "menu.summary",
	menuUsers:   "menu.users",
}

// Machine is the conversation state machine. It is safe for concurrent use as
// long as callers serialize steps of the same sender.
type Machine struct {
	opts   Options
	tr     Translator
	dir    Directory
	ledger Ledger
	newID  func() string
	admins map[int64]struct{}
	labels map[string]menuItem
}

// NewMachine builds a machine and its menu label table.
func NewMachine(opts Options, deps Deps) *Machine {
	if len(opts.Amounts) == 0 {
		opts.Amounts = slices.Clone(DefaultAmounts)
	}
	if opts.ApartmentCount <= 0 {
		opts.ApartmentCount = DefaultApartmentCount
	}
	if opts.ApartmentsPerRow <= 0 {
		opts.ApartmentsPerRow = DefaultApartmentsPerRow
	}
	if opts.AdminLang == "" {
		opts.AdminLang = deps.Translator.Default()
	}
	m := &Machine{
		opts:   opts,
		tr:     deps.Translator,
		dir:    deps.Directory,
		ledger: deps.Ledger,
		newID:  deps.NewID,
		admins: make(map[int64]struct{}, len(opts.Admins)),
		labels: make(map[string]menuItem),
	}
	for _, id := range opts.Admins {
		m.admins[id] = struct{}{}
	}
	for _, lang := range m.tr.Languages() {
		for item, key := range menuKeys {
			m.labels[m.tr.T(lang, key, nil)] = item
		}
	}
	return m
}

// IsAdmin reports whether id is a configured administrator.
func (m *Machine) IsAdmin(id int64) bool {
	_, ok := m.admins[id]
	return ok
}

// Step computes the transition for one inbound event.
func (m *Machine) Step(ctx context.Context, in Input) (Output, error) {
	st := m.begin(in)
	var err error

	ev := in.Event
	switch {
	case ev.Kind == EventCallback && (ev.Action == ActionApprove || ev.Action == ActionDecline):
		err = m.review(ctx, st)
	case ev.Kind == EventUsers:
		err = m.userList(ctx, st)
	case ev.Kind == EventStart:
		st.session.Reset()
		err = m.resume(ctx, st, true)
	case ev.Kind == EventCallback && ev.Action == ActionLang:
		m.chooseLanguage(ctx, st)
	default:
		err = m.route(ctx, st)
	}
	if err == nil {
		err = st.err
	}
	if err != nil {
		return Output{}, err
	}

	st.out.Session = st.session
	logger.Debug(ctx, component, "step",
		slog.Int64("user_id", in.User.ID),
		slog.String("kind", ev.Kind.String()),
		slog.String("action", ev.Action),
		slog.String("session", st.session.String()),
		slog.Int("mutations", len(st.out.Mutations)),
		slog.Int("effects", len(st.out.Effects)),
	)
	return st.out, nil
}

// route walks the registration gates and then dispatches to the main menu.
func (m *Machine) route(ctx context.Context, st *step) error {
	u := st.user
	ev := st.in.Event
	switch {
	case u.Lang == "":
		m.askLanguage(st)
	case u.Phone == "":
		if ev.Kind == EventContact {
			return m.savePhone(ctx, st)
		}
		m.askPhone(st)
	case isApartmentAction(ev) && st.session.Pending == PendingApartments:
		return m.apartments(ctx, st)
	case u.Apartment == "":
		if isApartmentAction(ev) {
			st.answer(st.t("session.expired", nil), false)
		}
		return m.startApartments(ctx, st, false)
	default:
		return m.menu(ctx, st)
	}
	return nil
}

// resume emits the prompt for the first unfinished registration step, or the
// main menu when registration is complete.
func (m *Machine) resume(ctx context.Context, st *step, greet bool) error {
	u := st.user
	if u.Registered() {
		if greet {
			st.reply(st.t("menu.welcome_back", i18n.Vars{"name": displayName(u)}), m.mainMenu(st))
		} else {
			st.reply(st.t("menu.hint", nil), m.mainMenu(st))
		}
		return nil
	}
	switch {
	case u.Lang == "":
		m.askLanguage(st)
	case u.Phone == "":
		m.askPhone(st)
	default:
		return m.startApartments(ctx, st, false)
	}
	return nil
}

func (m *Machine) menu(ctx context.Context, st *step) error {
	ev := st.in.Event
	switch ev.Kind {
	case EventHelp:
		st.reply(st.t("help.text", nil), m.mainMenu(st))
	case EventContact:
		return m.savePhone(ctx, st)
	case EventPhoto:
		m.submitPhoto(st)
	case EventDocument:
		st.reply(st.t("payment.photo_only", nil), nil)
	case EventCallback:
		return m.callback(ctx, st)
	case EventText:
		return m.text(ctx, st)
	}
	return nil
}

func (m *Machine) callback(ctx context.Context, st *step) error {
	ev := st.in.Event
	switch ev.Action {
	case ActionMonth:
		m.chooseMonth(st)
	case ActionAmount:
		m.chooseAmount(st)
	case ActionEdit:
		return m.startEdit(ctx, st)
	case ActionApartment, ActionApartmentsOK, ActionApartmentsClr:
		st.answer(st.t("session.expired", nil), false)
	default:
		st.answer(st.t("action.unknown", nil), false)
	}
	return nil
}

// text applies the free-text priority: custom amount, field edit, menu label,
// unrecognized.
func (m *Machine) text(ctx context.Context, st *step) error {
	raw := st.in.Event.Text
	switch st.session.Pending {
	case PendingCustomAmount:
		m.customAmount(st, raw)
		return nil
	case PendingEditField:
		m.applyEdit(st, raw)
		return nil
	}

	item := m.labels[strings.TrimSpace(raw)]
	if item != menuNone {
		st.session.Await(PendingNone)
	}
	switch item {
	case menuProfile:
		m.showProfile(st)
	case menuPayment:
		m.startPayment(st)
	case menuHistory:
		m.showHistory(st)
	case menuContact:
		st.reply(st.t("contact.admin", i18n.Vars{"admin": m.opts.MainAdminUsername}), nil)
	case menuSummary:
		return m.showSummary(ctx, st)
	case menuUsers:
		return m.userList(ctx, st)
	default:
		st.reply(st.t("menu.unrecognized", i18n.Vars{"text": raw}), m.mainMenu(st))
	}
	return nil
}

func isApartmentAction(ev Event) bool {
	if ev.Kind != EventCallback {
		return false
	}
	switch ev.Action {
	case ActionApartment, ActionApartmentsOK, ActionApartmentsClr:
		return true
	}
	return false
}

func displayName(u model.User) string {
	if name := u.FullName(); name != "" {
		return name
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return "-"
}
