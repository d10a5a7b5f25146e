package flow

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/rentbot/internal/i18n"
	"github.com/m3rciful/rentbot/internal/model"
)

// messageLimit keeps long listings under the Telegram message size.
const messageLimit = 3500

const (
	editApartment = "apartment"
	editLanguage  = "lang"
)

func (m *Machine) mainMenu(st *step) *Markup {
	label := func(item menuItem) Button {
		return Button{Text: st.t(menuKeys[item], nil)}
	}
	rows := [][]Button{
		{label(menuProfile), label(menuPayment)},
		{label(menuHistory), label(menuContact)},
		{label(menuSummary)},
	}
	if m.IsAdmin(st.user.ID) {
		rows = append(rows, []Button{label(menuUsers)})
	}
	return &Markup{Kind: MarkupReply, Rows: rows}
}

func (m *Machine) showProfile(st *step) {
	u := st.user
	none := st.t("profile.none", nil)
	text := st.t("profile.view", i18n.Vars{
		"firstName": orDefault(u.FirstName, none),
		"lastName":  orDefault(u.LastName, none),
		"apartment": orDefault(u.Apartment, none),
		"phone":     orDefault(u.Phone, none),
		"balance":   st.amount(u.Balance),
		"currency":  st.t("currency", nil),
	})
	edit := func(field string) []Button {
		return []Button{{Text: st.t("profile.edit."+field, nil), Action: ActionEdit, Payload: field}}
	}
	mk := &Markup{Kind: MarkupInline, Rows: [][]Button{
		edit(model.FieldFirstName),
		edit(model.FieldLastName),
		edit(editApartment),
		edit(model.FieldPhone),
		edit(editLanguage),
	}}
	st.reply(text, mk)
}

func (m *Machine) startEdit(ctx context.Context, st *step) error {
	field := st.in.Event.Payload
	switch field {
	case model.FieldFirstName, model.FieldLastName, model.FieldPhone:
		st.session.Await(PendingEditField)
		st.session.EditField = field
		st.reply(st.t("edit.prompt."+field, nil), nil)
	case editApartment:
		st.session.Await(PendingNone)
		return m.startApartments(ctx, st, true)
	case editLanguage:
		st.reply(st.t("lang.choose", nil), m.languageMarkup())
	default:
		st.answer(st.t("action.unknown", nil), false)
	}
	return nil
}

// applyEdit writes trimmed non-empty text into the pending field.
func (m *Machine) applyEdit(st *step, raw string) {
	value := strings.TrimSpace(raw)
	if value == "" {
		st.reply(st.t("profile.empty_value", nil), nil)
		return
	}
	field := st.session.EditField
	st.update("edit."+field, func(u *model.User) error {
		return u.SetField(field, value)
	})
	st.session.Await(PendingNone)
	st.reply(st.t("profile.updated", nil), m.mainMenu(st))
}

func (m *Machine) showHistory(st *step) {
	payments := st.user.Payments
	if len(payments) == 0 {
		st.reply(st.t("history.empty", nil), nil)
		return
	}
	currency := st.t("currency", nil)
	lines := make([]string, 0, len(payments))
	for i, p := range payments {
		lines = append(lines, st.t("history.item", i18n.Vars{
			"n":        i + 1,
			"month":    p.Month,
			"amount":   st.amount(p.Amount),
			"currency": currency,
			"date":     p.Date.Local().Format("02.01.2006 15:04"),
		}))
	}
	m.replyList(st, st.t("history.title", nil), lines)
}

func (m *Machine) showSummary(ctx context.Context, st *step) error {
	month := st.in.Now.Format(monthLayout)
	users, err := m.dir.Load(ctx)
	if err != nil {
		return fmt.Errorf("flow: load users: %w", err)
	}
	currency := st.t("currency", nil)
	var lines []string
	for _, u := range users {
		total, ok := u.MonthTotal(month)
		if !ok {
			continue
		}
		lines = append(lines, st.t("summary.item", i18n.Vars{
			"n":         len(lines) + 1,
			"name":      displayName(u),
			"apartment": orDefault(u.Apartment, "-"),
			"amount":    st.amount(total),
			"currency":  currency,
		}))
	}
	if len(lines) == 0 {
		st.reply(st.t("summary.empty", nil), nil)
		return nil
	}
	m.replyList(st, st.t("summary.title", i18n.Vars{"month": month}), lines)
	return nil
}

func (m *Machine) userList(ctx context.Context, st *step) error {
	if !m.IsAdmin(st.user.ID) {
		st.reply(st.t("review.admins_only", nil), nil)
		return nil
	}
	users, err := m.dir.Load(ctx)
	if err != nil {
		return fmt.Errorf("flow: load users: %w", err)
	}
	if len(users) == 0 {
		st.reply(st.t("users.empty", nil), nil)
		return nil
	}
	none := st.t("profile.none", nil)
	currency := st.t("currency", nil)
	lines := make([]string, 0, len(users))
	for i, u := range users {
		lines = append(lines, st.t("users.item", i18n.Vars{
			"n":         i + 1,
			"name":      displayName(u),
			"username":  orDefault(u.Username, "-"),
			"apartment": orDefault(u.Apartment, none),
			"phone":     orDefault(u.Phone, none),
			"balance":   st.amount(u.Balance),
			"currency":  currency,
		}))
	}
	m.replyList(st, st.t("users.title", i18n.Vars{"count": strconv.Itoa(len(users))}), lines)
	return nil
}

// replyList sends a header and entries, split into several messages when long.
func (m *Machine) replyList(st *step, header string, lines []string) {
	var b strings.Builder
	b.WriteString(header)
	for _, line := range lines {
		if b.Len()+len(line)+2 > messageLimit && b.Len() > 0 {
			st.reply(b.String(), nil)
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(line)
	}
	if b.Len() > 0 {
		st.reply(b.String(), nil)
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
