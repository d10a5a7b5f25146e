package flow

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/m3rciful/rentbot/internal/i18n"
	"github.com/m3rciful/rentbot/internal/model"
)

var languageLabels = map[string]string{
	model.LangRU: "🇷🇺 Русский",
	model.LangUZ: "🇺🇿 O'zbekcha",
}

func (m *Machine) languageMarkup() *Markup {
	row := make([]Button, 0, len(languageLabels))
	for _, lang := range m.tr.Languages() {
		label, ok := languageLabels[lang]
		if !ok {
			label = lang
		}
		row = append(row, Button{Text: label, Action: ActionLang, Payload: lang})
	}
	return &Markup{Kind: MarkupInline, Rows: [][]Button{row}}
}

func (m *Machine) askLanguage(st *step) {
	st.reply(st.t("lang.choose", nil), m.languageMarkup())
}

func (m *Machine) chooseLanguage(ctx context.Context, st *step) {
	lang := st.in.Event.Payload
	if !slices.Contains(m.tr.Languages(), lang) {
		st.answer(st.t("lang.invalid", nil), false)
		return
	}
	st.update("lang", func(u *model.User) error {
		u.Lang = lang
		return nil
	})
	st.setLang(lang)
	st.edit(st.t("lang.saved", nil), nil)
	if err := m.resume(ctx, st, false); err != nil && st.err == nil {
		st.err = err
	}
}

func (m *Machine) askPhone(st *step) {
	st.session.Await(PendingPhone)
	mk := &Markup{Kind: MarkupContact, Rows: [][]Button{{{Text: st.t("phone.share", nil)}}}}
	st.reply(st.t("phone.request", nil), mk)
}

// savePhone stores a shared contact. Only the sender's own contact is accepted
// when the contact carries a user id.
func (m *Machine) savePhone(ctx context.Context, st *step) error {
	ev := st.in.Event
	phone := strings.TrimSpace(ev.Phone)
	if phone == "" || (ev.ContactUserID != 0 && ev.ContactUserID != st.user.ID) {
		if st.user.Phone == "" {
			st.session.Await(PendingPhone)
			mk := &Markup{Kind: MarkupContact, Rows: [][]Button{{{Text: st.t("phone.share", nil)}}}}
			st.reply(st.t("phone.own_only", nil), mk)
			return nil
		}
		st.reply(st.t("phone.own_only", nil), nil)
		return nil
	}

	registering := st.user.Phone == ""
	st.update("phone", func(u *model.User) error {
		u.Phone = phone
		return nil
	})
	if registering {
		st.session.Await(PendingNone)
		st.reply(st.t("phone.saved", nil), &Markup{Kind: MarkupRemove})
		return m.resume(ctx, st, false)
	}
	st.session.Await(PendingNone)
	st.reply(st.t("profile.updated", nil), m.mainMenu(st))
	return nil
}

// startApartments opens the selection grid. edit reuses the tapped message.
func (m *Machine) startApartments(ctx context.Context, st *step, edit bool) error {
	if st.session.Pending != PendingApartments {
		st.session.Await(PendingApartments)
		st.session.Apartments = st.user.Apartments()
	}
	mk, err := m.apartmentGrid(ctx, st)
	if err != nil {
		return err
	}
	if edit {
		st.edit(st.t("apartments.choose_new", nil), mk)
		return nil
	}
	st.reply(st.t("apartments.choose", nil), mk)
	return nil
}

func (m *Machine) apartments(ctx context.Context, st *step) error {
	switch st.in.Event.Action {
	case ActionApartment:
		return m.toggleApartment(ctx, st)
	case ActionApartmentsClr:
		st.session.Apartments = nil
		mk, err := m.apartmentGrid(ctx, st)
		if err != nil {
			return err
		}
		st.editMarkup(mk)
	case ActionApartmentsOK:
		return m.confirmApartments(ctx, st)
	}
	return nil
}

func (m *Machine) toggleApartment(ctx context.Context, st *step) error {
	apt, ok := m.parseApartment(st.in.Event.Payload)
	if !ok {
		st.answer(st.t("apartments.invalid", nil), false)
		return nil
	}
	taken, err := m.takenApartments(ctx, st.user.ID)
	if err != nil {
		return err
	}
	if _, busy := taken[apt]; busy && !st.session.Selected(apt) {
		st.answer(st.t("apartments.taken", i18n.Vars{"apartment": apt}), true)
		return nil
	}
	st.session.Toggle(apt)
	st.editMarkup(m.renderGrid(st, taken))
	return nil
}

func (m *Machine) confirmApartments(ctx context.Context, st *step) error {
	selected := st.session.Apartments
	if len(selected) == 0 {
		st.answer(st.t("apartments.empty", nil), true)
		return nil
	}
	taken, err := m.takenApartments(ctx, st.user.ID)
	if err != nil {
		return err
	}
	var conflicts []string
	for _, apt := range selected {
		if _, busy := taken[apt]; busy {
			conflicts = append(conflicts, apt)
		}
	}
	if len(conflicts) > 0 {
		st.answer(st.t("apartments.conflict", i18n.Vars{"apartments": model.JoinApartments(conflicts)}), true)
		return nil
	}

	joined := model.JoinApartments(selected)
	st.update("apartment", func(u *model.User) error {
		u.Apartment = joined
		return nil
	})
	st.session.Await(PendingNone)
	st.edit(st.t("apartments.saved", i18n.Vars{"apartments": joined}), nil)
	st.reply(st.t("menu.hint", nil), m.mainMenu(st))
	return nil
}

func (m *Machine) parseApartment(raw string) (string, bool) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > m.opts.ApartmentCount {
		return "", false
	}
	return strconv.Itoa(n), true
}

// takenApartments lists apartments held by other users. It is empty unless
// apartments are exclusive.
func (m *Machine) takenApartments(ctx context.Context, self int64) (map[string]struct{}, error) {
	taken := make(map[string]struct{})
	if !m.opts.ExclusiveApartments {
		return taken, nil
	}
	users, err := m.dir.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("flow: load users: %w", err)
	}
	for _, u := range users {
		if u.ID == self {
			continue
		}
		for _, apt := range u.Apartments() {
			taken[apt] = struct{}{}
		}
	}
	return taken, nil
}

func (m *Machine) apartmentGrid(ctx context.Context, st *step) (*Markup, error) {
	taken, err := m.takenApartments(ctx, st.user.ID)
	if err != nil {
		return nil, err
	}
	return m.renderGrid(st, taken), nil
}

func (m *Machine) renderGrid(st *step, taken map[string]struct{}) *Markup {
	buttons := make([]Button, 0, m.opts.ApartmentCount)
	for n := 1; n <= m.opts.ApartmentCount; n++ {
		apt := strconv.Itoa(n)
		label := apt
		if st.session.Selected(apt) {
			label = "✅ " + apt
		} else if _, busy := taken[apt]; busy {
			label = "🔒 " + apt
		}
		buttons = append(buttons, Button{Text: label, Action: ActionApartment, Payload: apt})
	}
	rows := chunk(buttons, m.opts.ApartmentsPerRow)
	rows = append(rows, []Button{
		{Text: st.t("apartments.confirm", nil), Action: ActionApartmentsOK},
		{Text: st.t("apartments.clear", nil), Action: ActionApartmentsClr},
	})
	return &Markup{Kind: MarkupInline, Rows: rows}
}

func chunk(buttons []Button, n int) [][]Button {
	if n <= 0 {
		n = 1
	}
	rows := make([][]Button, 0, (len(buttons)+n-1)/n)
	for i := 0; i < len(buttons); i += n {
		rows = append(rows, buttons[i:min(i+n, len(buttons))])
	}
	return rows
}
