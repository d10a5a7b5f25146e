package flow

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/rentbot/internal/i18n"
	"github.com/m3rciful/rentbot/internal/model"
)

const (
	monthLayout   = "2006-01"
	customPayload = "custom"
	monthsPerRow  = 3
)

// MaxAmount is the largest amount a single payment may carry.
const MaxAmount int64 = 999_999_999_999

// ParseAmount accepts a positive whole number written with ASCII digits only,
// up to MaxAmount.
func ParseAmount(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, model.NewError("payment", model.ErrInvalidAmount)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, model.NewError("payment", model.ErrInvalidAmount)
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("payment: %w: %w", model.ErrInvalidAmount, err)
	}
	if n <= 0 || n > MaxAmount {
		return 0, model.NewError("payment", model.ErrInvalidAmount)
	}
	return n, nil
}

func (m *Machine) startPayment(st *step) {
	st.session.ClearPayment()
	st.reply(st.t("payment.choose_month", nil), m.monthMarkup(st))
}

// monthMarkup lists the twelve months of the current year.
func (m *Machine) monthMarkup(st *step) *Markup {
	year := st.in.Now.Year()
	buttons := make([]Button, 0, 12)
	for month := time.January; month <= time.December; month++ {
		key := fmt.Sprintf("%d-%02d", year, int(month))
		label := st.t(fmt.Sprintf("month.%02d", int(month)), nil) + " " + strconv.Itoa(year)
		buttons = append(buttons, Button{Text: label, Action: ActionMonth, Payload: key})
	}
	return &Markup{Kind: MarkupInline, Rows: chunk(buttons, monthsPerRow)}
}

func (m *Machine) amountMarkup(st *step) *Markup {
	currency := st.t("currency", nil)
	rows := make([][]Button, 0, len(m.opts.Amounts)+1)
	for _, a := range m.opts.Amounts {
		rows = append(rows, []Button{{
			Text:    st.amount(a) + " " + currency,
			Action:  ActionAmount,
			Payload: strconv.FormatInt(a, 10),
		}})
	}
	rows = append(rows, []Button{{Text: st.t("payment.custom", nil), Action: ActionAmount, Payload: customPayload}})
	return &Markup{Kind: MarkupInline, Rows: rows}
}

func (m *Machine) chooseMonth(st *step) {
	month := st.in.Event.Payload
	if _, err := time.Parse(monthLayout, month); err != nil {
		st.answer(st.t("payment.invalid_month", nil), false)
		return
	}
	st.session.Await(PendingNone)
	st.session.PaymentMonth = month
	st.session.PaymentAmount = 0
	st.edit(st.t("payment.choose_amount", i18n.Vars{"month": month}), m.amountMarkup(st))
}

func (m *Machine) chooseAmount(st *step) {
	if st.session.PaymentMonth == "" {
		st.reply(st.t("payment.month_first", nil), m.monthMarkup(st))
		return
	}
	payload := st.in.Event.Payload
	if payload == customPayload {
		st.session.Await(PendingCustomAmount)
		st.session.PaymentAmount = 0
		st.reply(st.t("payment.enter_amount", nil), nil)
		return
	}
	amount, err := ParseAmount(payload)
	if err != nil {
		st.answer(st.t("payment.invalid_amount", nil), false)
		return
	}
	st.session.Await(PendingNone)
	st.session.PaymentAmount = amount
	m.transferInstructions(st)
}

func (m *Machine) customAmount(st *step, raw string) {
	amount, err := ParseAmount(raw)
	if err != nil {
		st.reply(st.t("payment.invalid_amount", nil), nil)
		return
	}
	st.session.Await(PendingNone)
	st.session.PaymentAmount = amount
	m.transferInstructions(st)
}

func (m *Machine) transferInstructions(st *step) {
	st.reply(st.t("payment.transfer", i18n.Vars{
		"amount":   st.amount(st.session.PaymentAmount),
		"currency": st.t("currency", nil),
		"month":    st.session.PaymentMonth,
		"card":     m.opts.CardNumber,
	}), nil)
}

// submitPhoto forwards the screenshot to every administrator and forgets the
// payment context.
func (m *Machine) submitPhoto(st *step) {
	if !st.session.PaymentReady() || st.in.Event.FileID == "" {
		st.reply(st.t("payment.select_first", nil), nil)
		return
	}
	sub := review{
		Payer:      st.user.ID,
		Amount:     st.session.PaymentAmount,
		Month:      st.session.PaymentMonth,
		Submission: m.newID(),
	}
	lang := m.opts.AdminLang
	caption := m.tr.T(lang, "review.caption", i18n.Vars{
		"name":      displayName(st.user),
		"username":  orDefault(st.user.Username, "-"),
		"apartment": orDefault(st.user.Apartment, "-"),
		"month":     sub.Month,
		"amount":    m.tr.Amount(lang, sub.Amount),
		"currency":  m.tr.T(lang, "currency", nil),
	})
	payload := sub.encode()
	mk := &Markup{Kind: MarkupInline, Rows: [][]Button{{
		{Text: m.tr.T(lang, "review.approve", nil), Action: ActionApprove, Payload: payload},
		{Text: m.tr.T(lang, "review.decline", nil), Action: ActionDecline, Payload: payload},
	}}}
	for _, admin := range m.opts.Admins {
		st.forward(admin, st.in.Event.FileID, caption, mk)
	}
	st.session.Await(PendingNone)
	st.session.ClearPayment()
	st.reply(st.t("payment.forwarded", nil), nil)
}
