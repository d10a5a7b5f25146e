package flow

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/rentbot/core/logger"
	"github.com/m3rciful/rentbot/internal/i18n"
	"github.com/m3rciful/rentbot/internal/model"
)

const reviewComponent = "review"

var errBadReview = errors.New("malformed review payload")

// review is the data carried by approve/decline buttons as
// <payer>_<amount>_<month>_<submission>.
type review struct {
	Payer      int64
	Amount     int64
	Month      string
	Submission string
}

func (r review) encode() string {
	return strconv.FormatInt(r.Payer, 10) + "_" +
		strconv.FormatInt(r.Amount, 10) + "_" +
		r.Month + "_" +
		r.Submission
}

func parseReview(payload string) (review, error) {
	parts := strings.Split(payload, "_")
	if len(parts) != 4 {
		return review{}, errBadReview
	}
	payer, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || payer <= 0 {
		return review{}, errBadReview
	}
	amount, err := ParseAmount(parts[1])
	if err != nil {
		return review{}, errBadReview
	}
	if _, err := time.Parse(monthLayout, parts[2]); err != nil {
		return review{}, errBadReview
	}
	if parts[3] == "" {
		return review{}, errBadReview
	}
	return review{Payer: payer, Amount: amount, Month: parts[2], Submission: parts[3]}, nil
}

// review handles approve and decline taps. The first administrator to claim a
// submission decides it; later taps are answered as already reviewed.
func (m *Machine) review(ctx context.Context, st *step) error {
	admin := st.user.ID
	if !m.IsAdmin(admin) {
		st.answer(st.t("review.admins_only", nil), true)
		return nil
	}
	r, err := parseReview(st.in.Event.Payload)
	if err != nil {
		st.answer(st.t("review.invalid", nil), true)
		return nil
	}

	payer, err := m.dir.Find(ctx, r.Payer)
	if errors.Is(err, model.ErrNotFound) {
		st.answer(st.t("review.user_not_found", nil), true)
		return nil
	}
	if err != nil {
		return err
	}
	if payer.HasSubmission(r.Submission) {
		st.answer(st.t("review.already", nil), true)
		st.editMarkup(nil)
		return nil
	}
	if owner, ok := m.ledger.Claim(r.Submission, admin); !ok {
		logger.Info(ctx, reviewComponent, "claim.lost",
			slog.String("submission", r.Submission),
			slog.Int64("admin_id", admin),
			slog.Int64("owner_id", owner),
		)
		st.answer(st.t("review.already", nil), true)
		st.editMarkup(nil)
		return nil
	}

	if st.in.Event.Action == ActionApprove {
		m.approve(ctx, st, r, payer)
	} else {
		m.decline(ctx, st, r, payer)
	}
	return nil
}

func (m *Machine) approve(ctx context.Context, st *step, r review, payer model.User) {
	entry := model.Payment{
		Month:      r.Month,
		Amount:     r.Amount,
		Date:       st.in.Now,
		Submission: r.Submission,
	}
	st.mutate(r.Payer, "payment.approve", func(u *model.User) error {
		return u.ApplyPayment(entry)
	})

	lang := payerLang(m, payer)
	st.notify(r.Payer, m.tr.T(lang, "payment.approved", i18n.Vars{
		"amount":   m.tr.Amount(lang, r.Amount),
		"currency": m.tr.T(lang, "currency", nil),
		"month":    r.Month,
		"balance":  m.tr.Amount(lang, payer.Balance+r.Amount),
	}))
	st.editMarkup(nil)
	st.reply(st.t("review.approved", i18n.Vars{
		"name":     displayName(payer),
		"amount":   st.amount(r.Amount),
		"currency": st.t("currency", nil),
		"month":    r.Month,
	}), nil)

	st.out.Failure = func(err error) []Effect {
		switch {
		case errors.Is(err, model.ErrAlreadyReviewed):
			return []Effect{{Kind: EffectAnswer, Text: st.t("review.already", nil), Alert: true}}
		case errors.Is(err, model.ErrNotFound):
			m.ledger.Release(r.Submission)
			return []Effect{{Kind: EffectAnswer, Text: st.t("review.user_not_found", nil), Alert: true}}
		}
		m.ledger.Release(r.Submission)
		return nil
	}
	logger.Info(ctx, reviewComponent, "approve",
		slog.String("submission", r.Submission),
		slog.Int64("admin_id", st.user.ID),
		slog.Int64("payer_id", r.Payer),
		slog.Int64("amount", r.Amount),
		slog.String("month", r.Month),
	)
}

func (m *Machine) decline(ctx context.Context, st *step, r review, payer model.User) {
	lang := payerLang(m, payer)
	st.notify(r.Payer, m.tr.T(lang, "payment.declined", i18n.Vars{
		"month": r.Month,
		"admin": m.opts.MainAdminUsername,
	}))
	st.editMarkup(nil)
	st.reply(st.t("review.declined", i18n.Vars{
		"name":  displayName(payer),
		"month": r.Month,
	}), nil)
	logger.Info(ctx, reviewComponent, "decline",
		slog.String("submission", r.Submission),
		slog.Int64("admin_id", st.user.ID),
		slog.Int64("payer_id", r.Payer),
		slog.String("month", r.Month),
	)
}

func payerLang(m *Machine, u model.User) string {
	if u.Lang != "" {
		return u.Lang
	}
	return m.tr.Default()
}
