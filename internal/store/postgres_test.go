package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/rentbot/internal/model"
)

func TestTailReturnsUnstoredPayments(t *testing.T) {
	payments := []model.Payment{{Month: "2025-01"}, {Month: "2025-02"}, {Month: "2025-03"}}

	assert.Equal(t, payments[1:], tail(payments, 1))
	assert.Nil(t, tail(payments, 3))
	assert.Nil(t, tail(payments, 5))
	assert.Equal(t, payments, tail(payments, 0))
}

func TestUserRowRoundTrip(t *testing.T) {
	u := model.User{
		ID:        42,
		FirstName: "Aziz",
		LastName:  "Karimov",
		Username:  "aziz",
		Phone:     "+998900000000",
		Apartment: "3, 12",
		Balance:   150000,
		IsPaid:    true,
		Lang:      model.LangUZ,
	}
	row := fromModel(u, 7)
	assert.Equal(t, int64(7), row.Version)

	back := row.toModel(nil)
	require.NotNil(t, back.Payments)
	back.Payments = nil
	assert.Equal(t, u, back)
}

func TestPaymentRowToModel(t *testing.T) {
	at := time.Date(2025, time.May, 3, 12, 0, 0, 0, time.UTC)
	p := paymentRow{UserID: 42, Month: "2025-05", Amount: 50000, PaidAt: at, Submission: "abc"}.toModel()

	assert.Equal(t, model.Payment{Month: "2025-05", Amount: 50000, Date: at, Submission: "abc"}, p)
}

func TestPaymentErrorMapsDuplicateSubmission(t *testing.T) {
	dup := fmt.Errorf("exec: %w", &pq.Error{Code: "23505", Constraint: "payments_submission_uidx"})
	assert.ErrorIs(t, paymentError(42, dup), model.ErrAlreadyReviewed)

	other := &pq.Error{Code: "23503"}
	err := paymentError(42, other)
	assert.NotErrorIs(t, err, model.ErrAlreadyReviewed)
	assert.ErrorIs(t, err, other)
}
