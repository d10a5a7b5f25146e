package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneKeepsEmptyHistory(t *testing.T) {
	u := User{ID: 7, Payments: []Payment{}}

	c := u.Clone()
	assert.NotNil(t, c.Payments)
	assert.Empty(t, c.Payments)

	assert.Nil(t, User{ID: 7}.Clone().Payments)
}

func TestCloneIsDeep(t *testing.T) {
	u := User{ID: 7, Payments: []Payment{{Month: "2025-05", Amount: 100}}}

	c := u.Clone()
	c.Payments[0].Amount = 1
	assert.Equal(t, int64(100), u.Payments[0].Amount)
}

func TestApplyPayment(t *testing.T) {
	u := User{ID: 7, Balance: 100, Payments: []Payment{}}

	require.NoError(t, u.ApplyPayment(Payment{Month: "2025-05", Amount: 50, Submission: "a"}))
	assert.Equal(t, int64(150), u.Balance)
	assert.True(t, u.IsPaid)
	require.Len(t, u.Payments, 1)

	err := u.ApplyPayment(Payment{Month: "2025-05", Amount: 50, Submission: "a"})
	assert.ErrorIs(t, err, ErrAlreadyReviewed)
	assert.Equal(t, int64(150), u.Balance)

	assert.ErrorIs(t, u.ApplyPayment(Payment{Amount: 0}), ErrInvalidAmount)
}

func TestApplyPaymentRejectsOverflow(t *testing.T) {
	u := User{ID: 7, Balance: math.MaxInt64 - 10}

	err := u.ApplyPayment(Payment{Month: "2025-05", Amount: 100})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, int64(math.MaxInt64-10), u.Balance)
	assert.False(t, u.IsPaid)
	assert.Empty(t, u.Payments)

	require.NoError(t, u.ApplyPayment(Payment{Month: "2025-05", Amount: 10}))
	assert.Equal(t, int64(math.MaxInt64), u.Balance)
}

func TestRegistered(t *testing.T) {
	u := User{Lang: LangRU, Phone: "+998901112233", Apartment: "5"}
	assert.True(t, u.Registered())

	for _, strip := range []func(*User){
		func(u *User) { u.Lang = "" },
		func(u *User) { u.Phone = "" },
		func(u *User) { u.Apartment = "" },
	} {
		c := u
		strip(&c)
		assert.False(t, c.Registered())
	}
}
