package model

import (
	"math"
	"slices"
	"strings"
	"time"
)

// Supported locale codes.
const (
	LangRU = "ru"
	LangUZ = "uz"
)

// Editable free-text profile fields.
const (
	FieldFirstName = "firstName"
	FieldLastName  = "lastName"
	FieldPhone     = "phone"
)

// ApartmentSeparator joins apartment numbers inside User.Apartment.
const ApartmentSeparator = ", "

// Payment is a confirmed payment entry. Entries are only ever appended.
type Payment struct {
	Month      string    `json:"month"`
	Amount     int64     `json:"amount"`
	Date       time.Time `json:"date"`
	Submission string    `json:"submission,omitempty"`
}

// User is the persisted tenant record keyed by the Telegram sender id.
type User struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Username  string    `json:"username"`
	Phone     string    `json:"phone"`
	Apartment string    `json:"apartment"`
	Balance   int64     `json:"balance"`
	IsPaid    bool      `json:"isPaid"`
	Payments  []Payment `json:"payments"`
	Lang      string    `json:"lang"`
}

// Registered reports whether the user finished language, phone and apartment selection.
func (u User) Registered() bool {
	return u.Lang != "" && u.Phone != "" && u.Apartment != ""
}

// Apartments splits the stored apartment list.
func (u User) Apartments() []string {
	return SplitApartments(u.Apartment)
}

// FullName joins first and last name.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// HasSubmission reports whether a payment produced by the given submission exists.
func (u User) HasSubmission(id string) bool {
	if id == "" {
		return false
	}
	for _, p := range u.Payments {
		if p.Submission == id {
			return true
		}
	}
	return false
}

// MonthTotal sums payments recorded for month (YYYY-MM).
func (u User) MonthTotal(month string) (int64, bool) {
	var (
		total int64
		found bool
	)
	for _, p := range u.Payments {
		if p.Month == month {
			total += p.Amount
			found = true
		}
	}
	return total, found
}

// SetField overwrites one of the editable free-text fields.
func (u *User) SetField(field, value string) error {
	switch field {
	case FieldFirstName:
		u.FirstName = value
	case FieldLastName:
		u.LastName = value
	case FieldPhone:
		u.Phone = value
	default:
		return NewError("user", ErrUnknownField)
	}
	return nil
}

// ApplyPayment credits a confirmed payment.
func (u *User) ApplyPayment(p Payment) error {
	if p.Amount <= 0 {
		return NewError("payment", ErrInvalidAmount)
	}
	if u.HasSubmission(p.Submission) {
		return NewError("payment", ErrAlreadyReviewed)
	}
	if u.Balance > 0 && p.Amount > math.MaxInt64-u.Balance {
		return NewError("payment", ErrInvalidAmount)
	}
	u.Balance += p.Amount
	u.IsPaid = true
	u.Payments = append(u.Payments, p)
	return nil
}

// Clone returns a deep copy. An empty history stays empty rather than nil.
func (u User) Clone() User {
	c := u
	c.Payments = slices.Clone(u.Payments)
	return c
}

// SplitApartments parses a stored apartment list.
func SplitApartments(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinApartments renders an apartment list for storage.
func JoinApartments(list []string) string {
	return strings.Join(list, ApartmentSeparator)
}
