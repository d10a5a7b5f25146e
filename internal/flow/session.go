package flow

import (
	"slices"
	"strconv"
)

// Pending names the single input the conversation is waiting for.
type Pending string

const (
	PendingNone         Pending = ""
	PendingPhone        Pending = "phone"
	PendingApartments   Pending = "apartments"
	PendingCustomAmount Pending = "custom_amount"
	PendingEditField    Pending = "edit_field"
)

// Session is the per-sender conversation state. It lives in memory only; a lost
// session reads as the zero value.
type Session struct {
	Pending       Pending  `json:"pending,omitempty"`
	Apartments    []string `json:"apartments,omitempty"`
	EditField     string   `json:"editField,omitempty"`
	PaymentMonth  string   `json:"paymentMonth,omitempty"`
	PaymentAmount int64    `json:"paymentAmount,omitempty"`
}

// Await switches the pending input to p and drops the buffers that belong to
// any other pending input.
func (s *Session) Await(p Pending) {
	s.Pending = p
	if p != PendingApartments {
		s.Apartments = nil
	}
	if p != PendingEditField {
		s.EditField = ""
	}
}

// Reset forgets everything.
func (s *Session) Reset() {
	*s = Session{}
}

// ClearPayment drops the month and amount of an unfinished payment.
func (s *Session) ClearPayment() {
	s.PaymentMonth = ""
	s.PaymentAmount = 0
}

// Toggle adds apt to the selection buffer or removes it when already present.
func (s *Session) Toggle(apt string) {
	if i := slices.Index(s.Apartments, apt); i >= 0 {
		s.Apartments = slices.Delete(slices.Clone(s.Apartments), i, i+1)
		if len(s.Apartments) == 0 {
			s.Apartments = nil
		}
		return
	}
	s.Apartments = append(slices.Clone(s.Apartments), apt)
}

// Selected reports whether apt is in the selection buffer.
func (s Session) Selected(apt string) bool {
	return slices.Contains(s.Apartments, apt)
}

// PaymentReady reports whether both month and amount are chosen.
func (s Session) PaymentReady() bool {
	return s.PaymentMonth != "" && s.PaymentAmount > 0
}

// Clone returns a deep copy.
func (s Session) Clone() Session {
	c := s
	c.Apartments = slices.Clone(s.Apartments)
	return c
}

// IsZero reports whether the session carries no state.
func (s Session) IsZero() bool {
	return s.Pending == PendingNone && len(s.Apartments) == 0 && s.EditField == "" &&
		s.PaymentMonth == "" && s.PaymentAmount == 0
}

// String renders the session for debug logs.
func (s Session) String() string {
	return "pending=" + string(s.Pending) +
		" apartments=" + strconv.Itoa(len(s.Apartments)) +
		" month=" + s.PaymentMonth +
		" amount=" + strconv.FormatInt(s.PaymentAmount, 10)
}
