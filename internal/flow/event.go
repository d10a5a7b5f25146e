package flow

import (
	"time"

	"github.com/m3rciful/rentbot/internal/model"
)

// EventKind classifies an inbound update.
type EventKind int

const (
	EventStart EventKind = iota + 1
	EventHelp
	EventUsers
	EventText
	EventCallback
	EventContact
	EventPhoto
	EventDocument
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventHelp:
		return "help"
	case EventUsers:
		return "users"
	case EventText:
		return "text"
	case EventCallback:
		return "callback"
	case EventContact:
		return "contact"
	case EventPhoto:
		return "photo"
	case EventDocument:
		return "document"
	}
	return "unknown"
}

// Callback actions carried by inline buttons.
const (
	ActionLang          = "lang"
	ActionApartment     = "apt"
	ActionApartmentsOK  = "apt_ok"
	ActionApartmentsClr = "apt_clear"
	ActionMonth         = "month"
	ActionAmount        = "amount"
	ActionEdit          = "edit"
	ActionApprove       = "confirm"
	ActionDecline       = "decline"
)

// Event is a transport-neutral inbound update.
type Event struct {
	Kind EventKind

	// Text is the message text for EventText.
	Text string

	// Action and Payload identify the tapped inline button.
	Action  string
	Payload string

	// Phone and ContactUserID come from a shared contact.
	Phone         string
	ContactUserID int64

	// FileID references the largest size of a received photo.
	FileID string
}

// MarkupKind selects how a keyboard is attached to a message.
type MarkupKind int

const (
	MarkupInline MarkupKind = iota + 1
	MarkupReply
	MarkupContact
	MarkupRemove
)

// Button is one keyboard key. Reply keyboards only use Text.
type Button struct {
	Text    string
	Action  string
	Payload string
}

// Markup describes a keyboard.
type Markup struct {
	Kind MarkupKind
	Rows [][]Button
}

// EffectKind classifies an outbound action.
type EffectKind int

const (
	// EffectReply sends Text to the sender.
	EffectReply EffectKind = iota + 1
	// EffectEdit replaces the text and markup of the tapped message.
	EffectEdit
	// EffectEditMarkup replaces only the markup of the tapped message; nil removes it.
	EffectEditMarkup
	// EffectAnswer answers the callback query.
	EffectAnswer
	// EffectNotify sends Text to user To.
	EffectNotify
	// EffectForward sends photo FileID with caption Text to user To.
	EffectForward
)

func (k EffectKind) String() string {
	switch k {
	case EffectReply:
		return "reply"
	case EffectEdit:
		return "edit"
	case EffectEditMarkup:
		return "edit_markup"
	case EffectAnswer:
		return "answer"
	case EffectNotify:
		return "notify"
	case EffectForward:
		return "forward"
	}
	return "unknown"
}

// Effect is one outbound action produced by a step.
type Effect struct {
	Kind   EffectKind
	To     int64
	Text   string
	FileID string
	Markup *Markup
	Alert  bool
}

// Mutation is a change to a stored user record.
type Mutation struct {
	UserID int64
	Name   string
	Apply  func(*model.User) error
}

// Input is everything a step needs.
type Input struct {
	Session Session
	User    model.User
	Event   Event
	Now     time.Time
}

// Output is the result of a step. Mutations are applied in order before Effects
// are delivered. When a mutation fails, Failure (if set) maps the error to the
// effects to deliver instead; a nil result means the error was unexpected.
type Output struct {
	Session   Session
	Mutations []Mutation
	Effects   []Effect
	Failure   func(error) []Effect
}
