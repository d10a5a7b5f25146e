package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command represents a bot command with its handler, description, and metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly commands are rejected for other senders and only listed in
	// the command menu of administrators.
	AdminOnly bool
	// Hidden commands work but never appear in the command menu.
	Hidden  bool
	Aliases []string
}

// Listed reports whether the command belongs in the menu of a user with the
// given role.
func (c Command) Listed(admin bool) bool {
	if c.Hidden {
		return false
	}
	return admin || !c.AdminOnly
}
