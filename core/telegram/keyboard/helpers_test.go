package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplyButtons(t *testing.T) {
	mk := ReplyButtons([]string{"a", "b"}, []string{"c"})
	require.Len(t, mk.ReplyKeyboard, 2)
	assert.True(t, mk.ResizeKeyboard)
	assert.Equal(t, "a", mk.ReplyKeyboard[0][0].Text)
	assert.Equal(t, "b", mk.ReplyKeyboard[0][1].Text)
	assert.Equal(t, "c", mk.ReplyKeyboard[1][0].Text)
}

func TestContactRequest(t *testing.T) {
	mk := ContactRequest("share")
	require.Len(t, mk.ReplyKeyboard, 1)
	require.Len(t, mk.ReplyKeyboard[0], 1)
	assert.True(t, mk.ReplyKeyboard[0][0].Contact)
	assert.Equal(t, "share", mk.ReplyKeyboard[0][0].Text)
	assert.True(t, mk.OneTimeKeyboard)
}

func TestInlineButtonsRows(t *testing.T) {
	mk := InlineButtonsRows(
		[]InlineBtn{{Text: "1", Unique: "apt", Data: "1"}, {Text: "2", Unique: "apt", Data: "2"}},
		[]InlineBtn{{Text: "ok", Unique: "apt_ok"}},
	)
	require.Len(t, mk.InlineKeyboard, 2)
	assert.Equal(t, "apt", mk.InlineKeyboard[0][1].Unique)
	assert.Contains(t, mk.InlineKeyboard[0][1].Data, "2")
	assert.Equal(t, "ok", mk.InlineKeyboard[1][0].Text)
	assert.Equal(t, "apt_ok", mk.InlineKeyboard[1][0].Unique)
}

func TestRemoveKeyboard(t *testing.T) {
	assert.True(t, RemoveKeyboard().RemoveKeyboard)
}
