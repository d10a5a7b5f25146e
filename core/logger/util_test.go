package logger

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrRedactsBotToken(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AAbb-cc_DD/getMe": EOF`)

	attr := Err(err)
	assert.Equal(t, "err", attr.Key)
	assert.Equal(t, `Post "https://api.telegram.org/bot<redacted>/getMe": EOF`, attr.Value.String())

	assert.True(t, Err(nil).Equal(slog.Attr{}))
}

func TestSummarizeStrings(t *testing.T) {
	s, cut := SummarizeStrings([]string{"a", "b", "c"}, 2)
	assert.Equal(t, "a, b", s)
	assert.True(t, cut)

	s, cut = SummarizeStrings([]string{"a"}, 2)
	assert.Equal(t, "a", s)
	assert.False(t, cut)
}
