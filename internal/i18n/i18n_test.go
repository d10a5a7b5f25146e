package i18n

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBundle(t *testing.T) *Bundle {
	t.Helper()
	b, err := New("ru")
	require.NoError(t, err)
	return b
}

func TestLanguages(t *testing.T) {
	b := newBundle(t)

	assert.Equal(t, []string{"ru", "uz"}, b.Languages())
	assert.Equal(t, "ru", b.Default())
	assert.True(t, b.Supports("uz"))
	assert.False(t, b.Supports("en"))
}

func TestTInterpolates(t *testing.T) {
	b := newBundle(t)

	got := b.T("ru", "contact.admin", Vars{"admin": "@boss"})
	assert.Equal(t, "Для связи с администратором: @boss", got)

	got = b.T("uz", "contact.admin", Vars{"admin": "@boss"})
	assert.Equal(t, "Administrator bilan bog'lanish: @boss", got)
}

func TestTFallsBackToDefaultLanguage(t *testing.T) {
	b := newBundle(t)

	assert.Equal(t, b.T("ru", "menu.profile", nil), b.T("en", "menu.profile", nil))
	assert.Equal(t, b.T("ru", "menu.profile", nil), b.T("", "menu.profile", nil))
}

func TestTFallsBackToKey(t *testing.T) {
	b := newBundle(t)

	assert.Equal(t, "no.such.key", b.T("uz", "no.such.key", nil))
}

func TestMenuLabelsDifferPerLanguage(t *testing.T) {
	b := newBundle(t)

	for _, key := range []string{"menu.profile", "menu.payment", "menu.history", "menu.contact", "menu.summary"} {
		assert.NotEqual(t, b.T("ru", key, nil), b.T("uz", key, nil), key)
	}
}

func TestAmountGroupsDigits(t *testing.T) {
	b := newBundle(t)

	got := b.Amount("ru", 1500000)
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, got)
	assert.Equal(t, "1500000", digits)
	assert.NotEqual(t, "1500000", got)
	assert.Equal(t, "50", b.Amount("uz", 50))
}

func TestNewRejectsUnknownDefault(t *testing.T) {
	_, err := New("en")
	require.Error(t, err)
}
