package admins

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "admin-config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(write(t, `{"admins":[30,10,30],"cardNumber":" 8600 1111 ","mainAdminUsername":"@boss"}`))
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 30}, cfg.Admins)
	assert.Equal(t, "8600 1111", cfg.CardNumber)
	assert.Equal(t, "@boss", cfg.MainAdminUsername)
	assert.True(t, cfg.IsAdmin(30))
	assert.False(t, cfg.IsAdmin(20))
}

func TestLoadInvalid(t *testing.T) {
	cases := map[string]string{
		"malformed":   `{"admins":`,
		"no admins":   `{"admins":[],"cardNumber":"1"}`,
		"no card":     `{"admins":[1],"cardNumber":"  "}`,
		"negative id": `{"admins":[-1],"cardNumber":"1"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(write(t, body))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
