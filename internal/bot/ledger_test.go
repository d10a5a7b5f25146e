package bot

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerFirstClaimWins(t *testing.T) {
	l, err := NewLedger(100, 0)
	require.NoError(t, err)

	owner, ok := l.Claim("sub1", 7)
	assert.True(t, ok)
	assert.Equal(t, int64(7), owner)

	owner, ok = l.Claim("sub1", 8)
	assert.False(t, ok)
	assert.Equal(t, int64(7), owner)

	l.Release("sub1")
	owner, ok = l.Claim("sub1", 8)
	assert.True(t, ok)
	assert.Equal(t, int64(8), owner)
}

func TestNewSubmissionID(t *testing.T) {
	a, b := NewSubmissionID(), NewSubmissionID()
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{10}$`), a)
	assert.NotEqual(t, a, b)
}
