package bot

import (
	"strings"

	"github.com/google/uuid"
)

// submissionIDLen keeps review button payloads well inside Telegram's
// 64 byte callback data limit.
const submissionIDLen = 10

// NewSubmissionID returns a short random identifier for a forwarded screenshot.
func NewSubmissionID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return id[:submissionIDLen]
}
