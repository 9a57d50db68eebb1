// internal/ids/ids.go
package ids

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ID kinds used across the system. Equality on IDs is plain string equality.
const (
	KindTask       = "task"
	KindReport     = "report"
	KindEval       = "eval"
	KindLease      = "lease"
	KindDiscussion = "discussion"
)

// New generates an opaque prefixed ID, e.g. "task-9f8a3c...".
func New(kind string) string {
	random := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("%s-%s", kind, random)
}

// Kind returns the prefix of an ID, or "" if it has none.
func Kind(id string) string {
	i := strings.IndexByte(id, '-')
	if i <= 0 {
		return ""
	}
	return id[:i]
}

// Now returns the current UTC time. All timestamps in the system are UTC.
func Now() time.Time {
	return time.Now().UTC()
}
