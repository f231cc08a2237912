// Package triprequest owns trip request intake: creation with its approval chain,
// edits while Pending, cancellation and administrative deletion.
package triprequest

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RequestNumberLayout is the date part of TR-YYYYMMDD-XXXXXX.
const RequestNumberLayout = "20060102"

// NewRequestNumber returns a human facing number for a request created at now.
func NewRequestNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("TR-%s-%s", now.UTC().Format(RequestNumberLayout), suffix)
}
