// Package ledger keeps an ordered, bounded log of classified fault records
// with an optional durable snapshot, so failed operations can be inspected,
// retried, and dismissed after the fact.
package ledger

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/harborchat/harbor-client/internal/fault"
)

// Record is one classified fault occurrence. Records are immutable once
// created; a failed retry of the same fault produces a new record with a
// higher RetryCount rather than mutating the old one.
type Record struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Message    string         `json:"message"`
	Stack      string         `json:"stack,omitempty"`
	Context    fault.Context  `json:"context,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	RetryCount int            `json:"retry_count"`
	CanRetry   bool           `json:"can_retry"`
	Severity   fault.Severity `json:"severity"`
	Category   fault.Category `json:"category"`
}

// Signature reconstructs the fault signature the record was counted under.
func (r Record) Signature() string {
	return r.Name + ":" + r.Message
}

// recordID derives a stable id from the fault signature and creation time,
// so repeated occurrences of one fault get distinct ids that still group
// visually by signature prefix.
func recordID(signature string, at time.Time) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(signature))
	return fmt.Sprintf("%08x-%d", h.Sum32(), at.UnixNano())
}
