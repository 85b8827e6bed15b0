package domain

import "errors"

// ErrAlreadyDispatched is returned by a dispatch ledger when the day's slot has
// already been claimed by another run.
var ErrAlreadyDispatched = errors.New("already dispatched for this day")

// Dispatch run statuses recorded in the ledger.
const (
	DispatchClaimed = "claimed"
	DispatchSent    = "sent"
	DispatchSkipped = "skipped"
	DispatchFailed  = "failed"
)

// DispatchRecord is the ledger entry for one daily dispatch.
type DispatchRecord struct {
	Day        string
	RunID      string
	Mode       SendMode
	Status     string
	Recipients int
	Batches    int
	Attempts   int // send calls issued, including a failed one
	Reasons    []string
	Error      string
	UpdatedAt  string
	TTL        int64
}
