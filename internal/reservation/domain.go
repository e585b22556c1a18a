package reservation

import (
	"errors"
	"time"
)

// Status enumerates reservation states. PENDING transitions to COMPLETED or
// CANCELLED, both terminal.
type Status string

const (
	// StatusPending means the reservation is queued and convertible.
	StatusPending Status = "PENDING"
	// StatusCompleted means a librarian converted the reservation to an issue.
	StatusCompleted Status = "COMPLETED"
	// StatusCancelled means the reservation was withdrawn.
	StatusCancelled Status = "CANCELLED"
)

// Reservation is a member's queued request for a title. It is a queue
// position, not a hold: creating one never decrements availability, the
// quantity check happens only at the issue step.
type Reservation struct {
	ID        string
	ISBN      string
	MemberID  string
	CreatedAt time.Time
	Status    Status
}

// ErrNotFound indicates no reservation with the given id.
var ErrNotFound = errors.New("reservation: not found")

// ErrNotPending indicates the reservation was already completed or cancelled.
var ErrNotPending = errors.New("reservation: not pending")
