package circulation

import (
	"errors"
	"time"
)

// Condition describes the physical state of a copy recorded at return.
type Condition string

const (
	// ConditionGood means the copy came back undamaged.
	ConditionGood Condition = "GOOD"
	// ConditionDamaged means the copy came back damaged and may carry a fine.
	ConditionDamaged Condition = "DAMAGED"
)

// Valid reports whether the condition is a known value.
func (c Condition) Valid() bool {
	return c == ConditionGood || c == ConditionDamaged
}

// Record is one physical-copy transaction. Records are append-only: created
// at issuance with a nil ActualReturnDate and mutated exactly once at return.
// They are never deleted, so fine history stays reconstructable.
type Record struct {
	ID               string
	ISBN             string
	MemberID         string
	IssueDate        time.Time
	DueDate          *time.Time
	ActualReturnDate *time.Time
	Condition        Condition
	DamageFine       *float64
}

// Open reports whether the loan is still out.
func (r Record) Open() bool {
	return r.ActualReturnDate == nil
}

// ErrRecordNotFound indicates no circulation record with the given id.
var ErrRecordNotFound = errors.New("circulation: record not found")

// ErrAlreadyReturned indicates the record was closed by an earlier return.
var ErrAlreadyReturned = errors.New("circulation: record already returned")

// ErrInvalidCondition indicates an unknown return condition.
var ErrInvalidCondition = errors.New("circulation: invalid return condition")

// ErrInvalidDamageFine indicates a negative damage fine.
var ErrInvalidDamageFine = errors.New("circulation: damage fine must be >= 0")
