package fines

import (
	"time"

	"github.com/librisys/librisys/internal/dateparse"
)

// BillableRecord is a circulation record as the store hands it back for fine
// computation. Timestamps stay raw strings here because the store serializes
// them inconsistently; parsing happens inside the engine so one corrupt row
// is skipped instead of aborting the whole batch.
type BillableRecord struct {
	ID               string
	MemberID         string
	DueDate          string
	ActualReturnDate string // empty while the loan is open
}

// SkippedRecord reports a row the engine could not bill.
type SkippedRecord struct {
	RecordID string
	MemberID string
	Raw      string
	Err      error
}

// ComputeFines computes each member's outstanding overdue fine. Open loans
// accrue against now; closed loans accrue only up to the moment they were
// returned and are never re-billed after that. Overdue time is counted in
// whole days. Every member appearing in the input is present in the result,
// zero included, so a member whose books all came back on time is reset to
// zero rather than keeping a stale balance.
//
// Pure function of its inputs: the only clock it knows is the now argument.
func ComputeFines(records []BillableRecord, perDayFine float64, now time.Time) (map[string]float64, []SkippedRecord) {
	totals := make(map[string]float64, len(records))
	var skipped []SkippedRecord

	for _, rec := range records {
		if rec.DueDate == "" {
			continue
		}

		due, err := dateparse.Parse(rec.DueDate)
		if err != nil {
			skipped = append(skipped, SkippedRecord{RecordID: rec.ID, MemberID: rec.MemberID, Raw: rec.DueDate, Err: err})
			continue
		}

		end := now
		if rec.ActualReturnDate != "" {
			end, err = dateparse.Parse(rec.ActualReturnDate)
			if err != nil {
				skipped = append(skipped, SkippedRecord{RecordID: rec.ID, MemberID: rec.MemberID, Raw: rec.ActualReturnDate, Err: err})
				continue
			}
		}

		totals[rec.MemberID] += float64(overdueDays(due, end)) * perDayFine
	}

	return totals, skipped
}

// overdueDays returns the whole-day difference between due and end, floored
// at zero.
func overdueDays(due, end time.Time) int {
	if !end.After(due) {
		return 0
	}
	return int(end.Sub(due) / (24 * time.Hour))
}
