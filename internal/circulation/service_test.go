package circulation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/librisys/librisys/internal/catalog"
)

// memoryRepo fakes the circulation repository plus the ledger statements that
// ride inside its transactions.
type memoryRepo struct {
	records   map[string]Record
	available map[string]int
	total     map[string]int

	failInsert error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		records:   make(map[string]Record),
		available: make(map[string]int),
		total:     make(map[string]int),
	}
}

func (r *memoryRepo) addTitle(isbn string, total, available int) {
	r.total[isbn] = total
	r.available[isbn] = available
}

type memorySnapshot struct {
	records   map[string]Record
	available map[string]int
}

func (r *memoryRepo) snapshot() memorySnapshot {
	snap := memorySnapshot{records: make(map[string]Record), available: make(map[string]int)}
	for k, v := range r.records {
		snap.records[k] = v
	}
	for k, v := range r.available {
		snap.available[k] = v
	}
	return snap
}

func (r *memoryRepo) restore(snap memorySnapshot) {
	r.records = snap.records
	r.available = snap.available
}

// WithTx mimics all-or-nothing semantics: on error the pre-transaction state
// is restored.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snap := r.snapshot()
	if err := fn(ctx, r); err != nil {
		r.restore(snap)
		return err
	}
	return nil
}

func (r *memoryRepo) InsertRecord(ctx context.Context, rec Record) error {
	if r.failInsert != nil {
		return r.failInsert
	}
	r.records[rec.ID] = rec
	return nil
}

func (r *memoryRepo) GetRecord(ctx context.Context, id string) (Record, error) {
	rec, ok := r.records[id]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return rec, nil
}

func (r *memoryRepo) GetRecordForUpdate(ctx context.Context, id string) (Record, error) {
	return r.GetRecord(ctx, id)
}

func (r *memoryRepo) CloseRecord(ctx context.Context, id string, returnedAt time.Time, condition Condition, damageFine *float64) error {
	rec, ok := r.records[id]
	if !ok {
		return ErrRecordNotFound
	}
	if rec.ActualReturnDate != nil {
		return ErrAlreadyReturned
	}
	rec.ActualReturnDate = &returnedAt
	rec.Condition = condition
	rec.DamageFine = damageFine
	r.records[id] = rec
	return nil
}

func (r *memoryRepo) IssueCopy(ctx context.Context, isbn string) error {
	if _, ok := r.total[isbn]; !ok {
		return catalog.ErrTitleNotFound
	}
	if r.available[isbn] <= 0 {
		return catalog.ErrNoCopiesAvailable
	}
	r.available[isbn]--
	return nil
}

func (r *memoryRepo) ReturnCopy(ctx context.Context, isbn string) error {
	if _, ok := r.total[isbn]; !ok {
		return catalog.ErrTitleNotFound
	}
	if r.available[isbn] < r.total[isbn] {
		r.available[isbn]++
	}
	return nil
}

func (r *memoryRepo) ListByMember(ctx context.Context, memberID string) ([]Record, error) {
	var out []Record
	for _, rec := range r.records {
		if rec.MemberID == memberID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fixedFines struct {
	amount float64
	asked  []time.Time
}

func (f *fixedFines) OutstandingAsOf(ctx context.Context, memberID string, now time.Time) (float64, error) {
	f.asked = append(f.asked, now)
	return f.amount, nil
}

func newTestService(repo *memoryRepo, fines FinePort, now time.Time) *Service {
	svc := NewService(repo, fines, nil, ServiceConfig{})
	svc.SetClock(func() time.Time { return now })
	return svc
}

func TestIssueDirect(t *testing.T) {
	repo := newMemoryRepo()
	repo.addTitle("9780134190440", 3, 1)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(repo, nil, now)
	ctx := context.Background()

	rec, err := svc.IssueDirect(ctx, IssueInput{ISBN: "9780134190440", MemberID: "alex@example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)
	require.Equal(t, now, rec.IssueDate)
	require.NotNil(t, rec.DueDate)
	require.Equal(t, now.Add(DefaultLoanPeriod), *rec.DueDate)
	require.Equal(t, 0, repo.available["9780134190440"])

	_, err = svc.IssueDirect(ctx, IssueInput{ISBN: "9780134190440", MemberID: "sam@example.com"})
	require.ErrorIs(t, err, catalog.ErrNoCopiesAvailable)
	require.Equal(t, 0, repo.available["9780134190440"])
}

func TestIssueDirectRollsBackOnInsertFailure(t *testing.T) {
	repo := newMemoryRepo()
	repo.addTitle("9780134190440", 3, 2)
	repo.failInsert = errors.New("insert failed")
	svc := newTestService(repo, nil, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	_, err := svc.IssueDirect(context.Background(), IssueInput{ISBN: "9780134190440", MemberID: "alex@example.com"})
	require.Error(t, err)
	// the decrement from step one must not survive the failed insert
	require.Equal(t, 2, repo.available["9780134190440"])
	require.Empty(t, repo.records)
}

func TestRecordReturnIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	repo.addTitle("9780134190440", 3, 1)
	issueAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(repo, &fixedFines{}, issueAt)
	ctx := context.Background()

	rec, err := svc.IssueDirect(ctx, IssueInput{ISBN: "9780134190440", MemberID: "alex@example.com"})
	require.NoError(t, err)
	require.Equal(t, 0, repo.available["9780134190440"])

	returnAt := issueAt.Add(48 * time.Hour)
	svc.SetClock(func() time.Time { return returnAt })

	result, err := svc.RecordReturn(ctx, ReturnInput{RecordID: rec.ID, Condition: ConditionGood})
	require.NoError(t, err)
	require.NotNil(t, result.Record.ActualReturnDate)
	require.Equal(t, returnAt, *result.Record.ActualReturnDate)
	require.Equal(t, 1, repo.available["9780134190440"])

	_, err = svc.RecordReturn(ctx, ReturnInput{RecordID: rec.ID, Condition: ConditionGood})
	require.ErrorIs(t, err, ErrAlreadyReturned)
	// availability incremented exactly once
	require.Equal(t, 1, repo.available["9780134190440"])
}

func TestRecordReturnFineSnapshotSharesNow(t *testing.T) {
	repo := newMemoryRepo()
	repo.addTitle("9780134190440", 3, 1)
	issueAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	fines := &fixedFines{amount: 25}
	svc := newTestService(repo, fines, issueAt)
	ctx := context.Background()

	rec, err := svc.IssueDirect(ctx, IssueInput{ISBN: "9780134190440", MemberID: "alex@example.com"})
	require.NoError(t, err)

	returnAt := issueAt.AddDate(0, 0, 15)
	svc.SetClock(func() time.Time { return returnAt })

	damage := 10.0
	result, err := svc.RecordReturn(ctx, ReturnInput{RecordID: rec.ID, Condition: ConditionDamaged, DamageFine: &damage})
	require.NoError(t, err)
	require.Equal(t, 25.0, result.OutstandingFine)
	require.Equal(t, 10.0, result.DamageFine)
	require.Len(t, fines.asked, 1)
	require.Equal(t, returnAt, fines.asked[0])
	require.Equal(t, returnAt, *result.Record.ActualReturnDate)
}

func TestRecordReturnValidation(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil, time.Now().UTC())
	ctx := context.Background()

	_, err := svc.RecordReturn(ctx, ReturnInput{RecordID: "x", Condition: "SOGGY"})
	require.ErrorIs(t, err, ErrInvalidCondition)

	bad := -1.0
	_, err = svc.RecordReturn(ctx, ReturnInput{RecordID: "x", Condition: ConditionDamaged, DamageFine: &bad})
	require.ErrorIs(t, err, ErrInvalidDamageFine)

	_, err = svc.RecordReturn(ctx, ReturnInput{RecordID: "missing", Condition: ConditionGood})
	require.ErrorIs(t, err, ErrRecordNotFound)
}
