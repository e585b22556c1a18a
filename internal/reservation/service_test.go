package reservation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/librisys/librisys/internal/catalog"
	"github.com/librisys/librisys/internal/circulation"
)

type memoryRepo struct {
	reservations map[string]Reservation
	records      map[string]circulation.Record
	available    map[string]int
	total        map[string]int

	failInsertRecord error
	failMarkDone     error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		reservations: make(map[string]Reservation),
		records:      make(map[string]circulation.Record),
		available:    make(map[string]int),
		total:        make(map[string]int),
	}
}

func (r *memoryRepo) addTitle(isbn string, total, available int) {
	r.total[isbn] = total
	r.available[isbn] = available
}

func (r *memoryRepo) Create(ctx context.Context, res Reservation) error {
	r.reservations[res.ID] = res
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, id string) (Reservation, error) {
	res, ok := r.reservations[id]
	if !ok {
		return Reservation{}, ErrNotFound
	}
	return res, nil
}

func (r *memoryRepo) Cancel(ctx context.Context, id string) error {
	res, ok := r.reservations[id]
	if !ok {
		return ErrNotFound
	}
	if res.Status == StatusPending {
		res.Status = StatusCancelled
		r.reservations[id] = res
	}
	return nil
}

func (r *memoryRepo) ListByMember(ctx context.Context, memberID string) ([]Reservation, error) {
	var out []Reservation
	for _, res := range r.reservations {
		if res.MemberID == memberID {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListByISBN(ctx context.Context, isbn string) ([]Reservation, error) {
	var out []Reservation
	for _, res := range r.reservations {
		if res.ISBN == isbn && res.Status == StatusPending {
			out = append(out, res)
		}
	}
	return out, nil
}

type repoSnapshot struct {
	reservations map[string]Reservation
	records      map[string]circulation.Record
	available    map[string]int
}

func (r *memoryRepo) snapshot() repoSnapshot {
	snap := repoSnapshot{
		reservations: make(map[string]Reservation),
		records:      make(map[string]circulation.Record),
		available:    make(map[string]int),
	}
	for k, v := range r.reservations {
		snap.reservations[k] = v
	}
	for k, v := range r.records {
		snap.records[k] = v
	}
	for k, v := range r.available {
		snap.available[k] = v
	}
	return snap
}

// ConvertTx mimics transaction semantics: any error restores the state from
// before the callback.
func (r *memoryRepo) ConvertTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snap := r.snapshot()
	if err := fn(ctx, r); err != nil {
		r.reservations = snap.reservations
		r.records = snap.records
		r.available = snap.available
		return err
	}
	return nil
}

func (r *memoryRepo) GetForUpdate(ctx context.Context, id string) (Reservation, error) {
	return r.Get(ctx, id)
}

func (r *memoryRepo) MarkCompleted(ctx context.Context, id string) error {
	if r.failMarkDone != nil {
		return r.failMarkDone
	}
	res, ok := r.reservations[id]
	if !ok {
		return ErrNotFound
	}
	if res.Status != StatusPending {
		return ErrNotPending
	}
	res.Status = StatusCompleted
	r.reservations[id] = res
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

func (r *memoryRepo) InsertRecord(ctx context.Context, rec circulation.Record) error {
	if r.failInsertRecord != nil {
		return r.failInsertRecord
	}
	r.records[rec.ID] = rec
	return nil
}

type stubCatalog struct {
	known map[string]bool
}

func (c *stubCatalog) GetTitle(ctx context.Context, isbn string) (catalog.BookTitle, error) {
	if !c.known[isbn] {
		return catalog.BookTitle{}, catalog.ErrTitleNotFound
	}
	return catalog.BookTitle{ISBN: isbn}, nil
}

func newTestService(repo *memoryRepo, now time.Time) *Service {
	known := make(map[string]bool)
	for isbn := range repo.total {
		known[isbn] = true
	}
	svc := NewService(repo, &stubCatalog{known: known}, nil, ServiceConfig{})
	svc.SetClock(func() time.Time { return now })
	return svc
}

func TestCreateIgnoresAvailability(t *testing.T) {
	repo := newMemoryRepo()
	repo.addTitle("9780134190440", 3, 0)
	svc := newTestService(repo, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	// zero copies available, reservation still queues
	res, err := svc.Create(ctx, "9780134190440", "alex@example.com")
	require.NoError(t, err)
	require.Equal(t, StatusPending, res.Status)

	_, err = svc.Create(ctx, "0000000000000", "alex@example.com")
	require.ErrorIs(t, err, catalog.ErrTitleNotFound)
}

func TestCancelIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	repo.addTitle("9780134190440", 1, 1)
	svc := newTestService(repo, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	res, err := svc.Create(ctx, "9780134190440", "alex@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, res.ID))
	require.NoError(t, svc.Cancel(ctx, res.ID))

	got, err := svc.Get(ctx, res.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, got.Status)

	require.ErrorIs(t, svc.Cancel(ctx, "missing"), ErrNotFound)
}

func TestConvertToIssue(t *testing.T) {
	repo := newMemoryRepo()
	repo.addTitle("9780134190440", 2, 1)
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)
	ctx := context.Background()

	res, err := svc.Create(ctx, "9780134190440", "alex@example.com")
	require.NoError(t, err)

	rec, err := svc.ConvertToIssue(ctx, res.ID)
	require.NoError(t, err)
	require.Equal(t, "9780134190440", rec.ISBN)
	require.Equal(t, "alex@example.com", rec.MemberID)
	require.NotNil(t, rec.DueDate)
	require.Equal(t, now.Add(circulation.DefaultLoanPeriod), *rec.DueDate)
	require.Equal(t, 0, repo.available["9780134190440"])

	got, err := svc.Get(ctx, res.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, got.Status)

	// completed reservations cannot be converted again
	_, err = svc.ConvertToIssue(ctx, res.ID)
	require.ErrorIs(t, err, ErrNotPending)
	require.Equal(t, 0, repo.available["9780134190440"])
}

func TestConvertToIssueNoCopies(t *testing.T) {
	repo := newMemoryRepo()
	repo.addTitle("9780134190440", 3, 0)
	svc := newTestService(repo, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	res, err := svc.Create(ctx, "9780134190440", "alex@example.com")
	require.NoError(t, err)

	_, err = svc.ConvertToIssue(ctx, res.ID)
	require.ErrorIs(t, err, catalog.ErrNoCopiesAvailable)

	// reservation stays pending, availability untouched
	got, err := svc.Get(ctx, res.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, got.Status)
	require.Equal(t, 0, repo.available["9780134190440"])
}

func TestConvertToIssueRollsBackDecrement(t *testing.T) {
	repo := newMemoryRepo()
	repo.addTitle("9780134190440", 3, 2)
	svc := newTestService(repo, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	res, err := svc.Create(ctx, "9780134190440", "alex@example.com")
	require.NoError(t, err)

	repo.failInsertRecord = errors.New("record insert failed")
	_, err = svc.ConvertToIssue(ctx, res.ID)
	require.Error(t, err)
	require.Equal(t, 2, repo.available["9780134190440"], "availability lost on failed conversion")

	repo.failInsertRecord = nil
	repo.failMarkDone = errors.New("status update failed")
	_, err = svc.ConvertToIssue(ctx, res.ID)
	require.Error(t, err)
	require.Equal(t, 2, repo.available["9780134190440"])
	require.Empty(t, repo.records, "record survived rolled-back conversion")

	got, err := svc.Get(ctx, res.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, got.Status)
}

func TestConvertUnknownReservation(t *testing.T) {
	svc := newTestService(newMemoryRepo(), time.Now().UTC())
	_, err := svc.ConvertToIssue(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}
