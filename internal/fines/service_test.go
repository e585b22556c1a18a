package fines

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	mu       sync.Mutex
	records  []BillableRecord
	settings Settings
	balances map[string]float64
}

func newMemoryRepo(perDay float64) *memoryRepo {
	return &memoryRepo{
		settings: Settings{PerDayFine: perDay},
		balances: make(map[string]float64),
	}
}

func (r *memoryRepo) ListBillable(ctx context.Context) ([]BillableRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]BillableRecord, len(r.records))
	copy(out, r.records)
	return out, nil
}

func (r *memoryRepo) ListBillableByMember(ctx context.Context, memberID string) ([]BillableRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []BillableRecord
	for _, rec := range r.records {
		if rec.MemberID == memberID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memoryRepo) GetSettings(ctx context.Context) (Settings, error) {
	return r.settings, nil
}

func (r *memoryRepo) UpsertBalance(ctx context.Context, memberID string, outstanding float64, computedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[memberID] = outstanding
	return nil
}

func (r *memoryRepo) GetBalance(ctx context.Context, memberID string) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[memberID], nil
}

func TestOutstandingAsOf(t *testing.T) {
	repo := newMemoryRepo(2.0)
	repo.records = []BillableRecord{
		{ID: "r1", MemberID: "alex@example.com", DueDate: "2024-01-10"},
		{ID: "r2", MemberID: "other@example.com", DueDate: "2024-01-01"},
	}
	svc := NewService(repo, nil, nil, 0)

	outstanding, err := svc.OutstandingAsOf(context.Background(), "alex@example.com",
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 10.0, outstanding)
}

func TestOutstandingAsOfUnknownMemberIsZero(t *testing.T) {
	svc := NewService(newMemoryRepo(2.0), nil, nil, 0)
	outstanding, err := svc.OutstandingAsOf(context.Background(), "nobody@example.com", time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, 0.0, outstanding)
}

func TestRecomputeAll(t *testing.T) {
	repo := newMemoryRepo(1.0)
	repo.records = []BillableRecord{
		{ID: "r1", MemberID: "late@example.com", DueDate: "2024-01-10", ActualReturnDate: "2024-01-15"},
		{ID: "r2", MemberID: "ontime@example.com", DueDate: "2024-01-10", ActualReturnDate: "2024-01-10"},
		{ID: "r3", MemberID: "corrupt@example.com", DueDate: "not-a-date"},
	}
	svc := NewService(repo, nil, nil, 0)
	svc.SetClock(func() time.Time { return time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC) })

	summary, err := svc.RecomputeAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.Members)
	require.Equal(t, 1, summary.Skipped)

	require.Equal(t, 5.0, repo.balances["late@example.com"])
	// on-time member written back as explicit zero
	value, ok := repo.balances["ontime@example.com"]
	require.True(t, ok)
	require.Equal(t, 0.0, value)
	// corrupt row skipped, not persisted
	_, ok = repo.balances["corrupt@example.com"]
	require.False(t, ok)
}
