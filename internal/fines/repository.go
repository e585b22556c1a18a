package fines

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/librisys/librisys/internal/platform/db"
)

// Settings is the process-wide fine configuration. Mutated by an external
// admin workflow; read-only from the engine's perspective.
type Settings struct {
	PerDayFine float64
}

// ErrSettingsMissing indicates the fine_settings singleton row is absent.
var ErrSettingsMissing = errors.New("fines: settings row missing")

// Repository reads circulation records for billing and persists derived
// member balances. Timestamps are selected as text deliberately: the engine
// parses them defensively instead of trusting the driver's mapping.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

const billableQuery = `
	SELECT id, member_id, COALESCE(due_date::text, ''), COALESCE(actual_return_date::text, '')
	FROM circulation_records
	WHERE due_date IS NOT NULL`

// ListBillable returns every record that can accrue a fine.
func (r *Repository) ListBillable(ctx context.Context) ([]BillableRecord, error) {
	rows, err := r.db.Query(ctx, billableQuery)
	if err != nil {
		return nil, err
	}
	return scanBillable(rows)
}

// ListBillableByMember returns a single member's billable records.
func (r *Repository) ListBillableByMember(ctx context.Context, memberID string) ([]BillableRecord, error) {
	rows, err := r.db.Query(ctx, billableQuery+` AND member_id = $1`, memberID)
	if err != nil {
		return nil, err
	}
	return scanBillable(rows)
}

func scanBillable(rows pgx.Rows) ([]BillableRecord, error) {
	defer rows.Close()
	var records []BillableRecord
	for rows.Next() {
		var rec BillableRecord
		if err := rows.Scan(&rec.ID, &rec.MemberID, &rec.DueDate, &rec.ActualReturnDate); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetSettings reads the fine-rate singleton.
func (r *Repository) GetSettings(ctx context.Context) (Settings, error) {
	var s Settings
	err := r.db.QueryRow(ctx, `SELECT per_day_fine FROM fine_settings LIMIT 1`).Scan(&s.PerDayFine)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Settings{}, ErrSettingsMissing
		}
		return Settings{}, err
	}
	return s, nil
}

// UpsertBalance persists one member's recomputed balance. Idempotent: the
// balance is derived state, always reconstructable from record history.
func (r *Repository) UpsertBalance(ctx context.Context, memberID string, outstanding float64, computedAt time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO member_fine_balances (member_id, outstanding_fine, computed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (member_id) DO UPDATE
		SET outstanding_fine = EXCLUDED.outstanding_fine, computed_at = EXCLUDED.computed_at`,
		memberID, outstanding, computedAt)
	return err
}

// GetBalance reads a member's cached balance row.
func (r *Repository) GetBalance(ctx context.Context, memberID string) (float64, error) {
	var outstanding float64
	err := r.db.QueryRow(ctx, `
		SELECT outstanding_fine FROM member_fine_balances WHERE member_id = $1`, memberID).
		Scan(&outstanding)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return outstanding, nil
}
