package circulation

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/librisys/librisys/internal/catalog"
	"github.com/librisys/librisys/internal/platform/db"
)

// Repository persists circulation records in PostgreSQL. It carries the
// catalog repository so ledger mutations join the same transaction as record
// writes.
type Repository struct {
	pool   *pgxpool.Pool
	db     db.DBTX
	ledger *catalog.Repository
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool, ledger *catalog.Repository) *Repository {
	return &Repository{pool: pool, db: pool, ledger: ledger}
}

// InTx returns a Repository bound to the given transaction.
func (r *Repository) InTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx}
}

// TxRepository exposes the statements an issue or return transaction needs.
// Ledger mutations ride in the same transaction so a failure after the
// availability decrement rolls the decrement back with everything else.
type TxRepository interface {
	InsertRecord(ctx context.Context, rec Record) error
	GetRecordForUpdate(ctx context.Context, id string) (Record, error)
	CloseRecord(ctx context.Context, id string, returnedAt time.Time, condition Condition, damageFine *float64) error
	IssueCopy(ctx context.Context, isbn string) error
	ReturnCopy(ctx context.Context, isbn string) error
}

type txRepo struct {
	rec    *Repository
	ledger *catalog.Repository
}

// WithTx runs fn inside a repeatable-read transaction with bounded retry on
// serialization conflicts.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxRetry(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{rec: r.InTx(tx), ledger: r.ledger.InTx(tx)})
	})
}

func (t *txRepo) InsertRecord(ctx context.Context, rec Record) error {
	return t.rec.InsertRecord(ctx, rec)
}

func (t *txRepo) GetRecordForUpdate(ctx context.Context, id string) (Record, error) {
	return t.rec.getRecord(ctx, id, true)
}

func (t *txRepo) CloseRecord(ctx context.Context, id string, returnedAt time.Time, condition Condition, damageFine *float64) error {
	return t.rec.CloseRecord(ctx, id, returnedAt, condition, damageFine)
}

func (t *txRepo) IssueCopy(ctx context.Context, isbn string) error {
	return t.ledger.IssueCopy(ctx, isbn)
}

func (t *txRepo) ReturnCopy(ctx context.Context, isbn string) error {
	return t.ledger.ReturnCopy(ctx, isbn)
}

// InsertRecord stores a freshly issued record.
func (r *Repository) InsertRecord(ctx context.Context, rec Record) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO circulation_records (id, isbn, member_id, issue_date, due_date)
		VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.ISBN, rec.MemberID, rec.IssueDate, rec.DueDate)
	return err
}

// GetRecord fetches a record by id.
func (r *Repository) GetRecord(ctx context.Context, id string) (Record, error) {
	return r.getRecord(ctx, id, false)
}

func (r *Repository) getRecord(ctx context.Context, id string, forUpdate bool) (Record, error) {
	query := `
		SELECT id, isbn, member_id, issue_date, due_date, actual_return_date,
		       COALESCE(condition, ''), damage_fine
		FROM circulation_records WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var rec Record
	err := r.db.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.ISBN, &rec.MemberID, &rec.IssueDate,
		&rec.DueDate, &rec.ActualReturnDate, &rec.Condition, &rec.DamageFine)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

// CloseRecord marks a record returned. The WHERE clause keeps the operation
// idempotent: a second return matches zero rows and is reported as
// ErrAlreadyReturned instead of double-incrementing availability.
func (r *Repository) CloseRecord(ctx context.Context, id string, returnedAt time.Time, condition Condition, damageFine *float64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE circulation_records
		SET actual_return_date = $2, condition = $3, damage_fine = $4
		WHERE id = $1 AND actual_return_date IS NULL`,
		id, returnedAt, string(condition), damageFine)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	if _, err := r.getRecord(ctx, id, false); err != nil {
		return err
	}
	return ErrAlreadyReturned
}

// ListByMember returns a member's loan history, most recent first.
func (r *Repository) ListByMember(ctx context.Context, memberID string) ([]Record, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, isbn, member_id, issue_date, due_date, actual_return_date,
		       COALESCE(condition, ''), damage_fine
		FROM circulation_records
		WHERE member_id = $1
		ORDER BY issue_date DESC`, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ID, &rec.ISBN, &rec.MemberID, &rec.IssueDate,
			&rec.DueDate, &rec.ActualReturnDate, &rec.Condition, &rec.DamageFine); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
