package reservation

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/librisys/librisys/internal/catalog"
	"github.com/librisys/librisys/internal/circulation"
	"github.com/librisys/librisys/internal/platform/db"
)

// Repository persists reservations in PostgreSQL.
type Repository struct {
	pool    *pgxpool.Pool
	db      db.DBTX
	ledger  *catalog.Repository
	records *circulation.Repository
}

// NewRepository constructs a Repository. The ledger and records repositories
// participate in the conversion transaction.
func NewRepository(pool *pgxpool.Pool, ledger *catalog.Repository, records *circulation.Repository) *Repository {
	return &Repository{pool: pool, db: pool, ledger: ledger, records: records}
}

// InTx returns a Repository bound to the given transaction.
func (r *Repository) InTx(tx pgx.Tx) *Repository {
	return &Repository{db: tx}
}

// Create stores a pending reservation.
func (r *Repository) Create(ctx context.Context, res Reservation) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO reservations (id, isbn, member_id, created_at, status)
		VALUES ($1, $2, $3, $4, $5)`,
		res.ID, res.ISBN, res.MemberID, res.CreatedAt, string(res.Status))
	return err
}

// Get fetches a reservation by id.
func (r *Repository) Get(ctx context.Context, id string) (Reservation, error) {
	return r.get(ctx, id, false)
}

func (r *Repository) get(ctx context.Context, id string, forUpdate bool) (Reservation, error) {
	query := `SELECT id, isbn, member_id, created_at, status FROM reservations WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}
	var res Reservation
	err := r.db.QueryRow(ctx, query, id).
		Scan(&res.ID, &res.ISBN, &res.MemberID, &res.CreatedAt, &res.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Reservation{}, ErrNotFound
		}
		return Reservation{}, err
	}
	return res, nil
}

// Cancel marks a pending reservation cancelled. Cancelling an already
// cancelled or completed reservation matches zero rows and is a no-op.
func (r *Repository) Cancel(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE reservations SET status = $2
		WHERE id = $1 AND status = $3`,
		id, string(StatusCancelled), string(StatusPending))
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	_, err = r.get(ctx, id, false)
	return err
}

// ListByMember returns a member's reservations, newest first.
func (r *Repository) ListByMember(ctx context.Context, memberID string) ([]Reservation, error) {
	return r.list(ctx, `
		SELECT id, isbn, member_id, created_at, status FROM reservations
		WHERE member_id = $1 ORDER BY created_at DESC`, memberID)
}

// ListByISBN returns the pending queue for a title, oldest first.
func (r *Repository) ListByISBN(ctx context.Context, isbn string) ([]Reservation, error) {
	return r.list(ctx, `
		SELECT id, isbn, member_id, created_at, status FROM reservations
		WHERE isbn = $1 AND status = 'PENDING' ORDER BY created_at`, isbn)
}

func (r *Repository) list(ctx context.Context, query string, arg any) ([]Reservation, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reservation
	for rows.Next() {
		var res Reservation
		if err := rows.Scan(&res.ID, &res.ISBN, &res.MemberID, &res.CreatedAt, &res.Status); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// TxRepository exposes the statements the conversion transaction needs.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id string) (Reservation, error)
	MarkCompleted(ctx context.Context, id string) error
	IssueCopy(ctx context.Context, isbn string) error
	InsertRecord(ctx context.Context, rec circulation.Record) error
}

type txRepo struct {
	res     *Repository
	ledger  *catalog.Repository
	records *circulation.Repository
}

// ConvertTx runs the reservation-to-issue steps inside one repeatable-read
// transaction with bounded conflict retry. A failure at any step rolls back
// the whole conversion, so the availability decrement is never stranded.
func (r *Repository) ConvertTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxRetry(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{
			res:     r.InTx(tx),
			ledger:  r.ledger.InTx(tx),
			records: r.records.InTx(tx),
		})
	})
}

func (t *txRepo) GetForUpdate(ctx context.Context, id string) (Reservation, error) {
	return t.res.get(ctx, id, true)
}

func (t *txRepo) MarkCompleted(ctx context.Context, id string) error {
	tag, err := t.res.db.Exec(ctx, `
		UPDATE reservations SET status = $2
		WHERE id = $1 AND status = $3`,
		id, string(StatusCompleted), string(StatusPending))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotPending
	}
	return nil
}

func (t *txRepo) IssueCopy(ctx context.Context, isbn string) error {
	return t.ledger.IssueCopy(ctx, isbn)
}

func (t *txRepo) InsertRecord(ctx context.Context, rec circulation.Record) error {
	return t.records.InsertRecord(ctx, rec)
}
