package reservation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/librisys/librisys/internal/catalog"
	"github.com/librisys/librisys/internal/circulation"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	Create(ctx context.Context, res Reservation) error
	Get(ctx context.Context, id string) (Reservation, error)
	Cancel(ctx context.Context, id string) error
	ListByMember(ctx context.Context, memberID string) ([]Reservation, error)
	ListByISBN(ctx context.Context, isbn string) ([]Reservation, error)
	ConvertTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// CatalogPort is the slice of the catalog the service needs at creation
// time; catalog.Service satisfies it.
type CatalogPort interface {
	GetTitle(ctx context.Context, isbn string) (catalog.BookTitle, error)
}

// Service coordinates reservation operations.
type Service struct {
	repo         RepositoryPort
	titles       CatalogPort
	logger       *slog.Logger
	loanPeriod   time.Duration
	storeTimeout time.Duration
	now          func() time.Time
}

// ServiceConfig groups service settings.
type ServiceConfig struct {
	LoanPeriod   time.Duration
	StoreTimeout time.Duration
}

// NewService builds a Service.
func NewService(repo RepositoryPort, titles CatalogPort, logger *slog.Logger, cfg ServiceConfig) *Service {
	loanPeriod := cfg.LoanPeriod
	if loanPeriod <= 0 {
		loanPeriod = circulation.DefaultLoanPeriod
	}
	return &Service{
		repo:         repo,
		titles:       titles,
		logger:       logger,
		loanPeriod:   loanPeriod,
		storeTimeout: cfg.StoreTimeout,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source, used by tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

// Create queues a reservation for a title. Availability is deliberately not
// checked: a reservation is a queue position, and scarce titles are exactly
// the ones members want to queue for.
func (s *Service) Create(ctx context.Context, isbn, memberID string) (Reservation, error) {
	isbn = strings.TrimSpace(isbn)
	memberID = strings.TrimSpace(memberID)
	if isbn == "" || memberID == "" {
		return Reservation{}, errors.New("reservation: isbn and member are required")
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if s.titles != nil {
		if _, err := s.titles.GetTitle(ctx, isbn); err != nil {
			return Reservation{}, err
		}
	}

	res := Reservation{
		ID:        uuid.NewString(),
		ISBN:      isbn,
		MemberID:  memberID,
		CreatedAt: s.now(),
		Status:    StatusPending,
	}
	if err := s.repo.Create(ctx, res); err != nil {
		return Reservation{}, err
	}

	if s.logger != nil {
		s.logger.Info("reservation created",
			slog.String("reservation_id", res.ID),
			slog.String("isbn", isbn),
			slog.String("member", memberID))
	}
	return res, nil
}

// Cancel withdraws a reservation. Idempotent: cancelling an already
// cancelled or completed reservation is a no-op.
func (s *Service) Cancel(ctx context.Context, id string) error {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.repo.Cancel(ctx, id)
}

// Get fetches a reservation.
func (s *Service) Get(ctx context.Context, id string) (Reservation, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.repo.Get(ctx, id)
}

// ListByMember returns a member's reservations.
func (s *Service) ListByMember(ctx context.Context, memberID string) ([]Reservation, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.repo.ListByMember(ctx, memberID)
}

// ListByISBN returns the pending queue for a title.
func (s *Service) ListByISBN(ctx context.Context, isbn string) ([]Reservation, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.repo.ListByISBN(ctx, isbn)
}

// ConvertToIssue turns a pending reservation into an open circulation
// record. All steps run in one transaction: verify PENDING under a row lock,
// claim a copy, insert the record, mark the reservation completed. If the
// claim fails the reservation stays PENDING and availability is untouched;
// if any later step fails the claim is rolled back with the rest, so no copy
// is issued twice or silently lost from the count.
func (s *Service) ConvertToIssue(ctx context.Context, id string) (circulation.Record, error) {
	now := s.now()
	due := now.Add(s.loanPeriod)

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	var rec circulation.Record
	err := s.repo.ConvertTx(ctx, func(ctx context.Context, tx TxRepository) error {
		res, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if res.Status != StatusPending {
			return ErrNotPending
		}

		if err := tx.IssueCopy(ctx, res.ISBN); err != nil {
			return err
		}

		rec = circulation.Record{
			ID:        uuid.NewString(),
			ISBN:      res.ISBN,
			MemberID:  res.MemberID,
			IssueDate: now,
			DueDate:   &due,
		}
		if err := tx.InsertRecord(ctx, rec); err != nil {
			return err
		}

		return tx.MarkCompleted(ctx, res.ID)
	})
	if err != nil {
		return circulation.Record{}, err
	}

	if s.logger != nil {
		s.logger.Info("reservation converted",
			slog.String("reservation_id", id),
			slog.String("record_id", rec.ID),
			slog.String("isbn", rec.ISBN))
	}
	return rec, nil
}
