package circulation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetRecord(ctx context.Context, id string) (Record, error)
	ListByMember(ctx context.Context, memberID string) ([]Record, error)
}

// FinePort reports a member's outstanding overdue fine as of an explicit
// instant. The engine only reports the amount; whether payment is demanded
// before the return commits is the front desk's call.
type FinePort interface {
	OutstandingAsOf(ctx context.Context, memberID string, now time.Time) (float64, error)
}

// Service coordinates direct issues and returns.
type Service struct {
	repo         RepositoryPort
	fines        FinePort
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

// DefaultLoanPeriod applies when no loan period is configured.
const DefaultLoanPeriod = 10 * 24 * time.Hour

// NewService builds a Service.
func NewService(repo RepositoryPort, fines FinePort, logger *slog.Logger, cfg ServiceConfig) *Service {
	loanPeriod := cfg.LoanPeriod
	if loanPeriod <= 0 {
		loanPeriod = DefaultLoanPeriod
	}
	return &Service{
		repo:         repo,
		fines:        fines,
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

// IssueInput describes a direct issue request.
type IssueInput struct {
	ISBN     string
	MemberID string
}

// IssueDirect lends a copy without a prior reservation: one transaction
// claims a copy and creates the open record, so a failed insert rolls the
// availability decrement back.
func (s *Service) IssueDirect(ctx context.Context, input IssueInput) (Record, error) {
	input.ISBN = strings.TrimSpace(input.ISBN)
	input.MemberID = strings.TrimSpace(input.MemberID)
	if input.ISBN == "" || input.MemberID == "" {
		return Record{}, errors.New("circulation: isbn and member are required")
	}

	now := s.now()
	due := now.Add(s.loanPeriod)
	rec := Record{
		ID:        uuid.NewString(),
		ISBN:      input.ISBN,
		MemberID:  input.MemberID,
		IssueDate: now,
		DueDate:   &due,
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.IssueCopy(ctx, rec.ISBN); err != nil {
			return err
		}
		return tx.InsertRecord(ctx, rec)
	})
	if err != nil {
		return Record{}, err
	}

	if s.logger != nil {
		s.logger.Info("copy issued",
			slog.String("record_id", rec.ID),
			slog.String("isbn", rec.ISBN),
			slog.String("member", rec.MemberID))
	}
	return rec, nil
}

// ReturnInput describes a return request.
type ReturnInput struct {
	RecordID   string
	Condition  Condition
	DamageFine *float64
}

// ReturnResult carries the closed record together with the fine figures
// computed from the same now snapshot as the return itself.
type ReturnResult struct {
	Record          Record
	OutstandingFine float64
	DamageFine      float64
}

// RecordReturn closes an open record and restores one copy. Calling it twice
// for the same record fails with ErrAlreadyReturned on the second call;
// availability is incremented exactly once.
func (s *Service) RecordReturn(ctx context.Context, input ReturnInput) (ReturnResult, error) {
	if !input.Condition.Valid() {
		return ReturnResult{}, ErrInvalidCondition
	}
	if input.DamageFine != nil && *input.DamageFine < 0 {
		return ReturnResult{}, ErrInvalidDamageFine
	}

	now := s.now()

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	current, err := s.repo.GetRecord(ctx, input.RecordID)
	if err != nil {
		return ReturnResult{}, err
	}
	if !current.Open() {
		return ReturnResult{}, ErrAlreadyReturned
	}

	// Fine is computed against the same now that becomes the return date, so
	// the figure shown at the desk and the billed lateness never diverge.
	var outstanding float64
	if s.fines != nil {
		outstanding, err = s.fines.OutstandingAsOf(ctx, current.MemberID, now)
		if err != nil {
			return ReturnResult{}, err
		}
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rec, err := tx.GetRecordForUpdate(ctx, input.RecordID)
		if err != nil {
			return err
		}
		if !rec.Open() {
			return ErrAlreadyReturned
		}
		if err := tx.CloseRecord(ctx, rec.ID, now, input.Condition, input.DamageFine); err != nil {
			return err
		}
		return tx.ReturnCopy(ctx, rec.ISBN)
	})
	if err != nil {
		return ReturnResult{}, err
	}

	closed := current
	closed.ActualReturnDate = &now
	closed.Condition = input.Condition
	closed.DamageFine = input.DamageFine

	result := ReturnResult{Record: closed, OutstandingFine: outstanding}
	if input.DamageFine != nil {
		result.DamageFine = *input.DamageFine
	}

	if s.logger != nil {
		s.logger.Info("copy returned",
			slog.String("record_id", closed.ID),
			slog.String("isbn", closed.ISBN),
			slog.String("condition", string(input.Condition)),
			slog.Float64("outstanding_fine", outstanding))
	}
	return result, nil
}

// MemberLoans returns a member's loan history.
func (s *Service) MemberLoans(ctx context.Context, memberID string) ([]Record, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.repo.ListByMember(ctx, memberID)
}
