package fines

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	ListBillable(ctx context.Context) ([]BillableRecord, error)
	ListBillableByMember(ctx context.Context, memberID string) ([]BillableRecord, error)
	GetSettings(ctx context.Context) (Settings, error)
	UpsertBalance(ctx context.Context, memberID string, outstanding float64, computedAt time.Time) error
	GetBalance(ctx context.Context, memberID string) (float64, error)
}

// Service wraps the pure engine with persistence, caching and logging.
type Service struct {
	repo         RepositoryPort
	cache        *Cache
	logger       *slog.Logger
	storeTimeout time.Duration
	now          func() time.Time
}

// NewService builds a Service.
func NewService(repo RepositoryPort, cache *Cache, logger *slog.Logger, storeTimeout time.Duration) *Service {
	return &Service{
		repo:         repo,
		cache:        cache,
		logger:       logger,
		storeTimeout: storeTimeout,
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

func (s *Service) logSkipped(skipped []SkippedRecord) {
	if s.logger == nil {
		return
	}
	for _, skip := range skipped {
		s.logger.Warn("skipping record with malformed timestamp",
			slog.String("record_id", skip.RecordID),
			slog.String("member", skip.MemberID),
			slog.String("raw", skip.Raw),
			slog.Any("error", skip.Err))
	}
}

// OutstandingAsOf computes a member's overdue fine against an explicit
// instant, bypassing every cache. The return flow uses this so the figure it
// reports shares the return's now snapshot.
func (s *Service) OutstandingAsOf(ctx context.Context, memberID string, now time.Time) (float64, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	records, err := s.repo.ListBillableByMember(ctx, memberID)
	if err != nil {
		return 0, err
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return 0, err
	}

	totals, skipped := ComputeFines(records, settings.PerDayFine, now)
	s.logSkipped(skipped)
	return totals[memberID], nil
}

// CurrentFine returns a member's outstanding fine for display, serving from
// cache when possible and refreshing it after a miss.
func (s *Service) CurrentFine(ctx context.Context, memberID string) (float64, error) {
	if value, ok, err := s.cache.Get(ctx, memberID); err == nil && ok {
		return value, nil
	} else if err != nil && s.logger != nil {
		s.logger.Warn("fine cache read failed", slog.Any("error", err))
	}

	outstanding, err := s.OutstandingAsOf(ctx, memberID, s.now())
	if err != nil {
		return 0, err
	}
	if err := s.cache.Set(ctx, memberID, outstanding); err != nil && s.logger != nil {
		s.logger.Warn("fine cache write failed", slog.Any("error", err))
	}
	return outstanding, nil
}

// RecomputeSummary reports the outcome of a full recomputation pass.
type RecomputeSummary struct {
	Members int
	Skipped int
}

const recomputeConcurrency = 8

// RecomputeAll rescans every billable record, recomputes per-member totals
// and upserts the derived balances. Members whose loans are all back on time
// get an explicit zero, resetting any stale balance.
func (s *Service) RecomputeAll(ctx context.Context) (RecomputeSummary, error) {
	now := s.now()

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	records, err := s.repo.ListBillable(ctx)
	if err != nil {
		return RecomputeSummary{}, err
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return RecomputeSummary{}, err
	}

	totals, skipped := ComputeFines(records, settings.PerDayFine, now)
	s.logSkipped(skipped)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(recomputeConcurrency)
	for memberID, outstanding := range totals {
		memberID, outstanding := memberID, outstanding
		g.Go(func() error {
			if err := s.repo.UpsertBalance(gctx, memberID, outstanding, now); err != nil {
				return err
			}
			if err := s.cache.Set(gctx, memberID, outstanding); err != nil && s.logger != nil {
				s.logger.Warn("fine cache write failed", slog.String("member", memberID), slog.Any("error", err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return RecomputeSummary{}, err
	}

	if s.logger != nil {
		s.logger.Info("fine balances recomputed",
			slog.Int("members", len(totals)),
			slog.Int("skipped_records", len(skipped)))
	}
	return RecomputeSummary{Members: len(totals), Skipped: len(skipped)}, nil
}

// PerDayFine exposes the configured rate.
func (s *Service) PerDayFine(ctx context.Context) (float64, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return 0, err
	}
	return settings.PerDayFine, nil
}
