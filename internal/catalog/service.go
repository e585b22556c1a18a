package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	CreateTitle(ctx context.Context, title BookTitle) error
	GetTitle(ctx context.Context, isbn string) (BookTitle, error)
	ListTitles(ctx context.Context) ([]BookTitle, error)
	IssueCopy(ctx context.Context, isbn string) error
	ReturnCopy(ctx context.Context, isbn string) error
}

// Service coordinates catalog and copy-ledger operations.
type Service struct {
	repo         RepositoryPort
	logger       *slog.Logger
	storeTimeout time.Duration
}

// NewService builds a Service. storeTimeout bounds every store call; zero
// disables the bound.
func NewService(repo RepositoryPort, logger *slog.Logger, storeTimeout time.Duration) *Service {
	return &Service{repo: repo, logger: logger, storeTimeout: storeTimeout}
}

func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

// CreateTitle registers a new title with all copies available.
func (s *Service) CreateTitle(ctx context.Context, title BookTitle) (BookTitle, error) {
	title.ISBN = strings.TrimSpace(title.ISBN)
	if title.ISBN == "" {
		return BookTitle{}, errors.New("catalog: isbn is required")
	}
	if strings.TrimSpace(title.Title) == "" {
		return BookTitle{}, errors.New("catalog: title name is required")
	}
	if title.TotalCopies <= 0 {
		return BookTitle{}, ErrInvalidCopyCount
	}
	title.AvailableCopies = title.TotalCopies

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.repo.CreateTitle(ctx, title); err != nil {
		return BookTitle{}, err
	}
	if s.logger != nil {
		s.logger.Info("title registered", slog.String("isbn", title.ISBN), slog.Int("copies", title.TotalCopies))
	}
	return title, nil
}

// GetTitle fetches a title by ISBN.
func (s *Service) GetTitle(ctx context.Context, isbn string) (BookTitle, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.repo.GetTitle(ctx, isbn)
}

// ListTitles returns the catalog.
func (s *Service) ListTitles(ctx context.Context) ([]BookTitle, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.repo.ListTitles(ctx)
}

// IssueCopy claims one available copy of the title.
func (s *Service) IssueCopy(ctx context.Context, isbn string) error {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.repo.IssueCopy(ctx, isbn)
}

// ReturnCopy restores one copy of the title.
func (s *Service) ReturnCopy(ctx context.Context, isbn string) error {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.repo.ReturnCopy(ctx, isbn)
}
