package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/librisys/librisys/internal/fines"
)

// FinesRecomputeJob rebuilds every member's fine balance from record history.
type FinesRecomputeJob struct {
	service *fines.Service
	logger  *slog.Logger
}

// NewFinesRecomputeJob constructs the job.
func NewFinesRecomputeJob(service *fines.Service, logger *slog.Logger) *FinesRecomputeJob {
	return &FinesRecomputeJob{service: service, logger: logger}
}

// Handle processes TaskFinesRecompute tasks.
func (j *FinesRecomputeJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload FinesRecomputePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	summary, err := j.service.RecomputeAll(ctx)
	if err != nil {
		if j.logger != nil {
			j.logger.Error("fines recompute failed", slog.Any("error", err))
		}
		return err
	}

	if j.logger != nil {
		j.logger.Info("fines recompute finished",
			slog.String("reason", payload.Reason),
			slog.Int("members", summary.Members),
			slog.Int("skipped_records", summary.Skipped))
	}
	return nil
}
