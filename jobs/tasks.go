package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskFinesRecompute is the task type for the full fine recomputation.
	TaskFinesRecompute = "fines:recompute"
)

// FinesRecomputePayload describes a recomputation request.
type FinesRecomputePayload struct {
	Reason string `json:"reason"`
}

// NewFinesRecomputeTask constructs an Asynq task.
func NewFinesRecomputeTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(FinesRecomputePayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFinesRecompute, data), nil
}
