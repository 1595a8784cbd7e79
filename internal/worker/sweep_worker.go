package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/voicecheck/api/internal/metrics"
	"github.com/voicecheck/api/internal/model"
	"github.com/voicecheck/api/internal/storage"
)

// SweepWorker removes stale scratch files left behind by crashed requests
type SweepWorker struct {
	scratch *storage.Scratch
	maxAge  time.Duration
	metrics *metrics.Metrics
}

// NewSweepWorker creates a new sweep worker. m may be nil.
func NewSweepWorker(scratch *storage.Scratch, maxAge time.Duration, m *metrics.Metrics) *SweepWorker {
	return &SweepWorker{
		scratch: scratch,
		maxAge:  maxAge,
		metrics: m,
	}
}

// NewSweepTask builds a scratch:sweep task. A zero maxAge uses the worker default.
func NewSweepTask(maxAge time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(model.ScratchSweepPayload{
		MaxAgeSeconds: int(maxAge.Seconds()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sweep payload: %w", err)
	}
	return asynq.NewTask(model.TaskTypeScratchSweep, payload, asynq.Queue(QueueMaintenance), asynq.MaxRetry(0)), nil
}

// ProcessTask handles scratch:sweep tasks
func (w *SweepWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.ScratchSweepPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("failed to unmarshal sweep payload: %w", err)
		}
	}

	maxAge := w.maxAge
	if payload.MaxAgeSeconds > 0 {
		maxAge = time.Duration(payload.MaxAgeSeconds) * time.Second
	}

	removed, err := w.Sweep(maxAge)
	if err != nil {
		return err
	}
	if removed > 0 {
		log.Printf("Scratch sweep removed %d stale file(s) from %s", removed, w.scratch.Dir())
	}
	return nil
}

// Sweep runs one sweep outside the task queue, e.g. at startup
func (w *SweepWorker) Sweep(maxAge time.Duration) (int, error) {
	removed, err := w.scratch.Sweep(maxAge)
	w.metrics.AddSwept(removed)
	if err != nil {
		return removed, fmt.Errorf("scratch sweep failed: %w", err)
	}
	return removed, nil
}
