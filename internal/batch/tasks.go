package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/shared"
)

// TaskTypeExecute is the queue task type for running a batch job.
const TaskTypeExecute = "batch:execute"

// ExecutePayload identifies the job to run and who asked for it.
type ExecutePayload struct {
	JobID   int64 `json:"job_id"`
	ActorID int64 `json:"actor_id"`
}

// NewExecuteTask constructs an Asynq task for a batch run.
func NewExecuteTask(jobID, actorID int64) (*asynq.Task, error) {
	data, err := json.Marshal(ExecutePayload{JobID: jobID, ActorID: actorID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeExecute, data, asynq.MaxRetry(3)), nil
}

// ExecuteTaskHandler returns the asynq handler for TaskTypeExecute. The redis
// lock keeps two workers from running the same job concurrently; a held lock
// surfaces as an error so asynq retries after the running execution finishes.
func ExecuteTaskHandler(service *Service, locker *shared.Locker, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ExecutePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		release, ok, err := locker.Acquire(ctx, shared.BatchLockKey(payload.JobID), 5*time.Minute)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("batch job %d is already running", payload.JobID)
		}
		defer release()
		result, err := service.Execute(ctx, payload.JobID, payload.ActorID)
		if err != nil {
			logger.Error("batch execution", slog.Any("error", err), slog.Int64("job_id", payload.JobID))
			return err
		}
		logger.Info("batch executed",
			slog.Int64("job_id", result.JobID),
			slog.String("status", string(result.Status)),
			slog.Int("posted", result.Posted),
			slog.Int("failed", result.Failed))
		return nil
	}
}

func ledgerEntryType(raw string) ledger.EntryType {
	if raw == "CREDIT" {
		return ledger.EntryCredit
	}
	return ledger.EntryDebit
}
