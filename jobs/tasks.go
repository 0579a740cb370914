package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-retail/meridian/internal/accruals"
	"github.com/meridian-retail/meridian/internal/assets"
	jobmetrics "github.com/meridian-retail/meridian/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskDepreciationRun posts the monthly straight-line depreciation voucher.
	TaskDepreciationRun = "depreciation:run"
	// TaskAmortizationRun recognizes the next installment of every active
	// prepaid-expense and unearned-revenue schedule.
	TaskAmortizationRun = "accruals:amortize"
	// TaskLedgerIntegrity runs the nightly ledger self-checks.
	TaskLedgerIntegrity = "gl:integrity"
)

// SystemActorID identifies vouchers created by scheduled jobs rather than a
// person. Actor id 1 is reserved for the scheduler; posting validation
// rejects a zero actor.
const SystemActorID = 1

// ScheduledPayload carries scheduling metadata for cron-driven tasks. Cron
// registrations leave ScheduledFor zero since the task body is built once at
// worker startup; handlers then use the delivery time.
type ScheduledPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// At resolves the effective run time.
func (p ScheduledPayload) At() time.Time {
	if p.ScheduledFor.IsZero() {
		return time.Now().UTC()
	}
	return p.ScheduledFor
}

func newScheduledTask(taskType string, at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ScheduledPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body, asynq.Queue(QueueDefault)), nil
}

// NewDepreciationRunTask constructs the monthly depreciation task.
func NewDepreciationRunTask(at time.Time) (*asynq.Task, error) {
	return newScheduledTask(TaskDepreciationRun, at)
}

// NewAmortizationRunTask constructs the monthly amortization task.
func NewAmortizationRunTask(at time.Time) (*asynq.Task, error) {
	return newScheduledTask(TaskAmortizationRun, at)
}

// NewLedgerIntegrityTask constructs the nightly integrity-check task.
func NewLedgerIntegrityTask(at time.Time) (*asynq.Task, error) {
	return newScheduledTask(TaskLedgerIntegrity, at)
}

// DepreciationRunHandler returns the asynq handler for TaskDepreciationRun.
func DepreciationRunHandler(service *assets.Service, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ScheduledPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		tracker := metrics.Track("depreciation_run")
		res, err := service.RunDepreciation(ctx, payload.At(), SystemActorID)
		if err != nil {
			logger.Error("depreciation run", slog.Any("error", err))
			return tracker.End(err)
		}
		logger.Info("depreciation run complete",
			slog.Int("assets", res.Assets),
			slog.Float64("amount", res.Total))
		return tracker.End(nil)
	}
}

// AmortizationRunHandler returns the asynq handler for TaskAmortizationRun.
func AmortizationRunHandler(service *accruals.Service, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ScheduledPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		tracker := metrics.Track("amortization_run")
		res, err := service.RunAmortization(ctx, payload.At(), SystemActorID)
		if err != nil {
			logger.Error("amortization run", slog.Any("error", err))
			return tracker.End(err)
		}
		logger.Info("amortization run complete",
			slog.Int("schedules", res.Schedules),
			slog.Float64("amount", res.Recognized))
		return tracker.End(nil)
	}
}

// LedgerIntegrityHandler returns the asynq handler for TaskLedgerIntegrity.
func LedgerIntegrityHandler(checker *IntegrityChecker, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ScheduledPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		tracker := metrics.Track("gl_integrity")
		if err := checker.Run(ctx, payload.At()); err != nil {
			logger.Error("ledger integrity check failed", slog.Any("error", err))
			return tracker.End(err)
		}
		return tracker.End(nil)
	}
}
