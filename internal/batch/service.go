package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/meridian-retail/meridian/internal/ledger"
)

// Service creates and executes batch jobs. cashCode is the account credited
// by expense_import items.
type Service struct {
	repo     Repository
	uow      ledger.UnitOfWork
	poster   *ledger.Service
	cashCode string
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds the batch service.
func NewService(repo Repository, uow ledger.UnitOfWork, poster *ledger.Service, cashCode string, logger *slog.Logger) *Service {
	return &Service{repo: repo, uow: uow, poster: poster, cashCode: cashCode, logger: logger, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateInput describes a new batch job. An empty Operation means
// journal_import.
type CreateInput struct {
	Description string
	Operation   Operation
	CreatedBy   int64
	Items       []ItemInput
}

// ItemInput is one posting in a new job.
type ItemInput struct {
	Date        time.Time
	Description string
	Lines       []ItemLine
}

// Create stores a job with all items PENDING. Item payloads are validated
// structurally here; account existence and balance checks happen at
// execution time, per item.
func (s *Service) Create(ctx context.Context, in CreateInput) (Job, error) {
	if len(in.Items) == 0 {
		return Job{}, fmt.Errorf("%w: at least one item required", ledger.ErrValidation)
	}
	op := in.Operation
	if op == "" {
		op = OpJournalImport
	}
	if op != OpJournalImport && op != OpExpenseImport {
		return Job{}, fmt.Errorf("%w: unknown operation %q", ledger.ErrValidation, op)
	}
	job := Job{
		Description: in.Description,
		Operation:   op,
		Status:      JobPending,
		CreatedBy:   in.CreatedBy,
		CreatedAt:   s.now(),
	}
	for i, item := range in.Items {
		if err := validateItem(op, i+1, item); err != nil {
			return Job{}, err
		}
		job.Items = append(job.Items, Item{
			Seq:         i + 1,
			Date:        item.Date,
			Description: item.Description,
			Lines:       item.Lines,
			Status:      ItemPending,
		})
	}
	return s.repo.CreateJob(ctx, job)
}

func validateItem(op Operation, seq int, item ItemInput) error {
	for _, line := range item.Lines {
		if line.AccountCode == "" {
			return fmt.Errorf("%w: item %d has a line without an account code", ledger.ErrValidation, seq)
		}
		if line.Amount <= 0 {
			return fmt.Errorf("%w: item %d has a non-positive amount", ledger.ErrValidation, seq)
		}
	}
	if op == OpExpenseImport {
		// One expense debit per item; the cash leg is added at execution.
		if len(item.Lines) != 1 {
			return fmt.Errorf("%w: item %d must carry exactly one expense line", ledger.ErrValidation, seq)
		}
		if item.Lines[0].Type != ledger.EntryDebit {
			return fmt.Errorf("%w: item %d expense line must be a debit", ledger.ErrValidation, seq)
		}
		return nil
	}
	if len(item.Lines) < 2 {
		return fmt.Errorf("%w: item %d needs at least two lines", ledger.ErrTooFewLines, seq)
	}
	var debits, credits float64
	for _, line := range item.Lines {
		switch line.Type {
		case ledger.EntryDebit:
			debits += line.Amount
		case ledger.EntryCredit:
			credits += line.Amount
		default:
			return fmt.Errorf("%w: item %d has an invalid entry type", ledger.ErrValidation, seq)
		}
	}
	if !ledger.WithinEpsilon(debits, credits) {
		return fmt.Errorf("%w: item %d debits %.2f != credits %.2f", ledger.ErrUnbalanced, seq, debits, credits)
	}
	return nil
}

// Get loads a job with its items.
func (s *Service) Get(ctx context.Context, id int64) (Job, error) {
	return s.repo.GetJob(ctx, id)
}

// List returns all jobs, newest first.
func (s *Service) List(ctx context.Context) ([]Job, error) {
	return s.repo.ListJobs(ctx)
}

// Delete removes a job that has not started.
func (s *Service) Delete(ctx context.Context, id int64) error {
	job, err := s.repo.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job.Status != JobPending {
		return fmt.Errorf("%w: job %d is %s", ledger.ErrInvalidStatus, id, job.Status)
	}
	return s.repo.DeleteJob(ctx, id)
}

// Result summarizes an execution run.
type Result struct {
	JobID  int64
	Status JobStatus
	Posted int
	Failed int
}

// Execute runs every unposted item in its own transaction. A failing item is
// recorded and skipped; the run continues. Only PENDING jobs start a run;
// PROCESSING is accepted so a run that crashed mid-way can be resumed, with
// already-posted items detected through their source link and left alone.
// Finished jobs, with or without errors, stay finished.
func (s *Service) Execute(ctx context.Context, jobID, actorID int64) (Result, error) {
	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return Result{}, err
	}
	switch job.Status {
	case JobPending, JobProcessing:
	default:
		return Result{}, fmt.Errorf("%w: job %d is %s", ledger.ErrInvalidStatus, jobID, job.Status)
	}

	startedAt := s.now()
	if err := s.repo.UpdateJobStatus(ctx, jobID, JobProcessing, &startedAt, nil); err != nil {
		return Result{}, err
	}

	result := Result{JobID: jobID}
	for _, item := range job.Items {
		if item.Status == ItemPosted {
			result.Posted++
			continue
		}
		voucherID, postErr := s.executeItem(ctx, job, item, actorID)
		if postErr != nil {
			result.Failed++
			s.logger.Warn("batch item failed",
				slog.Int64("job_id", jobID),
				slog.Int("seq", item.Seq),
				slog.Any("error", postErr))
			if err := s.repo.UpdateItemResult(ctx, item.ID, ItemFailed, postErr.Error(), nil); err != nil {
				return Result{}, err
			}
			continue
		}
		result.Posted++
		if err := s.repo.UpdateItemResult(ctx, item.ID, ItemPosted, "", voucherID); err != nil {
			return Result{}, err
		}
	}

	switch {
	case result.Failed == 0:
		result.Status = JobCompleted
	case result.Posted == 0:
		result.Status = JobFailed
	default:
		result.Status = JobCompletedWithErrors
	}
	finishedAt := s.now()
	if err := s.repo.UpdateJobStatus(ctx, jobID, result.Status, nil, &finishedAt); err != nil {
		return Result{}, err
	}
	return result, nil
}

// executeItem posts one item in its own unit of work. An existing source
// link means a previous run already posted it. expense_import items get
// their cash credit leg added here.
func (s *Service) executeItem(ctx context.Context, job Job, item Item, actorID int64) (*int64, error) {
	itemLines := item.Lines
	if job.Operation == OpExpenseImport {
		expense := item.Lines[0]
		itemLines = append([]ItemLine{expense}, ItemLine{
			AccountCode: s.cashCode,
			Type:        ledger.EntryCredit,
			Amount:      expense.Amount,
			Description: expense.Description,
		})
	}
	var voucherID *int64
	err := s.uow.Run(ctx, func(ctx context.Context, tx ledger.Tx) error {
		lines := make([]ledger.PostingLineInput, 0, len(itemLines))
		for _, line := range itemLines {
			account, err := tx.Accounts().GetByCodeForUpdate(ctx, line.AccountCode)
			if err != nil {
				return err
			}
			lines = append(lines, ledger.PostingLineInput{
				AccountID:   account.ID,
				Type:        line.Type,
				Amount:      line.Amount,
				Description: line.Description,
			})
		}
		voucher, err := s.poster.PostTx(ctx, tx, ledger.PostingInput{
			Date:        item.Date,
			Description: item.Description,
			SourceType:  "batch_item",
			SourceID:    fmt.Sprintf("%d-%d", job.ID, item.ID),
			PostedBy:    actorID,
			Lines:       lines,
		})
		if err != nil {
			return err
		}
		id := voucher.ID
		voucherID = &id
		return nil
	})
	if errors.Is(err, ledger.ErrSourceAlreadyLinked) {
		// A prior run posted this item but crashed before recording it.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return voucherID, nil
}
