package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-retail/meridian/internal/accruals"
	"github.com/meridian-retail/meridian/internal/app"
	"github.com/meridian-retail/meridian/internal/assets"
	"github.com/meridian-retail/meridian/internal/batch"
	jobmetrics "github.com/meridian-retail/meridian/internal/jobs"
	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/ledger/accounts"
	"github.com/meridian-retail/meridian/internal/ledger/pg"
	"github.com/meridian-retail/meridian/internal/ledger/reports"
	"github.com/meridian-retail/meridian/internal/platform/cache"
	"github.com/meridian-retail/meridian/internal/shared"
	"github.com/meridian-retail/meridian/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	uow := pg.NewUnitOfWork(pool)
	reads := pg.NewReads(pool)
	accountRepo := pg.NewAccountRepo(pool)

	std, err := accounts.ResolveStandard(ctx, accountRepo, cfg.Accounts.Codes())
	if err != nil {
		logger.Error("resolve standard accounts", slog.Any("error", err))
		os.Exit(1)
	}

	poster := ledger.NewService(uow)
	metrics := jobmetrics.NewMetrics(nil)
	locker := shared.NewLocker(redisClient)

	batchService := batch.NewService(pg.NewBatchRepo(pool), uow, poster, cfg.Accounts.Cash, logger)
	assetsService := assets.NewService(pg.NewAssetRepo(pool), uow, poster, std)
	accrualsService := accruals.NewService(pg.NewAccrualRepo(pool), poster, std)

	checker := &jobs.IntegrityChecker{
		Reports:        reports.NewService(reads),
		Reads:          reads,
		ReceivableCode: cfg.Accounts.AccountsReceivable,
		PayableCode:    cfg.Accounts.AccountsPayable,
		Logger:         logger,
	}

	depreciationTask, err := jobs.NewDepreciationRunTask(time.Time{})
	if err != nil {
		logger.Error("build depreciation task", slog.Any("error", err))
		os.Exit(1)
	}
	amortizationTask, err := jobs.NewAmortizationRunTask(time.Time{})
	if err != nil {
		logger.Error("build amortization task", slog.Any("error", err))
		os.Exit(1)
	}
	integrityTask, err := jobs.NewLedgerIntegrityTask(time.Time{})
	if err != nil {
		logger.Error("build integrity task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: batch.TaskTypeExecute, Handler: batch.ExecuteTaskHandler(batchService, locker, logger)},
			{Type: jobs.TaskDepreciationRun, Handler: jobs.DepreciationRunHandler(assetsService, metrics, logger)},
			{Type: jobs.TaskAmortizationRun, Handler: jobs.AmortizationRunHandler(accrualsService, metrics, logger)},
			{Type: jobs.TaskLedgerIntegrity, Handler: jobs.LedgerIntegrityHandler(checker, metrics, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 2 1 * *", Task: depreciationTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 2 1 * *", Task: amortizationTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "15 1 * * *", Task: integrityTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
