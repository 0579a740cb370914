package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-retail/meridian/cmd/meridian/cli"
	"github.com/meridian-retail/meridian/internal/accruals"
	"github.com/meridian-retail/meridian/internal/ap"
	"github.com/meridian-retail/meridian/internal/app"
	"github.com/meridian-retail/meridian/internal/ar"
	"github.com/meridian-retail/meridian/internal/assets"
	"github.com/meridian-retail/meridian/internal/batch"
	"github.com/meridian-retail/meridian/internal/inventory"
	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/ledger/accounts"
	"github.com/meridian-retail/meridian/internal/ledger/periods"
	"github.com/meridian-retail/meridian/internal/ledger/pg"
	"github.com/meridian-retail/meridian/internal/ledger/reports"
	"github.com/meridian-retail/meridian/internal/observability"
	"github.com/meridian-retail/meridian/internal/payroll"
	"github.com/meridian-retail/meridian/internal/purchases"
	"github.com/meridian-retail/meridian/internal/recon"
	"github.com/meridian-retail/meridian/internal/sales"
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

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		os.Exit(runJobsCommand(ctx, cfg, os.Args[2:]))
	}

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
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
	voucherHandler := ledger.NewHandler(logger, poster)

	accountsService := accounts.NewService(accountRepo)
	accountsHandler := accounts.NewHandler(logger, accountsService)

	periodsService := periods.NewService(uow, poster, reads, std.RetainedEarnings)
	periodsHandler := periods.NewHandler(logger, periodsService)

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportsService := reports.NewService(reads)
	reportsHandler := reports.NewHandler(logger, reportsService, reportCache)

	arService := ar.NewService(uow, poster, reads, std.Cash, std.AccountsReceivable)
	arHandler := ar.NewHandler(logger, arService)

	apService := ap.NewService(uow, poster, reads, std.Cash, std.AccountsPayable)
	apHandler := ap.NewHandler(logger, apService)

	salesService := sales.NewService(uow, poster, arService, std)
	salesHandler := sales.NewHandler(logger, salesService)

	purchasesService := purchases.NewService(uow, poster, apService, std)
	purchasesHandler := purchases.NewHandler(logger, purchasesService)

	inventoryService := inventory.NewService(uow, poster, reads, std.Inventory, std.CostOfGoodsSold)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	payrollService := payroll.NewService(uow, poster, std)
	payrollHandler := payroll.NewHandler(logger, payrollService)

	assetsService := assets.NewService(pg.NewAssetRepo(pool), uow, poster, std)
	assetsHandler := assets.NewHandler(logger, assetsService)

	accrualsService := accruals.NewService(pg.NewAccrualRepo(pool), poster, std)
	accrualsHandler := accruals.NewHandler(logger, accrualsService)

	reconService := recon.NewService(pg.NewReconRepo(pool), reads, uow, poster, std.ReconAdjustments)
	reconHandler := recon.NewHandler(logger, reconService)

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()

	batchService := batch.NewService(pg.NewBatchRepo(pool), uow, poster, cfg.Accounts.Cash, logger)
	batchHandler := batch.NewHandler(logger, batchService, asynqClient)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Metrics:          metrics,
		VoucherHandler:   voucherHandler,
		AccountsHandler:  accountsHandler,
		PeriodsHandler:   periodsHandler,
		ReportsHandler:   reportsHandler,
		ARHandler:        arHandler,
		APHandler:        apHandler,
		SalesHandler:     salesHandler,
		PurchasesHandler: purchasesHandler,
		InventoryHandler: inventoryHandler,
		PayrollHandler:   payrollHandler,
		AssetsHandler:    assetsHandler,
		AccrualsHandler:  accrualsHandler,
		ReconHandler:     reconHandler,
		BatchHandler:     batchHandler,
		JobsHandler:      jobsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// runJobsCommand handles `meridian jobs trigger <task>` and `meridian jobs stats`.
func runJobsCommand(ctx context.Context, cfg *app.Config, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: meridian jobs [trigger <task>|stats]")
		return 2
	}
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer jobsCLI.Close()

	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: meridian jobs trigger <task>")
			return 2
		}
		info, err := jobsCLI.Trigger(ctx, args[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return 0
	case "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		return 0
	default:
		fmt.Fprintln(os.Stderr, "usage: meridian jobs [trigger <task>|stats]")
		return 2
	}
}
