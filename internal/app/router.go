package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-retail/meridian/internal/accruals"
	"github.com/meridian-retail/meridian/internal/ap"
	"github.com/meridian-retail/meridian/internal/ar"
	"github.com/meridian-retail/meridian/internal/assets"
	"github.com/meridian-retail/meridian/internal/batch"
	"github.com/meridian-retail/meridian/internal/inventory"
	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/ledger/accounts"
	"github.com/meridian-retail/meridian/internal/ledger/periods"
	"github.com/meridian-retail/meridian/internal/ledger/reports"
	"github.com/meridian-retail/meridian/internal/observability"
	"github.com/meridian-retail/meridian/internal/payroll"
	"github.com/meridian-retail/meridian/internal/purchases"
	"github.com/meridian-retail/meridian/internal/recon"
	"github.com/meridian-retail/meridian/internal/sales"
	"github.com/meridian-retail/meridian/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	VoucherHandler   *ledger.Handler
	AccountsHandler  *accounts.Handler
	PeriodsHandler   *periods.Handler
	ReportsHandler   *reports.Handler
	ARHandler        *ar.Handler
	APHandler        *ap.Handler
	SalesHandler     *sales.Handler
	PurchasesHandler *purchases.Handler
	InventoryHandler *inventory.Handler
	PayrollHandler   *payroll.Handler
	AssetsHandler    *assets.Handler
	AccrualsHandler  *accruals.Handler
	ReconHandler     *recon.Handler
	BatchHandler     *batch.Handler
	JobsHandler      *jobs.Handler
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)
	if params.Metrics != nil {
		r.Use(params.Metrics.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Route("/vouchers", params.VoucherHandler.MountRoutes)
	r.Route("/accounts", params.AccountsHandler.MountRoutes)
	r.Route("/periods", params.PeriodsHandler.MountRoutes)
	r.Route("/reports", params.ReportsHandler.MountRoutes)
	r.Route("/ar", params.ARHandler.MountRoutes)
	r.Route("/ap", params.APHandler.MountRoutes)
	r.Route("/sales", params.SalesHandler.MountRoutes)
	r.Route("/purchases", params.PurchasesHandler.MountRoutes)
	r.Route("/inventory", params.InventoryHandler.MountRoutes)
	r.Route("/payroll", params.PayrollHandler.MountRoutes)
	r.Route("/assets", params.AssetsHandler.MountRoutes)
	r.Route("/accruals", params.AccrualsHandler.MountRoutes)
	r.Route("/reconciliations", params.ReconHandler.MountRoutes)
	r.Route("/batches", params.BatchHandler.MountRoutes)
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	return r
}
