package payroll

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/platform/httpx"
)

// Handler exposes payroll endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers payroll routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/runs", h.run)
	r.Post("/remittances", h.remit)
}

type payslipRequest struct {
	EmployeeID int64   `json:"employee_id" validate:"required,gt=0"`
	Gross      float64 `json:"gross" validate:"required,gt=0"`
	Withheld   float64 `json:"withheld" validate:"gte=0"`
}

type runRequest struct {
	PeriodKey string           `json:"period_key" validate:"required"`
	Date      string           `json:"date"`
	Payslips  []payslipRequest `json:"payslips" validate:"required,min=1,dive"`
	ActorID   int64            `json:"actor_id"`
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var day time.Time
	if req.Date != "" {
		var err error
		day, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
			return
		}
	}

	in := RunInput{PeriodKey: req.PeriodKey, Date: day, ActorID: req.ActorID}
	for _, p := range req.Payslips {
		in.Payslips = append(in.Payslips, Payslip{EmployeeID: p.EmployeeID, Gross: p.Gross, Withheld: p.Withheld})
	}

	run, err := h.service.RunPayroll(r.Context(), in)
	if err != nil {
		h.logger.Error("payroll run", slog.Any("error", err), slog.String("period_key", req.PeriodKey))
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, run)
}

type remitRequest struct {
	Amount  float64 `json:"amount" validate:"required,gt=0"`
	Ref     string  `json:"ref" validate:"required"`
	ActorID int64   `json:"actor_id"`
}

func (h *Handler) remit(w http.ResponseWriter, r *http.Request) {
	var req remitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	voucher, err := h.service.RemitWithholdings(r.Context(), req.Amount, req.Ref, req.ActorID)
	if err != nil {
		h.logger.Error("payroll remittance", slog.Any("error", err), slog.String("ref", req.Ref))
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, voucher)
}
