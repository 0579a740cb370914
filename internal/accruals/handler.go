package accruals

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/platform/httpx"
)

// Handler exposes accrual schedule endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers accrual routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Post("/amortization-runs", h.runAmortization)
}

type createScheduleRequest struct {
	Kind            string  `json:"kind" validate:"required,oneof=PREPAID_EXPENSE UNEARNED_REVENUE"`
	Description     string  `json:"description"`
	Total           float64 `json:"total" validate:"required,gt=0"`
	Installments    int     `json:"installments" validate:"required,gt=0"`
	StartDate       string  `json:"start_date" validate:"required"`
	TargetAccountID int64   `json:"target_account_id" validate:"required,gt=0"`
	Ref             string  `json:"ref" validate:"required"`
	ActorID         int64   `json:"actor_id"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createScheduleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "start_date must be YYYY-MM-DD")
		return
	}

	schedule, err := h.service.Create(r.Context(), CreateInput{
		Kind:            Kind(req.Kind),
		Description:     req.Description,
		Total:           req.Total,
		Installments:    req.Installments,
		StartDate:       start,
		TargetAccountID: req.TargetAccountID,
		Ref:             req.Ref,
		ActorID:         req.ActorID,
	})
	if err != nil {
		h.logger.Error("create schedule", slog.Any("error", err), slog.String("ref", req.Ref))
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, schedule)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.service.List(r.Context())
	if err != nil {
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, schedules)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid schedule id")
		return
	}
	schedule, err := h.service.Get(r.Context(), id)
	if err != nil {
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, schedule)
}

type amortizationRunRequest struct {
	AsOf    string `json:"as_of"`
	ActorID int64  `json:"actor_id"`
}

func (h *Handler) runAmortization(w http.ResponseWriter, r *http.Request) {
	var req amortizationRunRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	asOf := time.Now()
	if req.AsOf != "" {
		var err error
		asOf, err = time.Parse("2006-01-02", req.AsOf)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "as_of must be YYYY-MM-DD")
			return
		}
	}

	result, err := h.service.RunAmortization(r.Context(), asOf, req.ActorID)
	if err != nil {
		h.logger.Error("amortization run", slog.Any("error", err))
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}
