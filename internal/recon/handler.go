package recon

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

// Handler exposes reconciliation endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers reconciliation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/calculate", h.calculate)
	r.Post("/", h.save)
	r.Get("/{id}", h.get)
	r.Get("/", h.list)
	r.Post("/{id}/adjustments", h.createAdjustment)
}

type calculateRequest struct {
	AccountCode     string  `json:"account_code" validate:"required"`
	AsOf            string  `json:"as_of"`
	ExternalBalance float64 `json:"external_balance"`
}

func (h *Handler) calculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	asOf, ok := parseDay(w, req.AsOf)
	if !ok {
		return
	}

	cmp, err := h.service.Calculate(r.Context(), req.AccountCode, asOf, req.ExternalBalance)
	if err != nil {
		h.logger.Error("calculate reconciliation", slog.Any("error", err), slog.String("account", req.AccountCode))
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cmp)
}

type saveRequest struct {
	AccountCode     string  `json:"account_code" validate:"required"`
	AsOf            string  `json:"as_of"`
	ExternalBalance float64 `json:"external_balance"`
	Note            string  `json:"note"`
	ActorID         int64   `json:"actor_id"`
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	asOf, ok := parseDay(w, req.AsOf)
	if !ok {
		return
	}

	rec, err := h.service.Save(r.Context(), SaveInput{
		AccountCode:     req.AccountCode,
		AsOf:            asOf,
		ExternalBalance: req.ExternalBalance,
		Note:            req.Note,
		ActorID:         req.ActorID,
	})
	if err != nil {
		h.logger.Error("save reconciliation", slog.Any("error", err), slog.String("account", req.AccountCode))
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rec)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid reconciliation id")
		return
	}
	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.List(r.Context(), r.URL.Query().Get("account_code"))
	if err != nil {
		h.logger.Error("list reconciliations", slog.Any("error", err))
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, records)
}

type adjustmentRequest struct {
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Side        string  `json:"side" validate:"omitempty,oneof=DEBIT CREDIT"`
	Description string  `json:"description"`
	ActorID     int64   `json:"actor_id"`
}

func (h *Handler) createAdjustment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid reconciliation id")
		return
	}
	var req adjustmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	voucher, err := h.service.CreateAdjustment(r.Context(), AdjustmentInput{
		RecordID:    id,
		Amount:      req.Amount,
		Side:        ledger.EntryType(req.Side),
		Description: req.Description,
		ActorID:     req.ActorID,
	})
	if err != nil {
		h.logger.Error("create reconciliation adjustment", slog.Any("error", err), slog.Int64("record_id", id))
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, voucher)
}

func parseDay(w http.ResponseWriter, raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "dates must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return day, true
}
