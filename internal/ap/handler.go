package ap

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

// Handler exposes AP endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers AP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/payments", h.recordPayment)
	r.Get("/suppliers/{id}/ledger", h.supplierLedger)
	r.Get("/suppliers/{id}/aging", h.supplierAging)
}

type paymentRequest struct {
	SupplierID  int64   `json:"supplier_id" validate:"required,gt=0"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	ActorID     int64   `json:"actor_id"`
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
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

	voucher, err := h.service.RecordPayment(r.Context(), PaymentInput{
		SupplierID:  req.SupplierID,
		Amount:      req.Amount,
		Date:        day,
		Description: req.Description,
		ActorID:     req.ActorID,
	})
	if err != nil {
		h.logger.Error("record supplier payment", slog.Any("error", err), slog.Int64("supplier_id", req.SupplierID))
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, voucher)
}

func (h *Handler) supplierLedger(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid supplier id")
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	view, err := h.service.GetLedger(r.Context(), id, page, perPage)
	if err != nil {
		h.logger.Error("supplier ledger", slog.Any("error", err), slog.Int64("supplier_id", id))
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) supplierAging(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid supplier id")
		return
	}
	asOf := time.Now()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		asOf, err = time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "as_of must be YYYY-MM-DD")
			return
		}
	}

	buckets, err := h.service.Aging(r.Context(), id, asOf)
	if err != nil {
		h.logger.Error("supplier aging", slog.Any("error", err), slog.Int64("supplier_id", id))
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, buckets)
}
