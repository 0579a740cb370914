package inventory

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

// Handler exposes stock endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{productID}", h.get)
	r.Post("/adjustments", h.adjust)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	balances, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list stock", slog.Any("error", err))
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balances)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid product id")
		return
	}
	balance, err := h.service.Get(r.Context(), productID)
	if err != nil {
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balance)
}

type adjustRequest struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Direction string  `json:"direction" validate:"required,oneof=IN OUT"`
	Qty       float64 `json:"qty" validate:"required,gt=0"`
	UnitCost  float64 `json:"unit_cost"`
	Reason    string  `json:"reason"`
	ActorID   int64   `json:"actor_id"`
	Date      string  `json:"date"`
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
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

	adjustment, err := h.service.Adjust(r.Context(), AdjustmentInput{
		ProductID: req.ProductID,
		Direction: ledger.StockDirection(req.Direction),
		Qty:       req.Qty,
		UnitCost:  req.UnitCost,
		Reason:    req.Reason,
		ActorID:   req.ActorID,
		Date:      day,
	})
	if err != nil {
		h.logger.Error("stock adjustment", slog.Any("error", err), slog.Int64("product_id", req.ProductID))
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, adjustment)
}
