package purchases

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/platform/httpx"
)

// Handler exposes the purchases endpoint.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers purchase routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.recordPurchase)
}

type purchaseItemRequest struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Qty       float64 `json:"qty" validate:"required,gt=0"`
	UnitCost  float64 `json:"unit_cost" validate:"gte=0"`
}

type purchaseRequest struct {
	Date        string                `json:"date"`
	SupplierID  int64                 `json:"supplier_id" validate:"required,gt=0"`
	Items       []purchaseItemRequest `json:"items" validate:"required,min=1,dive"`
	VATRate     float64               `json:"vat_rate" validate:"gte=0,lte=1"`
	AmountPaid  float64               `json:"amount_paid" validate:"gte=0"`
	Ref         string                `json:"ref"`
	Description string                `json:"description"`
	ActorID     int64                 `json:"actor_id"`
}

func (h *Handler) recordPurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
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

	in := PurchaseInput{
		Date:        day,
		SupplierID:  req.SupplierID,
		VATRate:     req.VATRate,
		AmountPaid:  req.AmountPaid,
		Ref:         req.Ref,
		Description: req.Description,
		ActorID:     req.ActorID,
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, PurchaseItem{ProductID: item.ProductID, Qty: item.Qty, UnitCost: item.UnitCost})
	}

	purchase, err := h.service.RecordPurchase(r.Context(), in)
	if err != nil {
		h.logger.Error("record purchase", slog.Any("error", err), slog.Int64("supplier_id", req.SupplierID))
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, purchase)
}
