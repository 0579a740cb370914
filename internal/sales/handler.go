package sales

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/platform/httpx"
)

// Handler exposes the sales endpoint.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.recordSale)
}

type saleItemRequest struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Qty       float64 `json:"qty" validate:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
}

type saleRequest struct {
	Date        string            `json:"date"`
	CustomerID  int64             `json:"customer_id"`
	Items       []saleItemRequest `json:"items" validate:"required,min=1,dive"`
	Discount    float64           `json:"discount" validate:"gte=0"`
	VATRate     float64           `json:"vat_rate" validate:"gte=0,lte=1"`
	AmountPaid  float64           `json:"amount_paid" validate:"gte=0"`
	Ref         string            `json:"ref"`
	Description string            `json:"description"`
	ActorID     int64             `json:"actor_id"`
}

func (h *Handler) recordSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
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

	in := SaleInput{
		Date:        day,
		CustomerID:  req.CustomerID,
		Discount:    req.Discount,
		VATRate:     req.VATRate,
		AmountPaid:  req.AmountPaid,
		Ref:         req.Ref,
		Description: req.Description,
		ActorID:     req.ActorID,
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, SaleItem{ProductID: item.ProductID, Qty: item.Qty, UnitPrice: item.UnitPrice})
	}

	sale, err := h.service.RecordSale(r.Context(), in)
	if err != nil {
		h.logger.Error("record sale", slog.Any("error", err), slog.String("ref", req.Ref))
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sale)
}
