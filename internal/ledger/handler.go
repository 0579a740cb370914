package ledger

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-retail/meridian/internal/platform/httpx"
)

// Handler exposes voucher posting endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers voucher routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.post)
	r.Get("/{id}", h.get)
	r.Post("/{id}/reverse", h.reverse)
}

type postLineRequest struct {
	AccountID   int64   `json:"account_id" validate:"required,gt=0"`
	Type        string  `json:"type" validate:"required,oneof=DEBIT CREDIT"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Description string  `json:"description"`
}

type postRequest struct {
	Date        string            `json:"date" validate:"required"`
	Description string            `json:"description"`
	SourceType  string            `json:"source_type"`
	SourceID    string            `json:"source_id"`
	ActorID     int64             `json:"actor_id"`
	Lines       []postLineRequest `json:"lines" validate:"required,min=2,dive"`
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	day, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
		return
	}

	in := PostingInput{
		Date:        day,
		Description: req.Description,
		SourceType:  req.SourceType,
		SourceID:    req.SourceID,
		PostedBy:    req.ActorID,
	}
	for _, l := range req.Lines {
		in.Lines = append(in.Lines, PostingLineInput{
			AccountID:   l.AccountID,
			Type:        EntryType(l.Type),
			Amount:      l.Amount,
			Description: l.Description,
		})
	}

	voucher, err := h.service.Post(r.Context(), in)
	if err != nil {
		h.logger.Error("post voucher", slog.Any("error", err))
		RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, voucher)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid voucher id")
		return
	}
	voucher, err := h.service.Get(r.Context(), id)
	if err != nil {
		RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, voucher)
}

type reverseRequest struct {
	Memo    string `json:"memo"`
	ActorID int64  `json:"actor_id"`
}

func (h *Handler) reverse(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid voucher id")
		return
	}
	var req reverseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}

	reversal, err := h.service.Reverse(r.Context(), id, req.ActorID, req.Memo)
	if err != nil {
		h.logger.Error("reverse voucher", slog.Any("error", err), slog.Int64("voucher_id", id))
		RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, reversal)
}
