package batch

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"

	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/platform/httpx"
)

// Handler exposes batch job endpoints. Execution is handed to the worker
// queue; the HTTP layer only enqueues.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	enqueuer *asynq.Client
	validate *validator.Validate
}

// NewHandler builds Handler instance. enqueuer may be nil in tests, in which
// case execution requests run inline.
func NewHandler(logger *slog.Logger, service *Service, enqueuer *asynq.Client) *Handler {
	return &Handler{logger: logger, service: service, enqueuer: enqueuer, validate: validator.New()}
}

// MountRoutes registers batch routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Post("/{id}/execute", h.execute)
	r.Delete("/{id}", h.remove)
}

type createRequest struct {
	Description string              `json:"description"`
	Operation   string              `json:"operation" validate:"omitempty,oneof=journal_import expense_import"`
	CreatedBy   int64               `json:"created_by"`
	Items       []createItemRequest `json:"items" validate:"required,min=1,dive"`
}

// Line-count rules depend on the operation, so the service checks them.
type createItemRequest struct {
	Date        string              `json:"date" validate:"required"`
	Description string              `json:"description"`
	Lines       []createLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type createLineRequest struct {
	AccountCode string  `json:"account_code" validate:"required"`
	Type        string  `json:"type" validate:"required,oneof=DEBIT CREDIT"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Description string  `json:"description"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	in := CreateInput{Description: req.Description, Operation: Operation(req.Operation), CreatedBy: req.CreatedBy}
	for _, item := range req.Items {
		day, err := time.Parse("2006-01-02", item.Date)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "item dates must be YYYY-MM-DD")
			return
		}
		itemIn := ItemInput{Date: day, Description: item.Description}
		for _, line := range item.Lines {
			itemIn.Lines = append(itemIn.Lines, ItemLine{
				AccountCode: line.AccountCode,
				Type:        ledgerEntryType(line.Type),
				Amount:      line.Amount,
				Description: line.Description,
			})
		}
		in.Items = append(in.Items, itemIn)
	}

	job, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.logger.Error("create batch job", slog.Any("error", err))
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, job)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list batch jobs", slog.Any("error", err))
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, jobs)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}
	job, err := h.service.Get(r.Context(), id)
	if err != nil {
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

type executeRequest struct {
	ActorID int64 `json:"actor_id"`
}

func (h *Handler) execute(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}
	var req executeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}

	if h.enqueuer != nil {
		task, err := NewExecuteTask(id, req.ActorID)
		if err != nil {
			ledger.RespondError(w, err)
			return
		}
		if _, err := h.enqueuer.EnqueueContext(r.Context(), task); err != nil {
			h.logger.Error("enqueue batch execution", slog.Any("error", err), slog.Int64("job_id", id))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		httpx.JSON(w, http.StatusAccepted, map[string]any{"job_id": id, "queued": true})
		return
	}

	result, err := h.service.Execute(r.Context(), id, req.ActorID)
	if err != nil {
		h.logger.Error("execute batch job", slog.Any("error", err), slog.Int64("job_id", id))
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete batch job", slog.Any("error", err), slog.Int64("job_id", id))
		ledger.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) jobID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid job id")
		return 0, false
	}
	return id, true
}
