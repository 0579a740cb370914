package periods

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

// Handler exposes fiscal period endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers period routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Post("/{id}/lock", h.lock)
	r.Post("/{id}/unlock", h.unlock)
	r.Post("/{id}/close", h.close)
}

type createPeriodRequest struct {
	Name      string `json:"name" validate:"required"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createPeriodRequest
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
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "end_date must be YYYY-MM-DD")
		return
	}

	period, err := h.service.Create(r.Context(), CreateInput{Name: req.Name, StartDate: start, EndDate: end})
	if err != nil {
		h.logger.Error("create period", slog.Any("error", err), slog.String("name", req.Name))
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, period)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	periods, err := h.service.List(r.Context())
	if err != nil {
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, periods)
}

type actorRequest struct {
	ActorID int64 `json:"actor_id"`
}

func (h *Handler) lock(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "lock")
}

func (h *Handler) unlock(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "unlock")
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, action string) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid period id")
		return
	}
	var req actorRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}

	var period any
	switch action {
	case "lock":
		period, err = h.service.Lock(r.Context(), id, req.ActorID)
	case "unlock":
		period, err = h.service.Unlock(r.Context(), id, req.ActorID)
	}
	if err != nil {
		h.logger.Error("period "+action, slog.Any("error", err), slog.Int64("period_id", id))
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid period id")
		return
	}
	var req actorRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}

	summary, err := h.service.Close(r.Context(), id, req.ActorID)
	if err != nil {
		h.logger.Error("close period", slog.Any("error", err), slog.Int64("period_id", id))
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}
