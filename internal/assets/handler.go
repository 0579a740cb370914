package assets

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

// Handler exposes fixed-asset endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers asset routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.register)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Post("/{id}/dispose", h.dispose)
	r.Post("/depreciation-runs", h.runDepreciation)
}

type registerRequest struct {
	Name       string  `json:"name" validate:"required"`
	Cost       float64 `json:"cost" validate:"required,gt=0"`
	Salvage    float64 `json:"salvage" validate:"gte=0"`
	LifeMonths int     `json:"life_months" validate:"required,gt=0"`
	AcquiredAt string  `json:"acquired_at" validate:"required"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	acquired, err := time.Parse("2006-01-02", req.AcquiredAt)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "acquired_at must be YYYY-MM-DD")
		return
	}

	asset, err := h.service.Register(r.Context(), RegisterInput{
		Name:       req.Name,
		Cost:       req.Cost,
		Salvage:    req.Salvage,
		LifeMonths: req.LifeMonths,
		AcquiredAt: acquired,
	})
	if err != nil {
		h.logger.Error("register asset", slog.Any("error", err), slog.String("name", req.Name))
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, asset)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	assets, err := h.service.List(r.Context())
	if err != nil {
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, assets)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid asset id")
		return
	}
	asset, err := h.service.Get(r.Context(), id)
	if err != nil {
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, asset)
}

func (h *Handler) dispose(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid asset id")
		return
	}
	if err := h.service.Dispose(r.Context(), id); err != nil {
		h.logger.Error("dispose asset", slog.Any("error", err), slog.Int64("asset_id", id))
		ledger.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type depreciationRunRequest struct {
	AsOf    string `json:"as_of"`
	ActorID int64  `json:"actor_id"`
}

func (h *Handler) runDepreciation(w http.ResponseWriter, r *http.Request) {
	var req depreciationRunRequest
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

	result, err := h.service.RunDepreciation(r.Context(), asOf, req.ActorID)
	if err != nil {
		h.logger.Error("depreciation run", slog.Any("error", err))
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}
