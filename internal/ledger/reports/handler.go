package reports

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/platform/httpx"
)

// Handler exposes report endpoints. JSON responses for the trial balance go
// through the versioned cache; CSV exports always render fresh.
type Handler struct {
	logger  *slog.Logger
	service *Service
	cache   *Cache
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, cache *Cache) *Handler {
	return &Handler{logger: logger, service: service, cache: cache}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/trial-balance", h.trialBalance)
	r.Get("/trial-balance/export", h.trialBalanceCSV)
	r.Get("/accounts/{id}/history", h.accountHistory)
	r.Get("/accounts/{id}/history/export", h.accountHistoryCSV)
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.parseAsOf(w, r)
	if !ok {
		return
	}

	key, err := h.cache.BuildKey(r.Context(), TrialBalanceKey(asOf)...)
	if err != nil {
		h.logger.Error("trial balance cache key", slog.Any("error", err))
		ledger.RespondError(w, err)
		return
	}
	var tb TrialBalance
	err = h.cache.FetchJSON(r.Context(), key, &tb, func(ctx context.Context) (any, error) {
		return h.service.TrialBalance(ctx, asOf)
	})
	if err != nil {
		h.logger.Error("trial balance", slog.Any("error", err))
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

func (h *Handler) trialBalanceCSV(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.parseAsOf(w, r)
	if !ok {
		return
	}

	tb, err := h.service.TrialBalance(r.Context(), asOf)
	if err != nil {
		h.logger.Error("trial balance export", slog.Any("error", err))
		ledger.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="trial-balance-%s.csv"`, asOf.Format("2006-01-02")))
	if err := WriteTrialBalanceCSV(w, tb); err != nil {
		h.logger.Error("write trial balance csv", slog.Any("error", err))
	}
}

func (h *Handler) accountHistory(w http.ResponseWriter, r *http.Request) {
	id, from, to, ok := h.parseHistoryParams(w, r)
	if !ok {
		return
	}

	history, err := h.service.AccountHistory(r.Context(), id, from, to)
	if err != nil {
		h.logger.Error("account history", slog.Any("error", err), slog.Int64("account_id", id))
		ledger.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, history)
}

func (h *Handler) accountHistoryCSV(w http.ResponseWriter, r *http.Request) {
	id, from, to, ok := h.parseHistoryParams(w, r)
	if !ok {
		return
	}

	history, err := h.service.AccountHistory(r.Context(), id, from, to)
	if err != nil {
		h.logger.Error("account history export", slog.Any("error", err), slog.Int64("account_id", id))
		ledger.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="account-%s-history.csv"`, history.Account.Code))
	if err := WriteAccountHistoryCSV(w, history); err != nil {
		h.logger.Error("write account history csv", slog.Any("error", err))
	}
}

func (h *Handler) parseAsOf(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	asOf := time.Now()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "as_of must be YYYY-MM-DD")
			return time.Time{}, false
		}
		asOf = parsed
	}
	return asOf, true
}

func (h *Handler) parseHistoryParams(w http.ResponseWriter, r *http.Request) (int64, time.Time, time.Time, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid account id")
		return 0, time.Time{}, time.Time{}, false
	}
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must be YYYY-MM-DD")
		return 0, time.Time{}, time.Time{}, false
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be YYYY-MM-DD")
		return 0, time.Time{}, time.Time{}, false
	}
	if to.Before(from) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must not precede from")
		return 0, time.Time{}, time.Time{}, false
	}
	return id, from, to, true
}
