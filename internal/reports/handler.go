package reports

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/menuqr/tableside/internal/domain"
	"github.com/menuqr/tableside/internal/httpx"
)

const defaultTopItemsLimit = 10

type TenantResolver interface {
	Resolve(ctx context.Context, token string) (*domain.TenantContext, error)
}

type Handler struct {
	repo   *ReportRepository
	auth   TenantResolver
	logger *slog.Logger
}

func NewHandler(repo *ReportRepository, auth TenantResolver, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		auth:   auth,
		logger: logger,
	}
}

func (h *Handler) HandleDailySales(w http.ResponseWriter, r *http.Request) {
	tenant, from, to, ok := h.reportScope(w, r)
	if !ok {
		return
	}

	buckets, err := h.repo.DailySales(r.Context(), tenant.RestaurantID, from, to)
	if err != nil {
		h.logger.Error("failed to compute daily sales", "error", err, "restaurant_id", tenant.RestaurantID)
		httpx.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, buckets)
}

func (h *Handler) HandleMonthlySales(w http.ResponseWriter, r *http.Request) {
	tenant, from, to, ok := h.reportScope(w, r)
	if !ok {
		return
	}

	buckets, err := h.repo.MonthlySales(r.Context(), tenant.RestaurantID, from, to)
	if err != nil {
		h.logger.Error("failed to compute monthly sales", "error", err, "restaurant_id", tenant.RestaurantID)
		httpx.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, buckets)
}

func (h *Handler) HandlePeaks(w http.ResponseWriter, r *http.Request) {
	tenant, from, to, ok := h.reportScope(w, r)
	if !ok {
		return
	}

	peaks, err := h.repo.Peaks(r.Context(), tenant.RestaurantID, from, to)
	if err != nil {
		h.logger.Error("failed to compute peaks", "error", err, "restaurant_id", tenant.RestaurantID)
		httpx.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}
	if peaks == nil {
		httpx.WriteError(w, h.logger, http.StatusNotFound, "no orders in the selected window")
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, peaks)
}

func (h *Handler) HandleTopItems(w http.ResponseWriter, r *http.Request) {
	tenant, from, to, ok := h.reportScope(w, r)
	if !ok {
		return
	}

	limit := defaultTopItemsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	items, err := h.repo.TopItems(r.Context(), tenant.RestaurantID, from, to, limit)
	if err != nil {
		h.logger.Error("failed to compute top items", "error", err, "restaurant_id", tenant.RestaurantID)
		httpx.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, items)
}

// reportScope resolves the operator and the [from, to) window. Defaults to
// the last 30 days when the window is not given.
func (h *Handler) reportScope(w http.ResponseWriter, r *http.Request) (*domain.TenantContext, time.Time, time.Time, bool) {
	token := httpx.BearerToken(r)
	if token == "" {
		httpx.WriteError(w, h.logger, http.StatusUnauthorized, "authentication required")
		return nil, time.Time{}, time.Time{}, false
	}
	tenant, err := h.auth.Resolve(r.Context(), token)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return nil, time.Time{}, time.Time{}, false
	}
	if tenant.Role != domain.RoleOperator || tenant.RestaurantID == "" {
		httpx.WriteDomainError(w, h.logger, fmt.Errorf("%w: operator role required", domain.ErrForbidden))
		return nil, time.Time{}, time.Time{}, false
	}

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
			return nil, time.Time{}, time.Time{}, false
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
			return nil, time.Time{}, time.Time{}, false
		}
		// Window is half-open; include the whole "to" day.
		to = parsed.AddDate(0, 0, 1)
	}
	if !to.After(from) {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "to must be after from")
		return nil, time.Time{}, time.Time{}, false
	}

	return tenant, from, to, true
}
