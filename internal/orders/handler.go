package orders

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/menuqr/tableside/internal/domain"
	"github.com/menuqr/tableside/internal/httpx"
)

// TenantResolver turns a bearer token into a tenant context. An empty token
// resolves to nil (anonymous); a present-but-bad token is an error.
type TenantResolver interface {
	Resolve(ctx context.Context, token string) (*domain.TenantContext, error)
}

type Handler struct {
	service *Service
	auth    TenantResolver
	logger  *slog.Logger
}

func NewHandler(service *Service, auth TenantResolver, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		auth:    auth,
		logger:  logger,
	}
}

// HandleCreate places a customer order. No auth header is expected; a staff
// session on this endpoint is rejected by the service.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.tenant(r)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.Create(r.Context(), tenant, req)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("order created",
		"order_id", order.ID,
		"restaurant_id", order.RestaurantID,
		"tracking_code", order.TrackingCode,
		"total", order.Total,
	)
	httpx.WriteJSON(w, h.logger, http.StatusCreated, order)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.tenant(r)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	filter := ListFilter{
		RestaurantID: r.URL.Query().Get("restaurant_id"),
		Status:       domain.OrderStatus(r.URL.Query().Get("status")),
	}
	if raw := r.URL.Query().Get("table_number"); raw != "" {
		table, err := strconv.Atoi(raw)
		if err != nil {
			httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid table_number")
			return
		}
		filter.TableNumber = table
	}

	result, err := h.service.List(r.Context(), tenant, filter)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("orders listed", "count", len(result))
	httpx.WriteJSON(w, h.logger, http.StatusOK, result)
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "missing order id")
		return
	}

	tenant, err := h.tenant(r)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), tenant, id, req.Status)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("order status updated", "order_id", order.ID, "status", order.Status)
	httpx.WriteJSON(w, h.logger, http.StatusOK, order)
}

// HandleTrack is the public tracking lookup; no auth, no tenant scoping.
func (h *Handler) HandleTrack(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "missing tracking code")
		return
	}

	order, err := h.service.GetByTracking(r.Context(), code)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, order)
}

func (h *Handler) tenant(r *http.Request) (*domain.TenantContext, error) {
	token := httpx.BearerToken(r)
	if token == "" {
		return nil, nil
	}
	return h.auth.Resolve(r.Context(), token)
}
