package restaurants

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/menuqr/tableside/internal/domain"
	"github.com/menuqr/tableside/internal/httpx"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

type TenantResolver interface {
	Resolve(ctx context.Context, token string) (*domain.TenantContext, error)
}

type Handler struct {
	repo   *RestaurantRepository
	auth   TenantResolver
	logger *slog.Logger
}

func NewHandler(repo *RestaurantRepository, auth TenantResolver, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		auth:   auth,
		logger: logger,
	}
}

type createRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// HandleCreate provisions a new restaurant. Platform admins only.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if _, err := h.admin(r); err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "restaurant name is required")
		return
	}
	if !slugPattern.MatchString(req.Slug) {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "slug must be lowercase letters, digits and hyphens")
		return
	}

	restaurant := &domain.Restaurant{
		Name:   req.Name,
		Slug:   req.Slug,
		Status: domain.RestaurantActive,
	}
	if err := h.repo.Insert(r.Context(), restaurant); err != nil {
		if errors.Is(err, ErrSlugTaken) {
			httpx.WriteError(w, h.logger, http.StatusConflict, "slug already taken")
			return
		}
		h.logger.Error("failed to provision restaurant", "error", err, "slug", req.Slug)
		httpx.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("restaurant provisioned", "restaurant_id", restaurant.ID, "slug", restaurant.Slug)
	httpx.WriteJSON(w, h.logger, http.StatusCreated, restaurant)
}

type statusRequest struct {
	Status domain.RestaurantStatus `json:"status"`
}

// HandleSetStatus blocks or unblocks a restaurant. Platform admins only.
// Blocking stops new orders and customer menu reads; existing orders stay
// manageable by the operator.
func (h *Handler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "missing restaurant id")
		return
	}

	if _, err := h.admin(r); err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status != domain.RestaurantActive && req.Status != domain.RestaurantBlocked {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "status must be active or blocked")
		return
	}

	found, err := h.repo.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		h.logger.Error("failed to set restaurant status", "error", err, "restaurant_id", id)
		httpx.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}
	if !found {
		httpx.WriteError(w, h.logger, http.StatusNotFound, "restaurant not found")
		return
	}

	restaurant, err := h.repo.GetByID(r.Context(), id)
	if err != nil || restaurant == nil {
		h.logger.Error("failed to reload restaurant", "error", err, "restaurant_id", id)
		httpx.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("restaurant status changed", "restaurant_id", id, "status", req.Status)
	httpx.WriteJSON(w, h.logger, http.StatusOK, restaurant)
}

func (h *Handler) admin(r *http.Request) (*domain.TenantContext, error) {
	token := httpx.BearerToken(r)
	if token == "" {
		return nil, fmt.Errorf("%w: missing bearer token", domain.ErrUnauthenticated)
	}
	tenant, err := h.auth.Resolve(r.Context(), token)
	if err != nil {
		return nil, err
	}
	if tenant.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("%w: platform admin role required", domain.ErrForbidden)
	}
	return tenant, nil
}
