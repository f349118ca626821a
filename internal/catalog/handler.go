package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/menuqr/tableside/internal/domain"
	"github.com/menuqr/tableside/internal/httpx"
)

type TenantResolver interface {
	Resolve(ctx context.Context, token string) (*domain.TenantContext, error)
}

// RestaurantStore resolves the tenant root for menu reads.
type RestaurantStore interface {
	GetByID(ctx context.Context, id string) (*domain.Restaurant, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Restaurant, error)
}

type Handler struct {
	repo        *CatalogRepository
	restaurants RestaurantStore
	auth        TenantResolver
	logger      *slog.Logger
}

func NewHandler(repo *CatalogRepository, restaurants RestaurantStore, auth TenantResolver, logger *slog.Logger) *Handler {
	return &Handler{
		repo:        repo,
		restaurants: restaurants,
		auth:        auth,
		logger:      logger,
	}
}

// HandleMenu serves the customer-facing menu for a restaurant slug. Blocked
// restaurants reject the read entirely.
func (h *Handler) HandleMenu(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if slug == "" {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "missing restaurant slug")
		return
	}

	restaurant, err := h.restaurants.GetBySlug(r.Context(), slug)
	if err != nil {
		h.logger.Error("failed to look up restaurant", "error", err, "slug", slug)
		httpx.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}
	if restaurant == nil {
		httpx.WriteError(w, h.logger, http.StatusNotFound, "restaurant not found")
		return
	}
	if restaurant.Status != domain.RestaurantActive {
		httpx.WriteError(w, h.logger, http.StatusForbidden, "restaurant is not accepting orders")
		return
	}

	sections, err := h.repo.ListMenu(r.Context(), restaurant.ID)
	if err != nil {
		h.logger.Error("failed to list menu", "error", err, "restaurant_id", restaurant.ID)
		httpx.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, map[string]any{
		"restaurant": restaurant,
		"menu":       sections,
	})
}

type itemRequest struct {
	CategoryID  string `json:"category_id"`
	Name        string `json:"name"`
	UnitPrice   int64  `json:"unit_price"`
	IsAvailable bool   `json:"is_available"`
}

func (req *itemRequest) validate() error {
	if req.Name == "" {
		return fmt.Errorf("%w: item name is required", domain.ErrValidation)
	}
	if req.UnitPrice < 0 {
		return fmt.Errorf("%w: unit price must not be negative", domain.ErrValidation)
	}
	return nil
}

// HandleCreateItem adds a menu item to the operator's own restaurant.
func (h *Handler) HandleCreateItem(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.operator(r)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}
	if req.CategoryID == "" {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "category is required")
		return
	}

	item := &domain.MenuItem{
		RestaurantID: tenant.RestaurantID,
		CategoryID:   req.CategoryID,
		Name:         req.Name,
		UnitPrice:    req.UnitPrice,
		IsAvailable:  req.IsAvailable,
	}
	if err := h.repo.InsertItem(r.Context(), item); err != nil {
		h.logger.Error("failed to insert menu item", "error", err, "restaurant_id", tenant.RestaurantID)
		httpx.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("menu item created", "item_id", item.ID, "restaurant_id", item.RestaurantID)
	httpx.WriteJSON(w, h.logger, http.StatusCreated, item)
}

// HandleUpdateItem edits name, price or availability of an item the operator
// owns. Existing order snapshots are unaffected.
func (h *Handler) HandleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "missing item id")
		return
	}

	tenant, err := h.operator(r)
	if err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		httpx.WriteDomainError(w, h.logger, err)
		return
	}

	item, err := h.repo.GetItem(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to load menu item", "error", err, "item_id", id)
		httpx.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}
	if item == nil {
		httpx.WriteError(w, h.logger, http.StatusNotFound, "menu item not found")
		return
	}
	if item.RestaurantID != tenant.RestaurantID {
		httpx.WriteError(w, h.logger, http.StatusForbidden, "menu item belongs to another restaurant")
		return
	}

	item.Name = req.Name
	item.UnitPrice = req.UnitPrice
	item.IsAvailable = req.IsAvailable
	if err := h.repo.UpdateItem(r.Context(), item); err != nil {
		h.logger.Error("failed to update menu item", "error", err, "item_id", id)
		httpx.WriteError(w, h.logger, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("menu item updated", "item_id", item.ID, "restaurant_id", item.RestaurantID)
	httpx.WriteJSON(w, h.logger, http.StatusOK, item)
}

func (h *Handler) operator(r *http.Request) (*domain.TenantContext, error) {
	token := httpx.BearerToken(r)
	if token == "" {
		return nil, fmt.Errorf("%w: missing bearer token", domain.ErrUnauthenticated)
	}
	tenant, err := h.auth.Resolve(r.Context(), token)
	if err != nil {
		return nil, err
	}
	if tenant.Role != domain.RoleOperator || tenant.RestaurantID == "" {
		return nil, fmt.Errorf("%w: operator role required", domain.ErrForbidden)
	}
	return tenant, nil
}
