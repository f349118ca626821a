package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/menuqr/tableside/internal/domain"
	"github.com/menuqr/tableside/internal/tracking"
)

// maxInsertRetries bounds how often an insert is retried when the tracking
// code unique constraint fires. The pre-check in the tracking package makes
// hitting this more than once extremely unlikely.
const maxInsertRetries = 5

// ErrCodeTaken is returned by Store.Insert when the tracking code collided
// with a concurrently created order.
var ErrCodeTaken = errors.New("tracking code already taken")

// CatalogStore resolves menu items for order lines. FindAvailableItem returns
// nil when the item does not exist, is unavailable, or belongs to another
// restaurant; the three cases are deliberately indistinguishable to callers.
type CatalogStore interface {
	FindAvailableItem(ctx context.Context, restaurantID, menuItemID string) (*domain.MenuItem, error)
}

// RestaurantStore looks up the tenant root. GetByID returns nil when absent.
type RestaurantStore interface {
	GetByID(ctx context.Context, id string) (*domain.Restaurant, error)
}

// Store is the order persistence layer.
type Store interface {
	Insert(ctx context.Context, order *domain.Order) error
	TrackingCodeExists(ctx context.Context, code string) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByTrackingCode(ctx context.Context, code string) (*domain.TrackedOrder, error)
	List(ctx context.Context, restaurantID string, filter ListFilter) ([]domain.Order, error)
	// UpdateStatus applies the transition only if the stored status still
	// equals from, and reports whether a row was updated.
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) (bool, error)
}

// EventPublisher emits order lifecycle events. Publishing is best-effort;
// the order is already persisted when it is called.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type ListFilter struct {
	// RestaurantID may be supplied by the caller but must match the
	// operator's own restaurant; anything else is rejected.
	RestaurantID string
	Status       domain.OrderStatus
	TableNumber  int
}

type CreateRequest struct {
	RestaurantID string        `json:"restaurant_id"`
	TableNumber  int           `json:"table_number"`
	Lines        []RequestLine `json:"lines"`
}

type RequestLine struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
}

// Service owns the order lifecycle: creation, tracking code assignment and
// status transitions. Every operation takes its tenant context explicitly and
// does its own authorization up front.
type Service struct {
	store       Store
	catalog     CatalogStore
	restaurants RestaurantStore
	publisher   EventPublisher
	logger      *slog.Logger
}

func NewService(store Store, catalog CatalogStore, restaurants RestaurantStore, publisher EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		store:       store,
		catalog:     catalog,
		restaurants: restaurants,
		publisher:   publisher,
		logger:      logger,
	}
}

// Create places a new order. Placing orders is a customer action: any
// authenticated staff context is rejected. Validation is all-or-nothing; no
// order row is written unless every line resolves.
func (s *Service) Create(ctx context.Context, tenant *domain.TenantContext, req CreateRequest) (*domain.Order, error) {
	if tenant != nil {
		return nil, fmt.Errorf("%w: orders are placed by customers, not staff accounts", domain.ErrForbidden)
	}

	restaurant, err := s.restaurants.GetByID(ctx, req.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("look up restaurant: %w", err)
	}
	if restaurant == nil {
		return nil, fmt.Errorf("%w: restaurant %s", domain.ErrNotFound, req.RestaurantID)
	}
	if restaurant.Status != domain.RestaurantActive {
		return nil, fmt.Errorf("%w: restaurant is not accepting orders", domain.ErrForbidden)
	}

	if req.TableNumber < 1 {
		return nil, fmt.Errorf("%w: table number must be positive", domain.ErrValidation)
	}
	if len(req.Lines) == 0 {
		return nil, fmt.Errorf("%w: order must contain at least one line", domain.ErrValidation)
	}

	lines := make([]domain.LineItem, 0, len(req.Lines))
	var total int64
	for i, line := range req.Lines {
		if line.Quantity < 1 {
			return nil, fmt.Errorf("%w: line %d quantity must be positive", domain.ErrValidation, i)
		}
		item, err := s.catalog.FindAvailableItem(ctx, req.RestaurantID, line.MenuItemID)
		if err != nil {
			return nil, fmt.Errorf("resolve menu item %s: %w", line.MenuItemID, err)
		}
		if item == nil {
			return nil, fmt.Errorf("%w: item %s", domain.ErrItemUnavailable, line.MenuItemID)
		}
		lines = append(lines, domain.LineItem{
			MenuItemID: item.ID,
			Name:       item.Name,
			UnitPrice:  item.UnitPrice,
			Quantity:   line.Quantity,
		})
		total += item.UnitPrice * int64(line.Quantity)
	}

	code, err := tracking.GenerateUniqueCode(ctx, s.store.TrackingCodeExists)
	if err != nil {
		return nil, fmt.Errorf("generate tracking code: %w", err)
	}

	now := time.Now().UTC()
	order := &domain.Order{
		RestaurantID: req.RestaurantID,
		TableNumber:  req.TableNumber,
		Lines:        lines,
		Total:        total,
		Status:       domain.OrderStatusPending,
		TrackingCode: code,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// The unique constraint on tracking_code is the final arbiter: a
	// collision at insert time means another order raced us to the code,
	// so draw a fresh one and try again.
	for attempt := 0; ; attempt++ {
		err = s.store.Insert(ctx, order)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrCodeTaken) {
			return nil, fmt.Errorf("insert order: %w", err)
		}
		if attempt+1 >= maxInsertRetries {
			return nil, fmt.Errorf("insert order: %w", tracking.ErrSpaceExhausted)
		}
		if order.TrackingCode, err = tracking.NewCode(); err != nil {
			return nil, fmt.Errorf("regenerate tracking code: %w", err)
		}
	}

	if s.publisher != nil {
		event := domain.OrderCreatedEvent{
			OrderID:      order.ID,
			RestaurantID: order.RestaurantID,
			TrackingCode: order.TrackingCode,
			TableNumber:  order.TableNumber,
			Lines:        order.Lines,
			Total:        order.Total,
			Timestamp:    order.CreatedAt,
		}
		if err := s.publisher.Publish(ctx, order.ID, event); err != nil {
			s.logger.Error("failed to publish order created event", "error", err, "order_id", order.ID)
		}
	}

	return order, nil
}

// List returns the operator's own orders, newest first. The result set is
// always scoped to the operator's restaurant; a conflicting restaurant filter
// from the caller is a programming error and rejected outright.
func (s *Service) List(ctx context.Context, tenant *domain.TenantContext, filter ListFilter) ([]domain.Order, error) {
	if err := requireOperator(tenant); err != nil {
		return nil, err
	}
	if filter.RestaurantID != "" && filter.RestaurantID != tenant.RestaurantID {
		return nil, fmt.Errorf("%w: cannot list another restaurant's orders", domain.ErrForbidden)
	}
	if filter.Status != "" && !domain.ValidStatus(filter.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, filter.Status)
	}

	orders, err := s.store.List(ctx, tenant.RestaurantID, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus moves an order through its lifecycle. Foreign orders fail with
// Forbidden regardless of the requested transition; illegal transitions leave
// the stored status untouched.
func (s *Service) UpdateStatus(ctx context.Context, tenant *domain.TenantContext, orderID string, next domain.OrderStatus) (*domain.Order, error) {
	if err := requireOperator(tenant); err != nil {
		return nil, err
	}
	if !domain.ValidStatus(next) {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, next)
	}

	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if order == nil {
		return nil, fmt.Errorf("%w: order %s", domain.ErrNotFound, orderID)
	}
	if order.RestaurantID != tenant.RestaurantID {
		return nil, fmt.Errorf("%w: order belongs to another restaurant", domain.ErrForbidden)
	}
	if !domain.CanTransition(order.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, order.Status, next)
	}

	applied, err := s.store.UpdateStatus(ctx, orderID, order.Status, next)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if !applied {
		// A concurrent update moved the order first; the guarded write
		// refused to apply, so report the transition as stale.
		return nil, fmt.Errorf("%w: order status changed concurrently", domain.ErrInvalidTransition)
	}

	updated, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("reload order: %w", err)
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: order %s", domain.ErrNotFound, orderID)
	}
	return updated, nil
}

// GetByTracking looks up an order by its public tracking code. This is the
// one deliberately tenant-agnostic read path: the code itself is the
// capability.
func (s *Service) GetByTracking(ctx context.Context, code string) (*domain.TrackedOrder, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: tracking code is required", domain.ErrValidation)
	}

	order, err := s.store.GetByTrackingCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("look up tracking code: %w", err)
	}
	if order == nil {
		return nil, fmt.Errorf("%w: tracking code %s", domain.ErrNotFound, code)
	}
	return order, nil
}

func requireOperator(tenant *domain.TenantContext) error {
	if tenant == nil {
		return fmt.Errorf("%w: authentication required", domain.ErrForbidden)
	}
	if tenant.Role != domain.RoleOperator {
		return fmt.Errorf("%w: operator role required", domain.ErrForbidden)
	}
	if tenant.RestaurantID == "" {
		// An operator without a restaurant binding must fail closed,
		// never fall through to an unscoped query.
		return fmt.Errorf("%w: operator has no restaurant binding", domain.ErrForbidden)
	}
	return nil
}
