package orders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/menuqr/tableside/internal/domain"
	"github.com/menuqr/tableside/internal/tracking"
)

type fakeStore struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
	nextID int

	insertErr     error
	codeTakenOnce bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: make(map[string]*domain.Order)}
}

func (s *fakeStore) Insert(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.insertErr != nil {
		return s.insertErr
	}
	if s.codeTakenOnce {
		s.codeTakenOnce = false
		return ErrCodeTaken
	}
	for _, existing := range s.orders {
		if existing.TrackingCode == order.TrackingCode {
			return ErrCodeTaken
		}
	}

	s.nextID++
	order.ID = fmt.Sprintf("order-%d", s.nextID)
	saved := *order
	saved.Lines = append([]domain.LineItem(nil), order.Lines...)
	s.orders[order.ID] = &saved
	return nil
}

func (s *fakeStore) TrackingCodeExists(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, order := range s.orders {
		if order.TrackingCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) GetByID(_ context.Context, id string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	copied := *order
	copied.Lines = append([]domain.LineItem(nil), order.Lines...)
	return &copied, nil
}

func (s *fakeStore) GetByTrackingCode(_ context.Context, code string) (*domain.TrackedOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, order := range s.orders {
		if order.TrackingCode == code {
			return &domain.TrackedOrder{Order: *order, RestaurantName: "Fake", RestaurantSlug: "fake"}, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) List(_ context.Context, restaurantID string, filter ListFilter) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.Order
	for _, order := range s.orders {
		if order.RestaurantID != restaurantID {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		if filter.TableNumber > 0 && order.TableNumber != filter.TableNumber {
			continue
		}
		result = append(result, *order)
	}
	return result, nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, id string, from, to domain.OrderStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	return true, nil
}

type fakeCatalog struct {
	items map[string]*domain.MenuItem
}

func (c *fakeCatalog) FindAvailableItem(_ context.Context, restaurantID, menuItemID string) (*domain.MenuItem, error) {
	item, ok := c.items[menuItemID]
	if !ok || !item.IsAvailable || item.RestaurantID != restaurantID {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

type fakeRestaurants struct {
	restaurants map[string]*domain.Restaurant
}

func (r *fakeRestaurants) GetByID(_ context.Context, id string) (*domain.Restaurant, error) {
	restaurant, ok := r.restaurants[id]
	if !ok {
		return nil, nil
	}
	copied := *restaurant
	return &copied, nil
}

func testService(t *testing.T) (*Service, *fakeStore, *fakeCatalog, *fakeRestaurants) {
	t.Helper()

	store := newFakeStore()
	catalog := &fakeCatalog{items: map[string]*domain.MenuItem{
		"item-x": {ID: "item-x", RestaurantID: "rest-a", CategoryID: "cat-1", Name: "Khinkali", UnitPrice: 120, IsAvailable: true},
		"item-y": {ID: "item-y", RestaurantID: "rest-a", CategoryID: "cat-1", Name: "Lemonade", UnitPrice: 80, IsAvailable: true},
		"item-z": {ID: "item-z", RestaurantID: "rest-b", CategoryID: "cat-2", Name: "Foreign dish", UnitPrice: 500, IsAvailable: true},
		"item-o": {ID: "item-o", RestaurantID: "rest-a", CategoryID: "cat-1", Name: "Off menu", UnitPrice: 90, IsAvailable: false},
	}}
	restaurants := &fakeRestaurants{restaurants: map[string]*domain.Restaurant{
		"rest-a": {ID: "rest-a", Name: "Alpha", Slug: "alpha", Status: domain.RestaurantActive},
		"rest-b": {ID: "rest-b", Name: "Beta", Slug: "beta", Status: domain.RestaurantActive},
		"rest-c": {ID: "rest-c", Name: "Closed", Slug: "closed", Status: domain.RestaurantBlocked},
	}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, catalog, restaurants, nil, logger), store, catalog, restaurants
}

func operatorFor(restaurantID string) *domain.TenantContext {
	return &domain.TenantContext{CallerID: "op-1", Role: domain.RoleOperator, RestaurantID: restaurantID}
}

func validCreate() CreateRequest {
	return CreateRequest{
		RestaurantID: "rest-a",
		TableNumber:  4,
		Lines: []RequestLine{
			{MenuItemID: "item-x", Quantity: 2},
			{MenuItemID: "item-y", Quantity: 1},
		},
	}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("prices from catalog snapshot", func(t *testing.T) {
		svc, _, _, _ := testService(t)

		order, err := svc.Create(ctx, nil, validCreate())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if order.Total != 320 {
			t.Errorf("expected total 320, got %d", order.Total)
		}
		if order.Status != domain.OrderStatusPending {
			t.Errorf("expected status pending, got %s", order.Status)
		}
		if order.ID == "" {
			t.Error("expected order id to be assigned")
		}
		if !strings.HasPrefix(order.TrackingCode, tracking.Prefix) {
			t.Errorf("expected tracking code with prefix, got %q", order.TrackingCode)
		}
		if len(order.Lines) != 2 {
			t.Fatalf("expected 2 lines, got %d", len(order.Lines))
		}
		if order.Lines[0].Name != "Khinkali" || order.Lines[0].UnitPrice != 120 {
			t.Errorf("expected snapshotted name/price, got %+v", order.Lines[0])
		}
		if !order.CreatedAt.Equal(order.UpdatedAt) {
			t.Error("expected created_at == updated_at on a fresh order")
		}
	})

	t.Run("rejects staff sessions", func(t *testing.T) {
		svc, store, _, _ := testService(t)

		_, err := svc.Create(ctx, operatorFor("rest-a"), validCreate())
		if !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("expected Forbidden, got %v", err)
		}
		if len(store.orders) != 0 {
			t.Error("expected no order to be persisted")
		}
	})

	t.Run("unknown restaurant is NotFound", func(t *testing.T) {
		svc, _, _, _ := testService(t)

		req := validCreate()
		req.RestaurantID = "rest-nope"
		_, err := svc.Create(ctx, nil, req)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected NotFound, got %v", err)
		}
	})

	t.Run("blocked restaurant is Forbidden and persists nothing", func(t *testing.T) {
		svc, store, _, _ := testService(t)

		req := validCreate()
		req.RestaurantID = "rest-c"
		_, err := svc.Create(ctx, nil, req)
		if !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("expected Forbidden, got %v", err)
		}
		if len(store.orders) != 0 {
			t.Error("expected no order to be persisted")
		}
	})

	t.Run("validates table number and lines", func(t *testing.T) {
		svc, _, _, _ := testService(t)

		req := validCreate()
		req.TableNumber = 0
		if _, err := svc.Create(ctx, nil, req); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("expected ValidationError for table number, got %v", err)
		}

		req = validCreate()
		req.Lines = nil
		if _, err := svc.Create(ctx, nil, req); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("expected ValidationError for empty lines, got %v", err)
		}

		req = validCreate()
		req.Lines[1].Quantity = 0
		if _, err := svc.Create(ctx, nil, req); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("expected ValidationError for zero quantity, got %v", err)
		}
	})

	t.Run("one bad line aborts the whole order", func(t *testing.T) {
		svc, store, _, _ := testService(t)

		req := validCreate()
		req.Lines = append(req.Lines, RequestLine{MenuItemID: "item-o", Quantity: 1})
		_, err := svc.Create(ctx, nil, req)
		if !errors.Is(err, domain.ErrItemUnavailable) {
			t.Fatalf("expected ItemUnavailable, got %v", err)
		}
		if len(store.orders) != 0 {
			t.Error("expected no partial order to be persisted")
		}
	})

	t.Run("item from another restaurant is unavailable", func(t *testing.T) {
		svc, store, _, _ := testService(t)

		req := validCreate()
		req.Lines = []RequestLine{{MenuItemID: "item-z", Quantity: 1}}
		_, err := svc.Create(ctx, nil, req)
		if !errors.Is(err, domain.ErrItemUnavailable) {
			t.Fatalf("expected ItemUnavailable, got %v", err)
		}
		if len(store.orders) != 0 {
			t.Error("expected no order to be persisted")
		}
	})

	t.Run("retries insert on tracking code collision", func(t *testing.T) {
		svc, store, _, _ := testService(t)
		store.codeTakenOnce = true

		order, err := svc.Create(ctx, nil, validCreate())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if order.TrackingCode == "" {
			t.Error("expected a tracking code after retry")
		}
	})

	t.Run("later catalog edits do not touch the snapshot", func(t *testing.T) {
		svc, store, catalog, _ := testService(t)

		order, err := svc.Create(ctx, nil, validCreate())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		catalog.items["item-x"].Name = "Renamed"
		catalog.items["item-x"].UnitPrice = 999

		reloaded, err := store.GetByID(ctx, order.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reloaded.Lines[0].Name != "Khinkali" || reloaded.Lines[0].UnitPrice != 120 {
			t.Errorf("expected original snapshot, got %+v", reloaded.Lines[0])
		}
		if reloaded.Total != 320 {
			t.Errorf("expected total unchanged at 320, got %d", reloaded.Total)
		}
	})

	t.Run("tracking codes are pairwise distinct", func(t *testing.T) {
		svc, _, _, _ := testService(t)

		seen := make(map[string]bool)
		for i := 0; i < 50; i++ {
			order, err := svc.Create(ctx, nil, validCreate())
			if err != nil {
				t.Fatalf("unexpected error on order %d: %v", i, err)
			}
			if seen[order.TrackingCode] {
				t.Fatalf("duplicate tracking code %q", order.TrackingCode)
			}
			seen[order.TrackingCode] = true
		}
	})
}

func TestService_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	create := func(t *testing.T, svc *Service) *domain.Order {
		t.Helper()
		order, err := svc.Create(ctx, nil, validCreate())
		if err != nil {
			t.Fatalf("failed to create order: %v", err)
		}
		return order
	}

	t.Run("pending to ready must go through accepted", func(t *testing.T) {
		svc, store, _, _ := testService(t)
		order := create(t, svc)

		_, err := svc.UpdateStatus(ctx, operatorFor("rest-a"), order.ID, domain.OrderStatusReady)
		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Fatalf("expected InvalidTransition, got %v", err)
		}

		stored, _ := store.GetByID(ctx, order.ID)
		if stored.Status != domain.OrderStatusPending {
			t.Errorf("expected status unchanged, got %s", stored.Status)
		}
	})

	t.Run("accepted then ready, then no going back", func(t *testing.T) {
		svc, _, _, _ := testService(t)
		order := create(t, svc)
		tenant := operatorFor("rest-a")

		updated, err := svc.UpdateStatus(ctx, tenant, order.ID, domain.OrderStatusAccepted)
		if err != nil {
			t.Fatalf("accept failed: %v", err)
		}
		if updated.Status != domain.OrderStatusAccepted {
			t.Fatalf("expected accepted, got %s", updated.Status)
		}

		updated, err = svc.UpdateStatus(ctx, tenant, order.ID, domain.OrderStatusReady)
		if err != nil {
			t.Fatalf("ready failed: %v", err)
		}
		if updated.Status != domain.OrderStatusReady {
			t.Fatalf("expected ready, got %s", updated.Status)
		}

		_, err = svc.UpdateStatus(ctx, tenant, order.ID, domain.OrderStatusAccepted)
		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Fatalf("expected InvalidTransition on backward move, got %v", err)
		}
	})

	t.Run("no-op transitions are rejected", func(t *testing.T) {
		svc, _, _, _ := testService(t)
		order := create(t, svc)

		_, err := svc.UpdateStatus(ctx, operatorFor("rest-a"), order.ID, domain.OrderStatusPending)
		if !errors.Is(err, domain.ErrInvalidTransition) {
			t.Fatalf("expected InvalidTransition, got %v", err)
		}
	})

	t.Run("status updates leave pricing untouched", func(t *testing.T) {
		svc, _, _, _ := testService(t)
		order := create(t, svc)

		updated, err := svc.UpdateStatus(ctx, operatorFor("rest-a"), order.ID, domain.OrderStatusAccepted)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated.Total != order.Total {
			t.Errorf("total changed: %d -> %d", order.Total, updated.Total)
		}
		if len(updated.Lines) != len(order.Lines) {
			t.Fatalf("line count changed: %d -> %d", len(order.Lines), len(updated.Lines))
		}
		for i := range updated.Lines {
			if updated.Lines[i] != order.Lines[i] {
				t.Errorf("line %d changed: %+v -> %+v", i, order.Lines[i], updated.Lines[i])
			}
		}
	})

	t.Run("foreign order is Forbidden", func(t *testing.T) {
		svc, _, _, _ := testService(t)
		order := create(t, svc)

		_, err := svc.UpdateStatus(ctx, operatorFor("rest-b"), order.ID, domain.OrderStatusAccepted)
		if !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("expected Forbidden, got %v", err)
		}
	})

	t.Run("missing order is NotFound", func(t *testing.T) {
		svc, _, _, _ := testService(t)

		_, err := svc.UpdateStatus(ctx, operatorFor("rest-a"), "order-nope", domain.OrderStatusAccepted)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected NotFound, got %v", err)
		}
	})

	t.Run("unknown status is a validation error", func(t *testing.T) {
		svc, _, _, _ := testService(t)
		order := create(t, svc)

		_, err := svc.UpdateStatus(ctx, operatorFor("rest-a"), order.ID, "shipped")
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("requires an operator session", func(t *testing.T) {
		svc, _, _, _ := testService(t)
		order := create(t, svc)

		if _, err := svc.UpdateStatus(ctx, nil, order.ID, domain.OrderStatusAccepted); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("expected Forbidden for anonymous caller, got %v", err)
		}

		admin := &domain.TenantContext{CallerID: "adm-1", Role: domain.RoleAdmin}
		if _, err := svc.UpdateStatus(ctx, admin, order.ID, domain.OrderStatusAccepted); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("expected Forbidden for admin caller, got %v", err)
		}

		unbound := &domain.TenantContext{CallerID: "op-9", Role: domain.RoleOperator}
		if _, err := svc.UpdateStatus(ctx, unbound, order.ID, domain.OrderStatusAccepted); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("expected Forbidden for unbound operator, got %v", err)
		}
	})
}

func TestService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("scopes to the operator's restaurant", func(t *testing.T) {
		svc, _, _, _ := testService(t)

		if _, err := svc.Create(ctx, nil, validCreate()); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		foreign := CreateRequest{
			RestaurantID: "rest-b",
			TableNumber:  1,
			Lines:        []RequestLine{{MenuItemID: "item-z", Quantity: 1}},
		}
		if _, err := svc.Create(ctx, nil, foreign); err != nil {
			t.Fatalf("create failed: %v", err)
		}

		result, err := svc.List(ctx, operatorFor("rest-a"), ListFilter{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result) != 1 {
			t.Fatalf("expected 1 order, got %d", len(result))
		}
		if result[0].RestaurantID != "rest-a" {
			t.Errorf("expected only rest-a orders, got %s", result[0].RestaurantID)
		}
	})

	t.Run("rejects a conflicting restaurant filter", func(t *testing.T) {
		svc, _, _, _ := testService(t)

		_, err := svc.List(ctx, operatorFor("rest-a"), ListFilter{RestaurantID: "rest-b"})
		if !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("expected Forbidden, got %v", err)
		}
	})

	t.Run("rejects unknown status filter", func(t *testing.T) {
		svc, _, _, _ := testService(t)

		_, err := svc.List(ctx, operatorFor("rest-a"), ListFilter{Status: "shipped"})
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("requires operator auth", func(t *testing.T) {
		svc, _, _, _ := testService(t)

		if _, err := svc.List(ctx, nil, ListFilter{}); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("expected Forbidden for anonymous caller, got %v", err)
		}
	})
}

func TestService_GetByTracking(t *testing.T) {
	ctx := context.Background()

	t.Run("finds an order across tenants", func(t *testing.T) {
		svc, _, _, _ := testService(t)

		order, err := svc.Create(ctx, nil, validCreate())
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}

		tracked, err := svc.GetByTracking(ctx, order.TrackingCode)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tracked.ID != order.ID {
			t.Errorf("expected order %s, got %s", order.ID, tracked.ID)
		}
		if tracked.RestaurantSlug == "" {
			t.Error("expected restaurant slug to be resolved for display")
		}
	})

	t.Run("unknown code is NotFound", func(t *testing.T) {
		svc, _, _, _ := testService(t)

		_, err := svc.GetByTracking(ctx, "TM-ZZZZZZ")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected NotFound, got %v", err)
		}
	})
}
