package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusAccepted OrderStatus = "accepted"
	OrderStatusRejected OrderStatus = "rejected"
	OrderStatusReady    OrderStatus = "ready"
)

// transitions lists every legal status move. rejected and ready are terminal.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:  {OrderStatusAccepted, OrderStatusRejected},
	OrderStatusAccepted: {OrderStatusReady},
}

// CanTransition reports whether an order may move from one status to another.
// Self-transitions and backward moves are never legal.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidStatus reports whether s is one of the known order statuses.
func ValidStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusAccepted, OrderStatusRejected, OrderStatusReady:
		return true
	}
	return false
}

// LineItem is a snapshot of a menu item taken at order time. Name and price
// are copied from the catalog when the order is placed and never follow later
// menu edits.
type LineItem struct {
	MenuItemID string `json:"menu_item_id"`
	Name       string `json:"name"`
	UnitPrice  int64  `json:"unit_price"`
	Quantity   int    `json:"quantity"`
}

type Order struct {
	ID           string      `json:"id"`
	RestaurantID string      `json:"restaurant_id"`
	TableNumber  int         `json:"table_number"`
	Lines        []LineItem  `json:"lines"`
	Total        int64       `json:"total"`
	Status       OrderStatus `json:"status"`
	TrackingCode string      `json:"tracking_code"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// TrackedOrder is the public tracking view of an order, with the owning
// restaurant resolved for display.
type TrackedOrder struct {
	Order
	RestaurantName string `json:"restaurant_name"`
	RestaurantSlug string `json:"restaurant_slug"`
}
