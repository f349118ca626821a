package domain

import "time"

type OrderCreatedEvent struct {
	OrderID      string     `json:"order_id"`
	RestaurantID string     `json:"restaurant_id"`
	TrackingCode string     `json:"tracking_code"`
	TableNumber  int        `json:"table_number"`
	Lines        []LineItem `json:"lines"`
	Total        int64      `json:"total"`
	Timestamp    time.Time  `json:"timestamp"`
}
