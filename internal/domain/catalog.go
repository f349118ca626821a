package domain

type RestaurantStatus string

const (
	RestaurantActive  RestaurantStatus = "active"
	RestaurantBlocked RestaurantStatus = "blocked"
)

type Restaurant struct {
	ID     string           `json:"id"`
	Name   string           `json:"name"`
	Slug   string           `json:"slug"`
	Status RestaurantStatus `json:"status"`
}

type MenuCategory struct {
	ID           string `json:"id"`
	RestaurantID string `json:"restaurant_id"`
	Name         string `json:"name"`
	Position     int    `json:"position"`
}

type MenuItem struct {
	ID           string `json:"id"`
	RestaurantID string `json:"restaurant_id"`
	CategoryID   string `json:"category_id"`
	Name         string `json:"name"`
	UnitPrice    int64  `json:"unit_price"`
	IsAvailable  bool   `json:"is_available"`
}
