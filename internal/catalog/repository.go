package catalog

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/menuqr/tableside/internal/domain"
)

type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// FindAvailableItem resolves a menu item for an order line. It returns nil
// when the item is absent, unavailable or owned by a different restaurant;
// callers cannot tell the cases apart.
func (r *CatalogRepository) FindAvailableItem(ctx context.Context, restaurantID, menuItemID string) (*domain.MenuItem, error) {
	item := &domain.MenuItem{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, restaurant_id, category_id, name, unit_price, is_available
		FROM menu_items
		WHERE id = $1 AND restaurant_id = $2 AND is_available
	`, menuItemID, restaurantID).Scan(&item.ID, &item.RestaurantID, &item.CategoryID,
		&item.Name, &item.UnitPrice, &item.IsAvailable)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return item, nil
}

func (r *CatalogRepository) GetItem(ctx context.Context, id string) (*domain.MenuItem, error) {
	item := &domain.MenuItem{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, restaurant_id, category_id, name, unit_price, is_available
		FROM menu_items
		WHERE id = $1
	`, id).Scan(&item.ID, &item.RestaurantID, &item.CategoryID,
		&item.Name, &item.UnitPrice, &item.IsAvailable)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return item, nil
}

func (r *CatalogRepository) InsertItem(ctx context.Context, item *domain.MenuItem) error {
	item.ID = uuid.New().String()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO menu_items (id, restaurant_id, category_id, name, unit_price, is_available)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, item.ID, item.RestaurantID, item.CategoryID, item.Name, item.UnitPrice, item.IsAvailable)
	return err
}

func (r *CatalogRepository) UpdateItem(ctx context.Context, item *domain.MenuItem) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE menu_items
		SET name = $1, unit_price = $2, is_available = $3
		WHERE id = $4
	`, item.Name, item.UnitPrice, item.IsAvailable, item.ID)
	return err
}

// MenuSection is one category with its currently available items, as served
// to the customer-facing menu page.
type MenuSection struct {
	Category domain.MenuCategory `json:"category"`
	Items    []domain.MenuItem   `json:"items"`
}

// ListMenu returns the restaurant's available menu grouped by category in
// display order. Categories with no available items are still listed so the
// layout stays stable.
func (r *CatalogRepository) ListMenu(ctx context.Context, restaurantID string) ([]MenuSection, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, restaurant_id, name, position
		FROM menu_categories
		WHERE restaurant_id = $1
		ORDER BY position, name
	`, restaurantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var sections []MenuSection
	index := make(map[string]int)

	for rows.Next() {
		var category domain.MenuCategory
		if err := rows.Scan(&category.ID, &category.RestaurantID, &category.Name, &category.Position); err != nil {
			return nil, err
		}
		index[category.ID] = len(sections)
		sections = append(sections, MenuSection{Category: category, Items: []domain.MenuItem{}})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT id, restaurant_id, category_id, name, unit_price, is_available
		FROM menu_items
		WHERE restaurant_id = $1 AND is_available
		ORDER BY name
	`, restaurantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var item domain.MenuItem
		if err := itemRows.Scan(&item.ID, &item.RestaurantID, &item.CategoryID,
			&item.Name, &item.UnitPrice, &item.IsAvailable); err != nil {
			return nil, err
		}
		if i, ok := index[item.CategoryID]; ok {
			sections[i].Items = append(sections[i].Items, item)
		}
	}

	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	if sections == nil {
		sections = []MenuSection{}
	}
	return sections, nil
}
