package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/menuqr/tableside/internal/domain"
)

const uniqueViolation = "23505"

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Insert writes the order and its line snapshot in one transaction. A unique
// violation on the tracking code surfaces as ErrCodeTaken so the caller can
// retry with a fresh code.
func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	order.ID = uuid.New().String()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, restaurant_id, table_number, status, total, tracking_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`, order.ID, order.RestaurantID, order.TableNumber, order.Status, order.Total, order.TrackingCode, order.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrCodeTaken, order.TrackingCode)
		}
		return err
	}

	for _, line := range order.Lines {
		lineID := uuid.New().String()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, menu_item_id, name, unit_price, quantity)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, lineID, order.ID, line.MenuItemID, line.Name, line.UnitPrice, line.Quantity)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *OrderRepository) TrackingCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM orders WHERE tracking_code = $1)
	`, code).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order := &domain.Order{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, restaurant_id, table_number, status, total, tracking_code, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.RestaurantID, &order.TableNumber, &order.Status,
		&order.Total, &order.TrackingCode, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if err := r.loadLines(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *OrderRepository) GetByTrackingCode(ctx context.Context, code string) (*domain.TrackedOrder, error) {
	tracked := &domain.TrackedOrder{}

	err := r.db.QueryRowContext(ctx, `
		SELECT o.id, o.restaurant_id, o.table_number, o.status, o.total, o.tracking_code,
		       o.created_at, o.updated_at, r.name, r.slug
		FROM orders o
		JOIN restaurants r ON r.id = o.restaurant_id
		WHERE o.tracking_code = $1
	`, code).Scan(&tracked.ID, &tracked.RestaurantID, &tracked.TableNumber, &tracked.Status,
		&tracked.Total, &tracked.TrackingCode, &tracked.CreatedAt, &tracked.UpdatedAt,
		&tracked.RestaurantName, &tracked.RestaurantSlug)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if err := r.loadLines(ctx, &tracked.Order); err != nil {
		return nil, err
	}
	return tracked, nil
}

// UpdateStatus applies the transition only when the stored status still
// matches from. Returning false means a concurrent writer got there first.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

func (r *OrderRepository) List(ctx context.Context, restaurantID string, filter ListFilter) ([]domain.Order, error) {
	query := `
		SELECT id, restaurant_id, table_number, status, total, tracking_code, created_at, updated_at
		FROM orders
		WHERE restaurant_id = $1`
	args := []any{restaurantID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.TableNumber > 0 {
		args = append(args, filter.TableNumber)
		query += fmt.Sprintf(" AND table_number = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string

	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.RestaurantID, &order.TableNumber, &order.Status,
			&order.Total, &order.TrackingCode, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, err
		}
		order.Lines = []domain.LineItem{}
		orderMap[order.ID] = &order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	lineRows, err := r.db.QueryContext(ctx, `
		SELECT order_id, menu_item_id, name, unit_price, quantity
		FROM order_items
		WHERE order_id = ANY($1)
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = lineRows.Close() }()

	for lineRows.Next() {
		var orderID string
		var line domain.LineItem
		if err := lineRows.Scan(&orderID, &line.MenuItemID, &line.Name, &line.UnitPrice, &line.Quantity); err != nil {
			return nil, err
		}
		order := orderMap[orderID]
		order.Lines = append(order.Lines, line)
	}

	if err := lineRows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}

func (r *OrderRepository) loadLines(ctx context.Context, order *domain.Order) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT menu_item_id, name, unit_price, quantity
		FROM order_items
		WHERE order_id = $1
	`, order.ID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var line domain.LineItem
		if err := rows.Scan(&line.MenuItemID, &line.Name, &line.UnitPrice, &line.Quantity); err != nil {
			return err
		}
		order.Lines = append(order.Lines, line)
	}

	return rows.Err()
}
