// Package reports derives aggregate statistics from finalized order records.
// It only ever reads; order state is owned by the orders package.
package reports

import (
	"context"
	"database/sql"
	"time"
)

type SalesBucket struct {
	Period  string `json:"period"`
	Orders  int    `json:"orders"`
	Revenue int64  `json:"revenue"`
}

type PeakTimes struct {
	// Hour of day (0-23) and ISO day of week (1=Monday) with the most orders.
	PeakHour int `json:"peak_hour"`
	PeakDay  int `json:"peak_day"`
}

type TopItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Revenue  int64  `json:"revenue"`
}

type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// DailySales buckets order count and revenue per day. Rejected orders never
// count towards revenue.
func (r *ReportRepository) DailySales(ctx context.Context, restaurantID string, from, to time.Time) ([]SalesBucket, error) {
	return r.salesBuckets(ctx, `
		SELECT to_char(created_at, 'YYYY-MM-DD'), COUNT(*), COALESCE(SUM(total), 0)
		FROM orders
		WHERE restaurant_id = $1 AND status <> 'rejected' AND created_at >= $2 AND created_at < $3
		GROUP BY 1
		ORDER BY 1
	`, restaurantID, from, to)
}

// MonthlySales buckets order count and revenue per calendar month.
func (r *ReportRepository) MonthlySales(ctx context.Context, restaurantID string, from, to time.Time) ([]SalesBucket, error) {
	return r.salesBuckets(ctx, `
		SELECT to_char(created_at, 'YYYY-MM'), COUNT(*), COALESCE(SUM(total), 0)
		FROM orders
		WHERE restaurant_id = $1 AND status <> 'rejected' AND created_at >= $2 AND created_at < $3
		GROUP BY 1
		ORDER BY 1
	`, restaurantID, from, to)
}

func (r *ReportRepository) salesBuckets(ctx context.Context, query string, args ...any) ([]SalesBucket, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	buckets := []SalesBucket{}
	for rows.Next() {
		var bucket SalesBucket
		if err := rows.Scan(&bucket.Period, &bucket.Orders, &bucket.Revenue); err != nil {
			return nil, err
		}
		buckets = append(buckets, bucket)
	}

	return buckets, rows.Err()
}

// Peaks reports the busiest hour of day and day of week across all of the
// restaurant's orders in the window.
func (r *ReportRepository) Peaks(ctx context.Context, restaurantID string, from, to time.Time) (*PeakTimes, error) {
	peaks := &PeakTimes{}

	err := r.db.QueryRowContext(ctx, `
		SELECT EXTRACT(HOUR FROM created_at)::int AS hour
		FROM orders
		WHERE restaurant_id = $1 AND created_at >= $2 AND created_at < $3
		GROUP BY 1
		ORDER BY COUNT(*) DESC, hour
		LIMIT 1
	`, restaurantID, from, to).Scan(&peaks.PeakHour)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT EXTRACT(ISODOW FROM created_at)::int AS day
		FROM orders
		WHERE restaurant_id = $1 AND created_at >= $2 AND created_at < $3
		GROUP BY 1
		ORDER BY COUNT(*) DESC, day
		LIMIT 1
	`, restaurantID, from, to).Scan(&peaks.PeakDay)
	if err != nil {
		return nil, err
	}

	return peaks, nil
}

// TopItems ranks snapshotted item names by quantity sold. Grouping by the
// snapshot name means renamed menu items keep their historical sales.
func (r *ReportRepository) TopItems(ctx context.Context, restaurantID string, from, to time.Time, limit int) ([]TopItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT i.name, SUM(i.quantity)::int, SUM(i.unit_price * i.quantity)
		FROM order_items i
		JOIN orders o ON o.id = i.order_id
		WHERE o.restaurant_id = $1 AND o.status <> 'rejected' AND o.created_at >= $2 AND o.created_at < $3
		GROUP BY i.name
		ORDER BY 2 DESC, i.name
		LIMIT $4
	`, restaurantID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []TopItem{}
	for rows.Next() {
		var item TopItem
		if err := rows.Scan(&item.Name, &item.Quantity, &item.Revenue); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}
