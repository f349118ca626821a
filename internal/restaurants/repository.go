package restaurants

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

// ErrSlugTaken is returned when provisioning a restaurant with a slug that is
// already in use.
var ErrSlugTaken = errors.New("slug already taken")

type RestaurantRepository struct {
	db *sql.DB
}

func NewRestaurantRepository(db *sql.DB) *RestaurantRepository {
	return &RestaurantRepository{db: db}
}

func (r *RestaurantRepository) GetByID(ctx context.Context, id string) (*domain.Restaurant, error) {
	return r.get(ctx, "id", id)
}

func (r *RestaurantRepository) GetBySlug(ctx context.Context, slug string) (*domain.Restaurant, error) {
	return r.get(ctx, "slug", slug)
}

func (r *RestaurantRepository) get(ctx context.Context, column, value string) (*domain.Restaurant, error) {
	restaurant := &domain.Restaurant{}

	err := r.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, name, slug, status
		FROM restaurants
		WHERE %s = $1
	`, column), value).Scan(&restaurant.ID, &restaurant.Name, &restaurant.Slug, &restaurant.Status)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return restaurant, nil
}

func (r *RestaurantRepository) Insert(ctx context.Context, restaurant *domain.Restaurant) error {
	restaurant.ID = uuid.New().String()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO restaurants (id, name, slug, status)
		VALUES ($1, $2, $3, $4)
	`, restaurant.ID, restaurant.Name, restaurant.Slug, restaurant.Status)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrSlugTaken, restaurant.Slug)
		}
		return err
	}
	return nil
}

// SetStatus blocks or unblocks a restaurant and reports whether it exists.
func (r *RestaurantRepository) SetStatus(ctx context.Context, id string, status domain.RestaurantStatus) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE restaurants SET status = $1 WHERE id = $2
	`, status, id)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}
