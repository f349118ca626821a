package auth

import (
	"context"
	"database/sql"
)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return r.get(ctx, `
		SELECT id, email, password_hash, role, COALESCE(restaurant_id::text, ''), active
		FROM operators
		WHERE email = $1
	`, email)
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*Account, error) {
	return r.get(ctx, `
		SELECT id, email, password_hash, role, COALESCE(restaurant_id::text, ''), active
		FROM operators
		WHERE id = $1
	`, id)
}

func (r *AccountRepository) get(ctx context.Context, query, arg string) (*Account, error) {
	account := &Account{}

	err := r.db.QueryRowContext(ctx, query, arg).Scan(&account.ID, &account.Email,
		&account.PasswordHash, &account.Role, &account.RestaurantID, &account.Active)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return account, nil
}
