// Package auth resolves bearer tokens into tenant contexts. Sessions live in
// Redis; the account row is re-read on every resolve so deactivating an
// account takes effect immediately, valid session or not.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/menuqr/tableside/internal/domain"
)

// SessionTTL is how long a login stays valid without re-authentication.
const SessionTTL = 24 * time.Hour

// Session is the payload stored in Redis per token.
type Session struct {
	AccountID    string      `json:"account_id"`
	Role         domain.Role `json:"role"`
	RestaurantID string      `json:"restaurant_id,omitempty"`
}

// SessionStore persists sessions keyed by token. Get returns nil when the
// token is unknown or expired.
type SessionStore interface {
	Put(ctx context.Context, token string, session Session, ttl time.Duration) error
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
}

// Account is a staff login: a platform admin or a restaurant operator.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Role         domain.Role
	RestaurantID string
	Active       bool
}

// AccountStore reads staff accounts. Both lookups return nil when absent.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
}

type Resolver struct {
	sessions SessionStore
	accounts AccountStore
}

func NewResolver(sessions SessionStore, accounts AccountStore) *Resolver {
	return &Resolver{
		sessions: sessions,
		accounts: accounts,
	}
}

// Resolve builds the tenant context for a bearer token. It fails closed on
// every anomaly: unknown token, vanished or deactivated account, or an
// operator session without a restaurant binding.
func (r *Resolver) Resolve(ctx context.Context, token string) (*domain.TenantContext, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", domain.ErrUnauthenticated)
	}

	session, err := r.sessions.Get(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: unknown or expired session", domain.ErrUnauthenticated)
	}

	account, err := r.accounts.GetByID(ctx, session.AccountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if account == nil || !account.Active {
		return nil, fmt.Errorf("%w: account is not active", domain.ErrUnauthenticated)
	}

	if account.Role == domain.RoleOperator && account.RestaurantID == "" {
		return nil, fmt.Errorf("%w: operator account has no restaurant binding", domain.ErrForbidden)
	}

	tenant := &domain.TenantContext{
		CallerID: account.ID,
		Role:     account.Role,
	}
	if account.Role == domain.RoleOperator {
		tenant.RestaurantID = account.RestaurantID
	}
	return tenant, nil
}
