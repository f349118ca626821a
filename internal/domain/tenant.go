package domain

type Role string

const (
	// RoleAdmin has cross-tenant privileges (restaurant provisioning).
	RoleAdmin Role = "admin"
	// RoleOperator is bound to exactly one restaurant.
	RoleOperator Role = "operator"
)

// TenantContext identifies an authenticated caller for the duration of one
// request. It is rebuilt from the session token on every request and never
// persisted. RestaurantID is set iff Role is operator.
type TenantContext struct {
	CallerID     string
	Role         Role
	RestaurantID string
}
