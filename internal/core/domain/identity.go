// internal/core/domain/identity.go
package domain

import "strings"

// User roles. The engine consumes identity as an opaque id + role pair; token
// issuance and verification live outside this service.
const (
	RoleCustomer = "customer"
	RoleKiosk    = "kiosk"
	RoleAdmin    = "admin"
)

// UserIdentity scopes cart and order operations. It is threaded explicitly
// through every call; nothing reads a current user from ambient state.
type UserIdentity struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// IsKiosk reports whether this is the reserved kiosk service identity. Many
// physical terminals share that identity concurrently, so remote cart sync is
// disabled for it entirely.
func (u UserIdentity) IsKiosk() bool {
	return strings.EqualFold(u.Role, RoleKiosk)
}

// Valid reports whether the identity can scope remote operations.
func (u UserIdentity) Valid() bool {
	return strings.TrimSpace(u.ID) != ""
}
