package Models

import "strings"

type Role string

const (
	RoleSuperadmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleStaff      Role = "staff"
)

// Level mirrors the numeric permission levels used by the route guards.
// Unknown roles get zero and never pass a guard.
func (r Role) Level() int {
	switch r {
	case RoleStaff:
		return 1
	case RoleAdmin:
		return 2
	case RoleSuperadmin:
		return 3
	}
	return 0
}

func (r Role) Valid() bool {
	return r.Level() > 0
}

// ParseRole normalizes a stored role value. Legacy records carry mixed case.
func ParseRole(s string) Role {
	return Role(strings.ToLower(strings.TrimSpace(s)))
}

type UserProfile struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Role         Role    `json:"role"`
	Login        string  `json:"login"`
	CoffeeshopID *string `json:"coffeeshop_id"`

	// CoffeeshopLocation is copied from the coffeeshop when the profile is
	// created so check-ins need no extra read.
	CoffeeshopLocation *GeoPoint `json:"coffeeshop_location,omitempty"`
}

// FallbackProfile is what a caller gets when its profile cannot be read.
func FallbackProfile(uid string) UserProfile {
	return UserProfile{ID: uid, Role: RoleStaff}
}

// ShopID returns the tenant the profile belongs to, or "" for superadmins.
func (p UserProfile) ShopID() string {
	if p.CoffeeshopID == nil {
		return ""
	}
	return *p.CoffeeshopID
}

type CreateUserRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=6"`
	Name         string `json:"name" validate:"required"`
	Role         string `json:"role" validate:"required,oneof=superadmin admin staff"`
	CoffeeshopID string `json:"coffeeshop_id" validate:"required_unless=Role superadmin"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
