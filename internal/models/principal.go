package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role is the coarse authorization class of a principal.
type Role string

const (
	RoleStudent      Role = "student"
	RoleProfessional Role = "professional"
	RoleAdmin        Role = "admin"
)

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleStudent, RoleProfessional, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Principal is the identity resolved by the authentication collaborator.
type Principal struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
}

// IsStaff reports whether the principal may review and edit plans.
func (p Principal) IsStaff() bool {
	return p.Role == RoleProfessional || p.Role == RoleAdmin
}

// HasRole reports whether the principal holds one of roles.
func (p Principal) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}
