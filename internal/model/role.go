package model

import "fmt"

// Role is the closed set of principal roles. Keeping it a distinct type
// forces exhaustive switches in access-resolution code instead of
// scattered string comparisons.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
	RolePending Role = "pending"
)

// ParseRole converts a stored role string into a Role, rejecting
// anything outside the closed set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleManager, RoleUser, RolePending:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) String() string {
	return string(r)
}
