package domain

import "time"

// UserRole enumerates access levels.
type UserRole string

const (
	RoleClient     UserRole = "CLIENTE"
	RoleTechnician UserRole = "TECNICO"
	RoleAdmin      UserRole = "ADMIN"
)

// Valid reports whether the role is one of the known values.
func (r UserRole) Valid() bool {
	switch r {
	case RoleClient, RoleTechnician, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role works requests rather than opening them.
func (r UserRole) IsStaff() bool {
	return r == RoleTechnician || r == RoleAdmin
}

// User is a client, technician or administrator.
type User struct {
	ID           int64
	Name         string
	Email        string
	TaxID        *string
	Phone        *string
	Role         UserRole
	Active       bool
	PasswordHash string
	LastAccessAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
