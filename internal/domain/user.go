package domain

import "time"

// UserRole enumerates operator roles.
type UserRole string

const (
	UserRoleSuperAdmin UserRole = "superadmin"
	UserRoleAdmin      UserRole = "admin"
	UserRoleSupervisor UserRole = "supervisor"
	UserRoleAgent      UserRole = "agent"
	UserRoleTechnician UserRole = "technician"
)

var UserRoles = []UserRole{UserRoleAdmin, UserRoleSupervisor, UserRoleAgent, UserRoleTechnician}

func ParseUserRole(s string) (UserRole, bool) {
	for _, r := range UserRoles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// UserStatus represents lifecycle states for an operator account.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

func ParseUserStatus(s string) (UserStatus, bool) {
	switch UserStatus(s) {
	case UserStatusActive, UserStatusInactive:
		return UserStatus(s), true
	}
	return "", false
}

// User is an agent, technician or administrator working tickets.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         UserRole
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsActive reports whether the user may log in and take assignments.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}
