package domain

import (
	"strings"
	"time"
)

type UserRole string

const (
	UserRoleAdmin    UserRole = "admin"
	UserRoleAnalyst  UserRole = "analyst"
	UserRoleOperator UserRole = "operator"
)

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleAdmin, UserRoleAnalyst, UserRoleOperator:
		return true
	}
	return false
}

type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name"`
	Email     string    `json:"email" gorm:"uniqueIndex;size:255"`
	Password  string    `json:"-"` // Hashed password
	Roles     string    `json:"roles"`
	Active    bool      `json:"active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) RoleList() []UserRole {
	var out []UserRole
	for _, r := range strings.Split(u.Roles, ",") {
		r = strings.TrimSpace(r)
		if r != "" {
			out = append(out, UserRole(r))
		}
	}
	return out
}

func (u *User) SetRoles(roles ...UserRole) {
	parts := make([]string, 0, len(roles))
	for _, r := range roles {
		parts = append(parts, string(r))
	}
	u.Roles = strings.Join(parts, ",")
}

// HasRole reports membership; admin implies every role.
func (u *User) HasRole(role UserRole) bool {
	if u == nil {
		return false
	}
	for _, r := range u.RoleList() {
		if r == role || r == UserRoleAdmin {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.HasRole(UserRoleAdmin)
}
