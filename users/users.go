package users

import "time"

// RoleType gates access to administrative operations
type RoleType string

const (
	RoleUser  RoleType = "user"
	RoleAdmin RoleType = "admin"
)

func (r RoleType) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	Email        string    `json:"email"`        // Primary key, case-sensitive
	DisplayName  string    `json:"display_name"` // Shown on the members page
	PasswordHash string    `json:"-"`            // bcrypt output - never serialize
	Role         RoleType  `json:"role"`
	DateJoined   time.Time `json:"date_joined,omitempty"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
