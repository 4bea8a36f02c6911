package users

import "context"

// UserRepo is the credential store. Implementations must make Insert atomic with
// respect to both the email uniqueness check and the first-admin decision.
type UserRepo interface {
	// GetByEmail returns errors.ErrUserNotFound when no record exists
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Insert stores a new user and returns errors.ErrDuplicateKey if the email is taken.
	// An empty Role is resolved by the store: RoleAdmin when the store holds no users,
	// RoleUser otherwise. The resolved role and join date are written back into user.
	Insert(ctx context.Context, user *User) error

	// Count returns the number of stored users
	Count(ctx context.Context) (int, error)

	// UpdateRole returns errors.ErrUserNotFound when no record exists
	UpdateRole(ctx context.Context, email string, role RoleType) error

	// List returns every user ordered by join date, then email
	List(ctx context.Context) ([]*User, error)
}
