package sessions

import (
	"time"

	"github.com/jrsteele09/go-members-gateway/users"
)

// Principal is the authenticated identity attached to a session. It is a snapshot
// taken at login or signup; later changes to the user record do not affect it.
type Principal struct {
	Email       string         `json:"email"`
	DisplayName string         `json:"display_name"`
	Role        users.RoleType `json:"role"`
}

// PrincipalFromUser copies the identity fields of a stored user
func PrincipalFromUser(u *users.User) Principal {
	return Principal{
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role,
	}
}

// Session correlates a client cookie token with an optional principal.
// Anonymous sessions have a nil Principal.
type Session struct {
	ID        string     `json:"id"`
	Principal *Principal `json:"principal,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"` // last activity + idle timeout
}

func (s *Session) Authenticated() bool {
	return s != nil && s.Principal != nil
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
