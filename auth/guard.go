package auth

import (
	"github.com/jrsteele09/go-members-gateway/internal/errors"
	"github.com/jrsteele09/go-members-gateway/sessions"
	"github.com/jrsteele09/go-members-gateway/users"
)

type requirementKind int

const (
	publicKind requirementKind = iota
	authenticatedKind
	roleKind
)

// Requirement is the access rule attached to a route
type Requirement struct {
	kind requirementKind
	role users.RoleType
}

var (
	// Public admits every request
	Public = Requirement{kind: publicKind}

	// AuthenticatedOnly admits any session carrying a principal
	AuthenticatedOnly = Requirement{kind: authenticatedKind}
)

// RoleRequired admits authenticated sessions whose principal holds role
func RoleRequired(role users.RoleType) Requirement {
	return Requirement{kind: roleKind, role: role}
}

// Authorize returns errors.ErrUnauthorized when a principal is needed but absent and
// errors.ErrForbidden when the principal lacks the required role.
func (r Requirement) Authorize(session *sessions.Session) error {
	switch r.kind {
	case publicKind:
		return nil
	case authenticatedKind:
		if !session.Authenticated() {
			return errors.ErrUnauthorized
		}
		return nil
	case roleKind:
		if !session.Authenticated() {
			return errors.ErrUnauthorized
		}
		if session.Principal.Role != r.role {
			return errors.ErrForbidden
		}
		return nil
	}
	return errors.ErrForbidden
}

func (r Requirement) String() string {
	switch r.kind {
	case publicKind:
		return "public"
	case authenticatedKind:
		return "authenticated"
	case roleKind:
		return "role:" + string(r.role)
	}
	return "unknown"
}
