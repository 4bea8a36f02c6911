package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-members-gateway/auth"
	"github.com/jrsteele09/go-members-gateway/internal/errors"
	"github.com/jrsteele09/go-members-gateway/sessions"
	"github.com/rs/zerolog"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeySession stores the request's *sessions.Session
const ContextKeySession ContextKey = "session"

// SessionFromContext returns the session loaded by SessionMiddleware, or nil
func SessionFromContext(ctx context.Context) *sessions.Session {
	session, _ := ctx.Value(ContextKeySession).(*sessions.Session)
	return session
}

func withSession(r *http.Request, session *sessions.Session) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ContextKeySession, session))
}

// SessionMiddleware resolves the session cookie. A missing, forged or expired cookie gets a
// fresh anonymous session. The cookie is re-issued on every request so its lifetime slides
// with the server-side expiry.
func (s *Server) SessionMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var session *sessions.Session

		if sessionID, ok := s.cookies.read(r); ok {
			loaded, err := s.sessions.Get(r.Context(), sessionID)
			switch {
			case err == nil:
				session = loaded
			case errors.Is(err, errors.ErrSessionNotFound):
				zerolog.Ctx(r.Context()).Debug().Msg("session cookie refers to no live session")
			default:
				s.serverError(w, r, err)
				return
			}
		}

		if session == nil {
			created, err := s.sessions.Create(r.Context())
			if err != nil {
				s.serverError(w, r, err)
				return
			}
			session = created
		}

		if err := s.cookies.write(w, r, session.ID); err != nil {
			s.serverError(w, r, err)
			return
		}
		next(w, withSession(r, session))
	}
}

// RequireMiddleware applies an access requirement to the session on the context.
// Unauthenticated requests go back to the landing page; a wrong role is a bare 403.
func (s *Server) RequireMiddleware(requirement auth.Requirement) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			err := requirement.Authorize(SessionFromContext(r.Context()))
			switch {
			case err == nil:
				next(w, r)
			case errors.Is(err, errors.ErrUnauthorized):
				http.Redirect(w, r, RouteIndex, http.StatusSeeOther)
			default:
				zerolog.Ctx(r.Context()).Warn().
					Str("path", r.URL.Path).
					Str("requirement", requirement.String()).
					Msg("forbidden")
				http.Error(w, "Forbidden", http.StatusForbidden)
			}
		}
	}
}
