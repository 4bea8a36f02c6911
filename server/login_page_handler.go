package server

import (
	"net/http"

	"github.com/jrsteele09/go-members-gateway/internal/errors"
	"github.com/rs/zerolog"
)

// LoginSubmissionHandler checks the posted credentials. Success moves the session to a new id
// and redirects to the members area; a failure re-renders with a retry link and leaves
// the session as it was.
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.parseForm(w, r) {
			return
		}
		email := r.PostFormValue("email")
		zerolog.Ctx(r.Context()).Info().Str("email", email).Msg("login submitted")

		session := SessionFromContext(r.Context())
		authed, err := s.auth.Login(r.Context(), session.ID, email, r.PostFormValue("password"))
		if err != nil {
			s.authFailure(w, r, "login", err, RouteLogin)
			return
		}

		if err := s.cookies.write(w, r, authed.ID); err != nil {
			s.serverError(w, r, err)
			return
		}
		s.metrics.AuthEvent("login", "success")
		redirectSuccess(w, r, RouteMembers)
	}
}

// LogoutHandler destroys the session and clears the cookie
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := SessionFromContext(r.Context())
		if err := s.sessions.Destroy(r.Context(), session.ID); err != nil {
			s.serverError(w, r, err)
			return
		}
		s.cookies.clear(w, r)
		s.metrics.AuthEvent("logout", "success")
		redirectSuccess(w, r, RouteIndex)
	}
}

// authFailure renders user-correctable login and signup errors; anything else is a server error
func (s *Server) authFailure(w http.ResponseWriter, r *http.Request, event string, err error, retryURL string) {
	switch {
	case errors.Is(err, errors.ErrValidation):
		s.metrics.AuthEvent(event, "invalid_input")
		s.userError(w, r, err.Error(), retryURL)
	case errors.Is(err, errors.ErrInvalidCredentials):
		s.metrics.AuthEvent(event, "invalid_credentials")
		s.userError(w, r, "Invalid email/password combination", retryURL)
	default:
		s.metrics.AuthEvent(event, "error")
		s.serverError(w, r, err)
	}
}

// parseForm reports false after writing the error response itself
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) bool {
	err := r.ParseForm()
	if err == nil {
		return true
	}
	if s.bodyTooLarge(w, r, err) {
		return false
	}
	s.badRequest(w, r, "Malformed form submission")
	return false
}
