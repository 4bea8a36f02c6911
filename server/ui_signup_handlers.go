package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-members-gateway/internal/errors"
	"github.com/rs/zerolog"
)

// SignupSubmissionHandler registers the account and logs it straight in. The first account
// the store ever holds becomes admin.
func (s *Server) SignupSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.parseForm(w, r) {
			return
		}
		name := r.PostFormValue("name")
		zerolog.Ctx(r.Context()).Info().Str("name", name).Msg("signup submitted")

		session := SessionFromContext(r.Context())
		authed, err := s.auth.Signup(r.Context(), session.ID, name, r.PostFormValue("email"), r.PostFormValue("password"))
		if err != nil {
			if errors.Is(err, errors.ErrEmailTaken) {
				s.metrics.AuthEvent("signup", "email_taken")
				email := strings.TrimSpace(r.PostFormValue("email"))
				s.userError(w, r, fmt.Sprintf("User with email %s already exists", email), RouteSignup)
				return
			}
			s.authFailure(w, r, "signup", err, RouteSignup)
			return
		}

		if err := s.cookies.write(w, r, authed.ID); err != nil {
			s.serverError(w, r, err)
			return
		}
		zerolog.Ctx(r.Context()).Info().
			Str("email", authed.Principal.Email).
			Str("role", string(authed.Principal.Role)).
			Msg("user signed up")
		s.metrics.AuthEvent("signup", "success")
		redirectSuccess(w, r, RouteMembers)
	}
}
