package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-members-gateway/users"
	"github.com/rs/zerolog"
)

const dateJoinedLayout = "2006-01-02 15:04"

// roleChangeRequest is the JSON body posted by the admin page
type roleChangeRequest struct {
	UserID string `json:"userId"`
}

// AdminUsersListHandler lists every user with their role
func (s *Server) AdminUsersListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderAdmin(w, r, "")
	}
}

func (s *Server) PromoteUserHandler() http.HandlerFunc {
	return s.roleChangeHandler(users.RoleAdmin)
}

func (s *Server) DemoteUserHandler() http.HandlerFunc {
	return s.roleChangeHandler(users.RoleUser)
}

// roleChangeHandler sets the target's role and re-renders the listing. An unknown target
// is reported on the page rather than treated as a failure.
func (s *Server) roleChangeHandler(role users.RoleType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req roleChangeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			if s.bodyTooLarge(w, r, err) {
				return
			}
			s.badRequest(w, r, "Expected a JSON body with a userId")
			return
		}
		target := strings.TrimSpace(req.UserID)
		if target == "" {
			s.badRequest(w, r, "userId is required")
			return
		}

		changed, err := s.auth.SetRole(r.Context(), target, role)
		if err != nil {
			s.serverError(w, r, err)
			return
		}

		actor := SessionFromContext(r.Context()).Principal.Email
		logger := zerolog.Ctx(r.Context())
		var notice string
		if changed {
			s.metrics.AuthEvent("role_change", "success")
			logger.Info().Str("actor", actor).Str("target", target).Str("role", string(role)).Msg("role updated")
			notice = fmt.Sprintf("Role updated: %s is now %s", target, role)
		} else {
			s.metrics.AuthEvent("role_change", "not_found")
			logger.Info().Str("actor", actor).Str("target", target).Msg("role change for unknown user")
			notice = fmt.Sprintf("No change: user %s not found", target)
		}
		s.renderAdmin(w, r, notice)
	}
}

func (s *Server) renderAdmin(w http.ResponseWriter, r *http.Request, notice string) {
	list, err := s.auth.ListUsers(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	data := s.newPageData(r, "Admin")
	data.Notice = notice
	data.Total = len(list)
	for _, u := range list {
		data.Users = append(data.Users, UserRow{
			Email:       u.Email,
			DisplayName: u.DisplayName,
			Role:        string(u.Role),
			DateJoined:  u.DateJoined.UTC().Format(dateJoinedLayout),
			IsAdmin:     u.IsAdmin(),
			IsSelf:      u.Email == data.Email,
		})
	}
	s.render(w, r, http.StatusOK, pageAdmin, data)
}
