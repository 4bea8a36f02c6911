package server

import (
	"fmt"
	"math/rand/v2"
	"net/http"
)

const memberImageCount = 3

func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, pageIndex, s.newPageData(r, "Home"))
	}
}

func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, pageLogin, s.newPageData(r, "Log in"))
	}
}

func (s *Server) SignupPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, pageSignup, s.newPageData(r, "Sign up"))
	}
}

// MembersHandler greets the principal with one of the member images picked at random
func (s *Server) MembersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.newPageData(r, "Members")
		data.Image = randomMemberImage()
		s.render(w, r, http.StatusOK, pageMembers, data)
	}
}

func randomMemberImage() string {
	return fmt.Sprintf("image_%d.svg", 1+rand.IntN(memberImageCount))
}
