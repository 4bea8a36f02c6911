package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-members-gateway/internal/errors"
	"github.com/rs/zerolog"
)

// HealthHandler reports liveness only; it does not touch the stores
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (s *Server) NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.notFound(w, r)
	}
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	data := s.newPageData(r, "Not found")
	data.Message = "Page not found"
	s.render(w, r, http.StatusNotFound, pageMessage, data)
}

// userError renders a correctable failure with a link back to the form
func (s *Server) userError(w http.ResponseWriter, r *http.Request, message, retryURL string) {
	data := s.newPageData(r, "Try again")
	data.Message = message
	data.RetryURL = retryURL
	s.render(w, r, http.StatusOK, pageMessage, data)
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, message string) {
	data := s.newPageData(r, "Bad request")
	data.Message = message
	s.render(w, r, http.StatusBadRequest, pageMessage, data)
}

// bodyTooLarge renders 413 when err came from the MaxBodyMiddleware limit
func (s *Server) bodyTooLarge(w http.ResponseWriter, r *http.Request, err error) bool {
	var tooLarge *http.MaxBytesError
	if !errors.As(err, &tooLarge) {
		return false
	}
	data := s.newPageData(r, "Too large")
	data.Message = "Request body too large"
	s.render(w, r, http.StatusRequestEntityTooLarge, pageMessage, data)
	return true
}

// serverError logs err and renders a generic page. Store failures are 503, anything else 500.
// The cause never reaches the client.
func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "Something went wrong. Please try again later."
	if errors.Is(err, errors.ErrStoreUnavailable) {
		status = http.StatusServiceUnavailable
		message = "The service is temporarily unavailable. Please try again later."
	}
	zerolog.Ctx(r.Context()).Error().Err(err).Int("status", status).Str("path", r.URL.Path).Msg("request failed")

	data := s.newPageData(r, "Error")
	data.Message = message
	s.render(w, r, status, pageMessage, data)
}
