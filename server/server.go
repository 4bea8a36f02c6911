package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-members-gateway/auth"
	"github.com/jrsteele09/go-members-gateway/internal/config"
	"github.com/jrsteele09/go-members-gateway/internal/metrics"
	"github.com/jrsteele09/go-members-gateway/sessions"
	"github.com/jrsteele09/go-members-gateway/users"
	"github.com/rs/zerolog/log"
)

// Repos holds the storage the server runs on
type Repos struct {
	Users    users.UserRepo // Credential store
	Sessions sessions.Repo  // Session store
}

type Server struct {
	env          string // Environment (e.g. "DEV", "PROD")
	appName      string
	mux          *http.ServeMux
	routes       []string
	config       config.Config
	auth         *auth.Service
	sessions     *sessions.Manager
	cookies      *cookieCodec
	metrics      *metrics.Metrics
	pages        pageTemplates
	maxBodyBytes int64
}

func New(c config.Config, repos Repos) (*Server, error) {
	if repos.Users == nil || repos.Sessions == nil {
		return nil, fmt.Errorf("[Server New] user and session repos are required")
	}

	sessionManager, err := sessions.NewManager(repos.Sessions, c.GetSessionIdleTimeout(),
		sessions.WithStoreTimeout(c.GetStoreTimeout()))
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create session manager: %w", err)
	}

	authService, err := auth.NewService(repos.Users, sessionManager,
		auth.WithHasher(users.NewHasher(c.GetPasswordHashCost())),
		auth.WithStoreTimeout(c.GetStoreTimeout()))
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create auth service: %w", err)
	}

	cookies, err := newCookieCodec(c)
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create cookie codec: %w", err)
	}

	pages, err := parsePageTemplates()
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse templates: %w", err)
	}

	s := &Server{
		env:          c.GetEnv(),
		appName:      c.GetAppName(),
		mux:          http.NewServeMux(),
		config:       c,
		auth:         authService,
		sessions:     sessionManager,
		cookies:      cookies,
		metrics:      metrics.New(),
		pages:        pages,
		maxBodyBytes: c.GetMaxBodyBytes(),
	}

	if err := s.InitialiseSystem(context.Background()); err != nil {
		return nil, fmt.Errorf("[Server New] Failed to initialise the system: %w", err)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != config.DevEnv {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Debug().Msgf("[%-19s] %s", colourMethod(method), path)
}

func logError(method, path, error string) {
	log.Error().Msgf("[%-19s] %s %s", colourMethod(method), path, Red+error+ResetColor)
}

func colourMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
