package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/go-members-gateway/auth"
	"github.com/jrsteele09/go-members-gateway/users"
)

var adminOnly = auth.RoleRequired(users.RoleAdmin)

func (s *Server) initRoutes() {
	s.registerPage("GET "+RouteIndex+"{$}", auth.Public, s.IndexHandler())

	// LOGIN
	s.registerPage("GET "+RouteLogin, auth.Public, s.LoginPageHandler())
	s.registerPage("POST "+RouteLoginSubmit, auth.Public, s.LoginSubmissionHandler())
	s.registerPage("GET "+RouteLogout, auth.Public, s.LogoutHandler())

	// SIGNUP
	s.registerPage("GET "+RouteSignup, auth.Public, s.SignupPageHandler())
	s.registerPage("POST "+RouteSignupSubmit, auth.Public, s.SignupSubmissionHandler())

	s.registerPage("GET "+RouteMembers, auth.AuthenticatedOnly, s.MembersHandler())

	// Admin routes
	s.registerPage("GET "+RouteAdmin, adminOnly, s.AdminUsersListHandler())
	s.registerPage("POST "+RoutePromoteUser, adminOnly, s.PromoteUserHandler())
	s.registerPage("POST "+RouteDemoteUser, adminOnly, s.DemoteUserHandler())

	// Operational routes
	s.RegisterRouteHandler("GET "+RouteMetrics, s.metrics.Handler())
	s.registerPlain("GET "+RouteHealthz, s.HealthHandler())

	s.registerPlain("GET "+RouteStaticCSS, ChainMiddleware(s.serveFileHandler(), s.CacheMiddleware))
	s.registerPlain("GET "+RouteStaticJS, ChainMiddleware(s.serveFileHandler(), s.CacheMiddleware))
	s.registerPlain("GET "+RouteStaticImages, ChainMiddleware(s.serveFileHandler(), s.CacheMiddleware))

	// Everything else
	s.registerPlain("/", s.NotFoundHandler())
}

// registerPage wires an HTML route: the standard stack, the session, then the access check
func (s *Server) registerPage(pattern string, requirement auth.Requirement, handler http.HandlerFunc) {
	chained := ChainMiddleware(handler, s.HTMLMiddleWare(s.SessionMiddleware, s.RequireMiddleware(requirement))...)
	s.RegisterRouteFunc(pattern, s.metrics.Instrument(pattern, chained))
}

// registerPlain wires a route that needs no session
func (s *Server) registerPlain(pattern string, handler http.HandlerFunc) {
	chained := ChainMiddleware(handler, s.HTMLMiddleWare()...)
	s.RegisterRouteFunc(pattern, s.metrics.Instrument(pattern, chained))
}

func (s *Server) serveFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath := strings.TrimPrefix(r.URL.Path, "/")
		if filePath == "" {
			s.notFound(w, r)
			return
		}
		err := StreamFile(w, r, filePath)
		if err != nil {
			logError(r.Method, filePath, err.Error())
			s.notFound(w, r)
			return
		}
	}
}
