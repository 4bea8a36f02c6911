package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteIndex = "/"

	// Auth Routes - Login & Logout
	RouteLogin       = "/login"
	RouteLoginSubmit = "/loginSubmit"
	RouteLogout      = "/logout"

	// Auth Routes - Signup
	RouteSignup       = "/signup"
	RouteSignupSubmit = "/signupSubmit"

	// Members area
	RouteMembers = "/members"

	// Admin Routes
	RouteAdmin       = "/admin"
	RoutePromoteUser = "/promoteUser"
	RouteDemoteUser  = "/demoteUser"

	// Operational Routes
	RouteMetrics = "/metrics"
	RouteHealthz = "/healthz"

	// Static Asset Routes (patterns)
	RouteStaticCSS    = "/css/{file}"
	RouteStaticJS     = "/js/{file}"
	RouteStaticImages = "/images/{file}"
)
