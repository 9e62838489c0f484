package constants

// Static route constants
const (
	APIRoute      = "/api"
	APIV1Route    = "/api/v1"
	AdminRoute    = "/admin"
	LoginRoute    = "/login"
	RegisterRoute = "/register"
	LogoutRoute   = "/logout"
)
