package domain

// Route is a navigation target in the host UI.
type Route string

const (
	RouteHome           Route = "/"
	RouteLogin          Route = "/login"
	RouteRegister       Route = "/register"
	RouteUserDashboard  Route = "/user/dashboard"
	RouteAdminDashboard Route = "/admin/dashboard"
)
