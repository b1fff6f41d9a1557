package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes - Login & Logout
	RouteLogin      = "/login"
	RouteAuthLogin  = "/auth/login"
	RouteAuthLogout = "/auth/logout"

	// Dashboard Routes
	RouteDashboard        = "/dashboard"
	RouteDashboardSection = "/dashboard/{section}"

	// Agent Routes
	RouteAgentAdd      = "/dashboard/agents"
	RouteAgentEdit     = "/dashboard/agents/{agentno}/edit"
	RouteAgentDelete   = "/dashboard/agents/{agentno}/delete"
	RouteAgentUpload   = "/dashboard/agents/{agentno}/upload"
	RouteAgentDownload = "/dashboard/agents/{agentno}/download"

	// Static Asset Routes (patterns)
	RouteStaticCSS = "/css/{file}"

	// Query parameters carried across redirects
	QueryExpired = "expired"
	QueryError   = "error"
	QuerySuccess = "success"
)
