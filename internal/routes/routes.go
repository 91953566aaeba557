// Package routes defines HTTP route constants for the application.
package routes

// API Routes
const (
	// Static and assets
	RobotsPath     = "/robots.txt"
	SyntaxThemeGet = "/syntax-theme/{theme}"

	// SSE
	SSEPath = "/sse"

	// Public pages
	PublicPage      = "/p/{id}"
	PartialsPreview = "/partials/preview"

	// Projects
	APIProjects         = "/api/projects"
	APIProject          = "/api/projects/{id}"
	APIProjectState     = "/api/projects/{id}/state"
	APIProjectPublish   = "/api/projects/{id}/publish"
	APIProjectUnpublish = "/api/projects/{id}/unpublish"

	// Users
	APIUserProjects = "/api/users/{user}/projects"
	APIUserProfile  = "/api/users/{user}/profile"
	APIUserRole     = "/api/users/{user}/role"

	// Public API
	APIPublicProjects = "/api/public/projects"
	APIPublicProject  = "/api/public/projects/{id}"

	// Caller
	APIMeProfile = "/api/me/profile"
	APIMeRole    = "/api/me/role"
	APIMeAdmin   = "/api/me/admin"

	// Auth routes
	AuthChallenge = "/auth/challenge"
	AuthVerify    = "/auth/verify"
	WebhookUser   = "/webhook/user"
)
