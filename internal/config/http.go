package config

const (
	HCType        = "Content-Type"
	HETag         = "ETag"
	HIfNoneMatch  = "If-None-Match"
	HCacheControl = "Cache-Control"
	HVary         = "Vary"
	HRequestID    = "X-Request-Id"
	HPrincipal    = "X-Principal"

	CTypeCSS         = "text/css"
	CTypeHTML        = "text/html"
	CTypeJSON        = "application/json"
	CTypePlain       = "text/plain"
	CTypeEventStream = "text/event-stream"
)

const (
	HTTPErrMethodNotAllowed = "Method not allowed"
	HTTPErrProjectRequired  = "Project parameter required"
	HTTPErrStreaming        = "Streaming unsupported"
)

const (
	CookieAuthToken = "auth_token"
	CookiePrincipal = "principal"
)
