package config

const (
	// Database errors
	ErrInitializeDatabaseFmt = "Failed to initialize database: %v"

	// Auth errors
	ErrCreateProviderFmt      = "Failed to create provider: %v"
	ErrAuthHeaderRequired     = "Authorization header required"
	ErrInvalidSignatureFormat = "Invalid signature format"
	ErrInvalidSignature       = "Invalid signature"
	ErrUnknownPrincipal       = "Unknown principal"
	ErrInternalServerError    = "Internal server error"

	// Challenge errors
	ErrRefreshChallengeFmt = "Failed to refresh challenge"

	// Public page errors
	ErrProjectNotFoundOrUnpublished = "This project is not found or not published."
)
