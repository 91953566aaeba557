// Package auth resolves the caller principal of a request, either from an
// Ed25519 signature over a per-principal challenge or from a Clerk session.
package auth

import (
	"net/http"

	"github.com/rs/zerolog"
)

var authLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	authLogger = l
}

type AuthProvider interface {
	// WithHeaderAuthorization puts the verified principal in the request
	// context. Requests without credentials pass through as anonymous.
	WithHeaderAuthorization() func(http.Handler) http.Handler

	// RegisterRoutes adds the provider's own endpoints to mux.
	RegisterRoutes(mux *http.ServeMux)
}
