package auth

import (
	"context"
	"net/http"

	"github.com/debemdeboas/microsites/internal/model"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

// ContextKeyPrincipal is the key for the caller principal in request context
const ContextKeyPrincipal ContextKey = "principal"

func ContextWithPrincipal(ctx context.Context, principal model.UserID) context.Context {
	return context.WithValue(ctx, ContextKeyPrincipal, principal)
}

// PrincipalFromContext reports false for anonymous requests.
func PrincipalFromContext(ctx context.Context) (model.UserID, bool) {
	principal, ok := ctx.Value(ContextKeyPrincipal).(model.UserID)
	return principal, ok && !principal.Anonymous()
}

// Principal is the caller of r, empty when anonymous.
func Principal(r *http.Request) model.UserID {
	principal, _ := PrincipalFromContext(r.Context())
	return principal
}
