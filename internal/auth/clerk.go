package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkhttp "github.com/clerk/clerk-sdk-go/v2/http"

	"github.com/debemdeboas/microsites/internal/model"
	"github.com/debemdeboas/microsites/internal/routes"
)

const clerkSessionCookie = "__session"

// ProfileSaver receives the display names announced by the user webhook.
type ProfileSaver interface {
	Save(ctx context.Context, user model.UserID, profile model.Profile) error
}

// ClerkAuthProvider implements AuthProvider with Clerk sessions. The principal
// is the subject of the session claims.
type ClerkAuthProvider struct {
	profiles ProfileSaver

	cookieExtractor clerkhttp.AuthorizationOption
}

func NewClerkAuthProvider(clerkKey string, profiles ProfileSaver) *ClerkAuthProvider {
	clerk.SetKey(clerkKey)

	return &ClerkAuthProvider{
		profiles: profiles,
		cookieExtractor: clerkhttp.AuthorizationJWTExtractor(func(r *http.Request) string {
			cookie, err := r.Cookie(clerkSessionCookie)
			if err != nil || cookie == nil {
				return ""
			}
			return cookie.Value
		}),
	}
}

func (c *ClerkAuthProvider) WithHeaderAuthorization() func(http.Handler) http.Handler {
	verify := clerkhttp.WithHeaderAuthorization(c.cookieExtractor)
	return func(next http.Handler) http.Handler {
		return verify(principalFromClaims(next))
	}
}

func principalFromClaims(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := clerk.SessionClaimsFromContext(r.Context()); ok && claims.Subject != "" {
			r = r.WithContext(ContextWithPrincipal(r.Context(), model.UserID(claims.Subject)))
		}
		next.ServeHTTP(w, r)
	})
}

func (c *ClerkAuthProvider) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST "+routes.WebhookUser, c.HandleWebhookUser)
}

// displayName picks the first non-blank of full name and username.
func displayName(usr *clerk.User) string {
	var parts []string
	for _, s := range []*string{usr.FirstName, usr.LastName} {
		if s != nil && strings.TrimSpace(*s) != "" {
			parts = append(parts, strings.TrimSpace(*s))
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	if usr.Username != nil {
		return strings.TrimSpace(*usr.Username)
	}
	return ""
}

// HandleWebhookUser keeps profiles in step with Clerk user events.
func (c *ClerkAuthProvider) HandleWebhookUser(w http.ResponseWriter, r *http.Request) {
	type EventPayload struct {
		Data clerk.User `json:"data"`
		Type string     `json:"type"`
	}

	var payload EventPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		authLogger.Error().Err(err).Msg("Error decoding event payload")
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	usr := &payload.Data
	l := authLogger.With().Str("type", payload.Type).Str("user_id", usr.ID).Logger()

	switch payload.Type {
	case "user.created", "user.updated":
		name := displayName(usr)
		if usr.ID == "" || name == "" {
			l.Info().Msg("User event without a usable name, skipping")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if err := c.profiles.Save(r.Context(), model.UserID(usr.ID), model.Profile{Name: name}); err != nil {
			l.Error().Err(err).Msg("Error saving profile")
			http.Error(w, "Error saving user", http.StatusInternalServerError)
			return
		}

		l.Info().Msg("Profile synced from user event")
		if payload.Type == "user.created" {
			w.WriteHeader(http.StatusCreated)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case "user.deleted":
		// Projects stay with their owner id; there is nothing to cascade.
		l.Info().Msg("User deleted")
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Invalid event type", http.StatusBadRequest)
	}
}

var _ AuthProvider = (*ClerkAuthProvider)(nil)
