package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/microsites/internal/config"
	"github.com/debemdeboas/microsites/internal/model"
)

// Ed25519ChallengeHandler serves the challenge of ?principal= on GET and
// rotates it on POST.
func Ed25519ChallengeHandler(provider *Ed25519AuthProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := zerolog.Ctx(r.Context())
		principal := model.UserID(r.URL.Query().Get("principal"))

		var challenge []byte
		var err error
		switch r.Method {
		case http.MethodGet:
			challenge, err = provider.Challenge(principal)
		case http.MethodPost:
			challenge, err = provider.RefreshChallenge(principal)
		default:
			http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
			return
		}

		if errors.Is(err, ErrUnknownPrincipal) {
			http.Error(w, config.ErrUnknownPrincipal, http.StatusNotFound)
			return
		}
		if err != nil {
			l.Error().Err(err).Msg("Failed to get challenge")
			http.Error(w, config.ErrRefreshChallengeFmt, http.StatusInternalServerError)
			return
		}

		response := map[string]string{
			"challenge": base64.StdEncoding.EncodeToString(challenge),
		}

		w.Header().Set(config.HCType, config.CTypeJSON)
		json.NewEncoder(w).Encode(response)
	}
}

// Ed25519VerifyHandler checks a signature and stores the credentials in
// cookies for browser sessions.
func Ed25519VerifyHandler(provider *Ed25519AuthProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
			return
		}

		principal := model.UserID(r.Header.Get(config.HPrincipal))
		authHeader := r.Header.Get(provider.headerName)
		if principal.Anonymous() || authHeader == "" {
			http.Error(w, config.ErrAuthHeaderRequired, http.StatusUnauthorized)
			return
		}

		signature, err := base64.StdEncoding.DecodeString(strings.TrimSpace(authHeader))
		if err != nil {
			authLogger.Error().Err(err).Msg("Failed to decode signature")
			http.Error(w, config.ErrInvalidSignatureFormat, http.StatusUnauthorized)
			return
		}

		if !provider.Verify(principal, signature) {
			authLogger.Warn().Str("principal", string(principal)).Msg("Signature verification failed")
			http.Error(w, config.ErrInvalidSignature, http.StatusUnauthorized)
			return
		}

		cookie := func(name, value string) *http.Cookie {
			return &http.Cookie{
				Name:     name,
				Value:    value,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteStrictMode,
				Secure:   r.TLS != nil,
				MaxAge:   3600 * 24, // 24 hours
			}
		}
		http.SetCookie(w, cookie(config.CookieAuthToken, base64.StdEncoding.EncodeToString(signature)))
		http.SetCookie(w, cookie(config.CookiePrincipal, string(principal)))

		w.WriteHeader(http.StatusOK)
	}
}
