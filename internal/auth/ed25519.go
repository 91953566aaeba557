package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/microsites/internal/config"
	"github.com/debemdeboas/microsites/internal/model"
	"github.com/debemdeboas/microsites/internal/routes"
)

const challengeSize = 32

var ErrUnknownPrincipal = errors.New("unknown principal")

// Ed25519AuthProvider implements AuthProvider with one Ed25519 key and one
// challenge per principal. A principal proves itself by signing its challenge.
type Ed25519AuthProvider struct {
	keys       map[model.UserID]ed25519.PublicKey
	headerName string

	mu         sync.RWMutex
	challenges map[model.UserID][]byte
}

// NewEd25519AuthProvider parses keys, which map a principal to its PEM public key.
func NewEd25519AuthProvider(keys map[string]string, headerName string) (*Ed25519AuthProvider, error) {
	p := &Ed25519AuthProvider{
		keys:       make(map[model.UserID]ed25519.PublicKey, len(keys)),
		headerName: headerName,
		challenges: make(map[model.UserID][]byte, len(keys)),
	}

	for principal, publicKeyPEM := range keys {
		if principal == "" {
			return nil, errors.New("empty principal in key list")
		}
		key, err := ParsePublicKeyPEM(publicKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("key of %s: %w", principal, err)
		}
		p.keys[model.UserID(principal)] = key
	}

	return p, nil
}

func newChallenge() ([]byte, error) {
	challenge := make([]byte, challengeSize)
	if _, err := rand.Read(challenge); err != nil {
		return nil, fmt.Errorf("failed to generate challenge: %w", err)
	}
	return challenge, nil
}

// Challenge returns the current challenge of principal, creating one on first use.
func (p *Ed25519AuthProvider) Challenge(principal model.UserID) ([]byte, error) {
	if _, ok := p.keys[principal]; !ok {
		return nil, ErrUnknownPrincipal
	}

	p.mu.RLock()
	challenge, ok := p.challenges[principal]
	p.mu.RUnlock()
	if ok {
		return challenge, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if challenge, ok := p.challenges[principal]; ok {
		return challenge, nil
	}
	challenge, err := newChallenge()
	if err != nil {
		return nil, err
	}
	p.challenges[principal] = challenge
	return challenge, nil
}

// RefreshChallenge replaces the challenge of principal, invalidating every
// signature over the previous one.
func (p *Ed25519AuthProvider) RefreshChallenge(principal model.UserID) ([]byte, error) {
	if _, ok := p.keys[principal]; !ok {
		return nil, ErrUnknownPrincipal
	}
	challenge, err := newChallenge()
	if err != nil {
		authLogger.Error().Err(err).Msg("Failed to generate challenge")
		return nil, err
	}

	p.mu.Lock()
	p.challenges[principal] = challenge
	p.mu.Unlock()
	return challenge, nil
}

// Verify checks signature against the current challenge of principal.
func (p *Ed25519AuthProvider) Verify(principal model.UserID, signature []byte) bool {
	key, ok := p.keys[principal]
	if !ok {
		return false
	}
	p.mu.RLock()
	challenge, ok := p.challenges[principal]
	p.mu.RUnlock()
	return ok && ed25519.Verify(key, challenge, signature)
}

// credentials reads the principal and signature from headers, falling back
// to the cookies set by the verify endpoint.
func (p *Ed25519AuthProvider) credentials(r *http.Request) (model.UserID, string) {
	principal := r.Header.Get(config.HPrincipal)
	if principal == "" {
		if c, err := r.Cookie(config.CookiePrincipal); err == nil {
			principal = c.Value
		}
	}

	signature := strings.TrimSpace(r.Header.Get(p.headerName))
	if signature == "" {
		if c, err := r.Cookie(config.CookieAuthToken); err == nil {
			signature = c.Value
		}
	}
	return model.UserID(principal), signature
}

// WithHeaderAuthorization rejects requests that name a principal without a
// valid signature with 401, so clients know to sign a fresh challenge.
func (p *Ed25519AuthProvider) WithHeaderAuthorization() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, encoded := p.credentials(r)
			if principal.Anonymous() {
				next.ServeHTTP(w, r)
				return
			}

			l := zerolog.Ctx(r.Context()).With().Str("principal", string(principal)).Logger()

			signature, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil || len(signature) == 0 {
				l.Warn().Err(err).Msg("Missing or malformed signature")
				http.Error(w, config.ErrInvalidSignatureFormat, http.StatusUnauthorized)
				return
			}
			if !p.Verify(principal, signature) {
				l.Warn().Msg("Signature verification failed")
				http.Error(w, config.ErrInvalidSignature, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

func (p *Ed25519AuthProvider) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc(routes.AuthChallenge, Ed25519ChallengeHandler(p))
	mux.HandleFunc(routes.AuthVerify, Ed25519VerifyHandler(p))
}

var _ AuthProvider = (*Ed25519AuthProvider)(nil)
