// Package server serves the project JSON API, the public pages of published
// projects and the editor preview over net/http.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/microsites/internal/auth"
	"github.com/debemdeboas/microsites/internal/pages"
	"github.com/debemdeboas/microsites/internal/routes"
	"github.com/debemdeboas/microsites/internal/service"
	"github.com/debemdeboas/microsites/internal/sse"
)

var serverLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	serverLogger = l
}

const (
	maxBodyBytes      = 1 << 20
	readHeaderTimeout = 10 * time.Second
)

type Server struct {
	service  *service.Service
	renderer *pages.Renderer
	provider auth.AuthProvider
	clients  *sse.SSEClients

	mux *http.ServeMux

	mu      sync.Mutex
	httpSrv *http.Server
}

type Option func(*Server)

// WithAuthProvider resolves callers with p. Without one every request is anonymous.
func WithAuthProvider(p auth.AuthProvider) Option {
	return func(s *Server) { s.provider = p }
}

func WithClients(c *sse.SSEClients) Option {
	return func(s *Server) { s.clients = c }
}

func New(svc *service.Service, renderer *pages.Renderer, opts ...Option) *Server {
	s := &Server{
		service:  svc,
		renderer: renderer,
		clients:  sse.NewSSEClients(),
		mux:      http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET "+routes.RobotsPath, s.serveRobots)
	s.mux.HandleFunc("GET "+routes.SyntaxThemeGet, s.serveSyntaxTheme)
	s.mux.HandleFunc("GET "+routes.SSEPath, s.serveEvents)
	s.mux.HandleFunc("GET "+routes.PublicPage, s.servePublicPage)
	s.mux.HandleFunc("POST "+routes.PartialsPreview, s.servePreview)

	s.mux.HandleFunc("POST "+routes.APIProjects, s.createProject)
	s.mux.HandleFunc("GET "+routes.APIProject, s.getProject)
	s.mux.HandleFunc("PUT "+routes.APIProject, s.updateProject)
	s.mux.HandleFunc("DELETE "+routes.APIProject, s.deleteProject)
	s.mux.HandleFunc("PUT "+routes.APIProjectState, s.saveProjectState)
	s.mux.HandleFunc("POST "+routes.APIProjectPublish, s.publishProject)
	s.mux.HandleFunc("POST "+routes.APIProjectUnpublish, s.unpublishProject)

	s.mux.HandleFunc("GET "+routes.APIUserProjects, s.getUserProjects)
	s.mux.HandleFunc("GET "+routes.APIUserProfile, s.getUserProfile)
	s.mux.HandleFunc("PUT "+routes.APIUserRole, s.assignUserRole)

	s.mux.HandleFunc("GET "+routes.APIPublicProjects, s.listPublicProjects)
	s.mux.HandleFunc("GET "+routes.APIPublicProject, s.getPublicProject)

	s.mux.HandleFunc("GET "+routes.APIMeProfile, s.getCallerProfile)
	s.mux.HandleFunc("PUT "+routes.APIMeProfile, s.saveCallerProfile)
	s.mux.HandleFunc("GET "+routes.APIMeRole, s.getCallerRole)
	s.mux.HandleFunc("GET "+routes.APIMeAdmin, s.isCallerAdmin)

	if s.provider != nil {
		s.provider.RegisterRoutes(s.mux)
	}
}

// Handler is the mux wrapped in the middleware chain, outermost first:
// request logging, cache headers, authentication, security headers.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = secureHeaders(h)
	if s.provider != nil {
		h = s.provider.WithHeaderAuthorization()(h)
	}
	h = cacheIt(h)
	h = withRequestLogger(serverLogger)(h)
	return h
}

// Start blocks serving on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	s.mu.Lock()
	s.httpSrv = srv
	s.mu.Unlock()
	serverLogger.Info().Str("addr", addr).Msg("Server listening")

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpSrv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
