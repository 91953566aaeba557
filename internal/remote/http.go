package remote

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/debemdeboas/microsites/internal/config"
	"github.com/debemdeboas/microsites/internal/model"
)

// HTTPBackend implements Backend over the JSON API served by package server.
// Requests of an identified caller carry the principal and an Ed25519
// signature of the server's challenge for that principal.
type HTTPBackend struct {
	baseURL    string
	principal  model.UserID
	key        ed25519.PrivateKey
	headerName string
	client     *http.Client

	mu        sync.Mutex
	signature string
}

var _ Backend = (*HTTPBackend)(nil)

type HTTPOption func(*HTTPBackend)

// WithIdentity makes requests on behalf of principal, signed with key.
func WithIdentity(principal model.UserID, key ed25519.PrivateKey) HTTPOption {
	return func(b *HTTPBackend) {
		b.principal = principal
		b.key = key
	}
}

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(b *HTTPBackend) {
		b.client = c
	}
}

func WithTimeout(d time.Duration) HTTPOption {
	return func(b *HTTPBackend) {
		b.client = &http.Client{Timeout: d}
	}
}

func WithHeaderName(name string) HTTPOption {
	return func(b *HTTPBackend) {
		b.headerName = name
	}
}

func NewHTTPBackend(baseURL string, opts ...HTTPOption) *HTTPBackend {
	b := &HTTPBackend{
		baseURL:    strings.TrimRight(baseURL, "/"),
		headerName: "Authorization",
		client:     &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// --- HTTP helpers ---

func (b *HTTPBackend) doJSON(ctx context.Context, op, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set(config.HCType, config.CTypeJSON)
	if err := b.authorize(ctx, req); err != nil {
		return nil, &model.TransportError{Op: op, Err: err}
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, &model.TransportError{Op: op, Err: err}
	}
	if resp.StatusCode == http.StatusUnauthorized {
		// The challenge may have been rotated; sign a fresh one next time.
		b.resetSignature()
	}
	return resp, nil
}

func (b *HTTPBackend) authorize(ctx context.Context, req *http.Request) error {
	if b.key == nil || b.principal.Anonymous() {
		return nil
	}
	sig, err := b.sign(ctx)
	if err != nil {
		return err
	}
	req.Header.Set(config.HPrincipal, string(b.principal))
	req.Header.Set(b.headerName, sig)
	return nil
}

func (b *HTTPBackend) sign(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.signature != "" {
		return b.signature, nil
	}

	path := "/auth/challenge?principal=" + url.QueryEscape(string(b.principal))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path, nil)
	if err != nil {
		return "", err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching challenge: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching challenge: API error %d", resp.StatusCode)
	}

	var payload struct {
		Challenge string `json:"challenge"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decoding challenge: %w", err)
	}
	challenge, err := base64.StdEncoding.DecodeString(payload.Challenge)
	if err != nil {
		return "", fmt.Errorf("decoding challenge: %w", err)
	}

	b.signature = base64.StdEncoding.EncodeToString(ed25519.Sign(b.key, challenge))
	return b.signature, nil
}

func (b *HTTPBackend) resetSignature() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.signature = ""
}

func decodeResponse[T any](op string, resp *http.Response, public bool) (T, error) {
	defer resp.Body.Close()
	var zero T

	if resp.StatusCode >= 400 {
		var apiErr APIError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return zero, errorFromResponse(op, resp.StatusCode, apiErr.Error, public)
	}

	var wrapper Envelope[T]
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		return zero, &model.TransportError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return wrapper.Data, nil
}

func call[T any](ctx context.Context, b *HTTPBackend, op, method, path string, body any, public bool) (T, error) {
	var zero T
	resp, err := b.doJSON(ctx, op, method, path, body)
	if err != nil {
		return zero, err
	}
	return decodeResponse[T](op, resp, public)
}

func projectPath(id model.ProjectID) string {
	return "/api/projects/" + id.String()
}

func userPath(user model.UserID) string {
	return "/api/users/" + url.PathEscape(string(user))
}

// --- Projects ---

func (b *HTTPBackend) CreateProject(ctx context.Context, name string, description *string) (model.ProjectID, error) {
	created, err := call[CreatedProject](ctx, b, "createProject", http.MethodPost, "/api/projects",
		ProjectRequest{Name: name, Description: description}, false)
	return created.ID, err
}

func (b *HTTPBackend) UpdateProject(ctx context.Context, id model.ProjectID, name string, description *string) error {
	_, err := call[Ack](ctx, b, "updateProject", http.MethodPut, projectPath(id),
		ProjectRequest{Name: name, Description: description}, false)
	return err
}

func (b *HTTPBackend) DeleteProject(ctx context.Context, id model.ProjectID) error {
	_, err := call[Ack](ctx, b, "deleteProject", http.MethodDelete, projectPath(id), nil, false)
	return err
}

func (b *HTTPBackend) GetProject(ctx context.Context, id model.ProjectID) (*model.Project, error) {
	return call[*model.Project](ctx, b, "getProject", http.MethodGet, projectPath(id), nil, false)
}

func (b *HTTPBackend) GetProjectPublic(ctx context.Context, id model.ProjectID) (*model.Project, error) {
	return call[*model.Project](ctx, b, "getProjectPublic", http.MethodGet, "/api/public/projects/"+id.String(), nil, true)
}

func (b *HTTPBackend) GetUserProjects(ctx context.Context, owner model.UserID) ([]model.Project, error) {
	return call[[]model.Project](ctx, b, "getUserProjects", http.MethodGet, userPath(owner)+"/projects", nil, false)
}

func (b *HTTPBackend) ListPublicProjects(ctx context.Context) ([]model.Project, error) {
	return call[[]model.Project](ctx, b, "listPublicProjects", http.MethodGet, "/api/public/projects", nil, false)
}

func (b *HTTPBackend) SaveProjectState(ctx context.Context, id model.ProjectID, state model.ProjectState) error {
	_, err := call[Ack](ctx, b, "saveProjectState", http.MethodPut, projectPath(id)+"/state", state, false)
	return err
}

func (b *HTTPBackend) PublishProject(ctx context.Context, id model.ProjectID) error {
	_, err := call[Ack](ctx, b, "publishProject", http.MethodPost, projectPath(id)+"/publish", nil, false)
	return err
}

func (b *HTTPBackend) UnpublishProject(ctx context.Context, id model.ProjectID) error {
	_, err := call[Ack](ctx, b, "unpublishProject", http.MethodPost, projectPath(id)+"/unpublish", nil, false)
	return err
}

// --- Profiles and roles ---

func (b *HTTPBackend) GetCallerUserProfile(ctx context.Context) (*model.Profile, error) {
	return call[*model.Profile](ctx, b, "getCallerUserProfile", http.MethodGet, "/api/me/profile", nil, false)
}

func (b *HTTPBackend) GetUserProfile(ctx context.Context, user model.UserID) (*model.Profile, error) {
	return call[*model.Profile](ctx, b, "getUserProfile", http.MethodGet, userPath(user)+"/profile", nil, false)
}

func (b *HTTPBackend) SaveCallerUserProfile(ctx context.Context, profile model.Profile) error {
	_, err := call[Ack](ctx, b, "saveCallerUserProfile", http.MethodPut, "/api/me/profile", profile, false)
	return err
}

func (b *HTTPBackend) GetCallerUserRole(ctx context.Context) (model.Role, error) {
	r, err := call[RoleResponse](ctx, b, "getCallerUserRole", http.MethodGet, "/api/me/role", nil, false)
	return r.Role, err
}

func (b *HTTPBackend) AssignCallerUserRole(ctx context.Context, user model.UserID, role model.Role) error {
	_, err := call[Ack](ctx, b, "assignCallerUserRole", http.MethodPut, userPath(user)+"/role", RoleRequest{Role: role}, false)
	return err
}

func (b *HTTPBackend) IsCallerAdmin(ctx context.Context) (bool, error) {
	r, err := call[AdminResponse](ctx, b, "isCallerAdmin", http.MethodGet, "/api/me/admin", nil, false)
	return r.Admin, err
}
