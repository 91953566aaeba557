package server

import (
	"bufio"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debemdeboas/microsites/internal/auth"
	"github.com/debemdeboas/microsites/internal/auth/testdata"
	"github.com/debemdeboas/microsites/internal/config"
	"github.com/debemdeboas/microsites/internal/db"
	"github.com/debemdeboas/microsites/internal/editor"
	"github.com/debemdeboas/microsites/internal/model"
	"github.com/debemdeboas/microsites/internal/pages"
	"github.com/debemdeboas/microsites/internal/projects"
	"github.com/debemdeboas/microsites/internal/publish"
	"github.com/debemdeboas/microsites/internal/query"
	"github.com/debemdeboas/microsites/internal/remote"
	"github.com/debemdeboas/microsites/internal/repository"
	"github.com/debemdeboas/microsites/internal/service"
	"github.com/debemdeboas/microsites/internal/sse"
)

type testEnv struct {
	srv      *httptest.Server
	provider *auth.Ed25519AuthProvider
	clients  *sse.SSEClients
	alice    ed25519.PrivateKey
	bob      ed25519.PrivateKey
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	d := db.NewSQLite(db.MemoryPath)
	require.NoError(t, d.InitDB())
	t.Cleanup(func() { d.Close() })

	svc := service.New(
		repository.NewDBProjectRepository(d),
		repository.NewDBProfileRepository(d),
		repository.NewDBRoleRepository(d),
		service.WithAdmins("bob"),
	)

	bobPub, bobPriv, err := auth.GenerateKeyPair()
	require.NoError(t, err)
	provider, err := auth.NewEd25519AuthProvider(map[string]string{
		testdata.TestPrincipal: testdata.TestPublicKeyPEM,
		"bob":                  string(bobPub),
	}, "Authorization")
	require.NoError(t, err)

	alice, err := auth.ParsePrivateKeyPEM([]byte(testdata.TestPrivateKeyPEM))
	require.NoError(t, err)
	bob, err := auth.ParsePrivateKeyPEM(bobPriv)
	require.NoError(t, err)

	renderer, err := pages.NewRenderer("Microsites")
	require.NoError(t, err)

	clients := sse.NewSSEClients()
	s := New(svc, renderer, WithAuthProvider(provider), WithClients(clients))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{srv: ts, provider: provider, clients: clients, alice: alice, bob: bob}
}

func (e *testEnv) store(principal model.UserID, key ed25519.PrivateKey) *projects.Store {
	var opts []remote.HTTPOption
	if key != nil {
		opts = append(opts, remote.WithIdentity(principal, key))
	}
	backend := remote.NewHTTPBackend(e.srv.URL, opts...)
	return projects.NewStore(remote.NewClient(backend, principal), query.NewCache())
}

func (e *testEnv) get(t *testing.T, path string, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.srv.URL+path, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	var sb strings.Builder
	_, err := bufio.NewReader(resp.Body).WriteTo(&sb)
	require.NoError(t, err)
	return sb.String()
}

func decodeAPIError(t *testing.T, resp *http.Response) remote.ErrorBody {
	t.Helper()
	var body remote.APIError
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Error
}

// createPublished makes a published project owned by alice.
func (e *testEnv) createPublished(t *testing.T, state model.ProjectState) model.ProjectID {
	t.Helper()
	ctx := context.Background()
	store := e.store(testdata.TestPrincipal, e.alice)
	id, err := store.CreateProject(ctx, "Site", nil)
	require.NoError(t, err)
	require.NoError(t, store.SaveProjectState(ctx, id, state))
	require.NoError(t, store.PublishProject(ctx, id))
	return id
}

func TestEndToEnd(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	alice := e.store(testdata.TestPrincipal, e.alice)
	bob := e.store("bob", e.bob)
	anon := e.store("", nil)

	desc := "  my landing page "
	id, err := alice.CreateProject(ctx, "  Landing ", &desc)
	require.NoError(t, err)

	p, err := alice.Project(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Landing", p.Name)
	require.NotNil(t, p.Description)
	assert.Equal(t, "my landing page", *p.Description)
	assert.Equal(t, model.StatusDraft, p.PublishStatus)
	assert.Equal(t, model.ThemeLight, p.State.Theme)

	// Edit through a session and save it
	registry := editor.NewRegistry(alice)
	session, err := registry.Open(ctx, id)
	require.NoError(t, err)
	session.SetTitle("Hello")
	session.SetBody("Some **bold** words")
	require.NoError(t, session.Save(ctx))

	_, err = anon.PublicProject(ctx, id)
	assert.ErrorIs(t, err, model.ErrNotFoundOrUnpublished)
	resp := e.get(t, "/p/"+id.String(), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	err = bob.UpdateProject(ctx, id, "Mine now", nil)
	assert.ErrorIs(t, err, model.ErrNotAuthorized)
	err = bob.PublishProject(ctx, id)
	assert.ErrorIs(t, err, model.ErrNotAuthorized)

	controller := publish.NewController(alice, e.srv.URL)
	require.NoError(t, controller.Publish(ctx, id))
	share, ok, err := controller.ShareURL(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	shareURL, err := url.Parse(share)
	require.NoError(t, err)
	resp = e.get(t, shareURL.Path, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := readAll(t, resp)
	assert.Contains(t, page, "Hello")
	assert.Contains(t, page, "<strong>bold</strong>")

	public, err := anon.PublicProject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Hello", public.State.Title)

	listed, err := anon.PublicProjects(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, id, listed[0].ID)

	require.NoError(t, controller.Unpublish(ctx, id))
	resp = e.get(t, "/p/"+id.String(), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, readAll(t, resp), config.ErrProjectNotFoundOrUnpublished)

	require.NoError(t, alice.DeleteProject(ctx, id))
	_, err = alice.Project(ctx, id, query.Force())
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRolesAndProfiles(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	alice := e.store(testdata.TestPrincipal, e.alice)
	bob := e.store("bob", e.bob)
	anon := e.store("", nil)

	role, err := alice.CallerRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, role)

	role, err = anon.CallerRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.RoleGuest, role)

	admin, err := bob.IsCallerAdmin(ctx)
	require.NoError(t, err)
	assert.True(t, admin)

	err = alice.AssignCallerRole(ctx, "carol", model.RoleAdmin)
	assert.ErrorIs(t, err, model.ErrNotAuthorized)
	require.NoError(t, bob.AssignCallerRole(ctx, testdata.TestPrincipal, model.RoleAdmin))

	admin, err = alice.IsCallerAdmin(ctx, query.Force())
	require.NoError(t, err)
	assert.True(t, admin)

	profile, err := alice.CallerProfile(ctx)
	require.NoError(t, err)
	assert.Nil(t, profile)

	require.NoError(t, alice.SaveCallerProfile(ctx, model.Profile{Name: "Alice"}))
	profile, err = bob.UserProfile(ctx, testdata.TestPrincipal)
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "Alice", profile.Name)

	err = anon.SaveCallerProfile(ctx, model.Profile{Name: "Nobody"})
	assert.ErrorIs(t, err, model.ErrNotAuthorized)
}

func TestSignatureRefreshAfterRotation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := e.store(testdata.TestPrincipal, e.alice)

	_, err := alice.CreateProject(ctx, "First", nil)
	require.NoError(t, err)

	_, err = e.provider.RefreshChallenge(testdata.TestPrincipal)
	require.NoError(t, err)

	_, err = alice.CreateProject(ctx, "Second", nil)
	assert.ErrorIs(t, err, model.ErrNotAuthorized)

	_, err = alice.CreateProject(ctx, "Third", nil)
	assert.NoError(t, err)
}

func TestAPIErrors(t *testing.T) {
	e := newTestEnv(t)

	t.Run("bad signature", func(t *testing.T) {
		resp := e.get(t, "/api/me/role", http.Header{
			config.HPrincipal: {testdata.TestPrincipal},
			"Authorization":   {"bm90LWEtc2lnbmF0dXJl"},
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("anonymous create", func(t *testing.T) {
		resp, err := http.Post(e.srv.URL+"/api/projects", config.CTypeJSON, strings.NewReader(`{"name":"x"}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, remote.CodeNotAuthorized, decodeAPIError(t, resp).Code)
	})

	t.Run("server validates names", func(t *testing.T) {
		backend := remote.NewHTTPBackend(e.srv.URL, remote.WithIdentity(testdata.TestPrincipal, e.alice))
		_, err := backend.CreateProject(context.Background(), "   ", nil)
		var verr *model.ValidationError
		require.True(t, errors.As(err, &verr), "Expected a validation error, got %v", err)
		assert.Equal(t, "name", verr.Field)
	})

	t.Run("malformed body", func(t *testing.T) {
		challenge, err := e.provider.Challenge(testdata.TestPrincipal)
		require.NoError(t, err)
		req, err := http.NewRequest(http.MethodPost, e.srv.URL+"/api/projects", strings.NewReader(`{"name":`))
		require.NoError(t, err)
		req.Header.Set(config.HPrincipal, testdata.TestPrincipal)
		req.Header.Set("Authorization", base64.StdEncoding.EncodeToString(ed25519.Sign(e.alice, challenge)))

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeAPIError(t, resp)
		assert.Equal(t, remote.CodeValidation, body.Code)
		assert.Equal(t, "body", body.Field)
	})

	t.Run("bad project id", func(t *testing.T) {
		resp := e.get(t, "/api/public/projects/abc", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, remote.CodeNotFoundOrUnpublished, decodeAPIError(t, resp).Code)
	})

	t.Run("missing and draft look the same", func(t *testing.T) {
		store := e.store(testdata.TestPrincipal, e.alice)
		id, err := store.CreateProject(context.Background(), "Draft", nil)
		require.NoError(t, err)

		draft := e.get(t, "/api/public/projects/"+id.String(), nil)
		missing := e.get(t, "/api/public/projects/999", nil)
		assert.Equal(t, draft.StatusCode, missing.StatusCode)
		assert.Equal(t, decodeAPIError(t, draft), decodeAPIError(t, missing))
	})
}

func TestPublicPageETag(t *testing.T) {
	e := newTestEnv(t)
	id := e.createPublished(t, model.ProjectState{Title: "Cached", Theme: model.ThemeDark})

	first := e.get(t, "/p/"+id.String(), nil)
	require.Equal(t, http.StatusOK, first.StatusCode)
	etag := first.Header.Get(config.HETag)
	require.NotEmpty(t, etag)

	second := e.get(t, "/p/"+id.String(), http.Header{config.HIfNoneMatch: {etag}})
	assert.Equal(t, http.StatusNotModified, second.StatusCode)

	store := e.store(testdata.TestPrincipal, e.alice)
	require.NoError(t, store.SaveProjectState(context.Background(), id, model.ProjectState{Title: "Changed", Theme: model.ThemeDark}))

	third := e.get(t, "/p/"+id.String(), http.Header{config.HIfNoneMatch: {etag}})
	assert.Equal(t, http.StatusOK, third.StatusCode)
	assert.Contains(t, readAll(t, third), "Changed")
}

func TestPreview(t *testing.T) {
	e := newTestEnv(t)

	t.Run("form", func(t *testing.T) {
		form := url.Values{"title": {"Draft"}, "body": {"**hi** <script>x</script>"}, "theme": {"dark"}}
		resp, err := http.PostForm(e.srv.URL+"/partials/preview", form)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body := readAll(t, resp)
		assert.Contains(t, body, "Draft")
		assert.Contains(t, body, "<strong>hi</strong>")
		assert.NotContains(t, body, "<script>x")
	})

	t.Run("json", func(t *testing.T) {
		resp, err := http.Post(e.srv.URL+"/partials/preview", config.CTypeJSON,
			strings.NewReader(`{"title":"From JSON","theme":"nope"}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, readAll(t, resp), "From JSON")
	})

	t.Run("empty", func(t *testing.T) {
		resp, err := http.PostForm(e.srv.URL+"/partials/preview", url.Values{})
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Contains(t, readAll(t, resp), editor.EmptyPreviewTitle)
	})

	t.Run("malformed json", func(t *testing.T) {
		resp, err := http.Post(e.srv.URL+"/partials/preview", config.CTypeJSON, strings.NewReader(`{`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestStaticRoutes(t *testing.T) {
	e := newTestEnv(t)

	robots := e.get(t, "/robots.txt", nil)
	assert.Equal(t, http.StatusOK, robots.StatusCode)
	assert.Empty(t, robots.Header.Get("X-Frame-Options"))
	assert.Equal(t, robotsTxt, readAll(t, robots))

	css := e.get(t, "/syntax-theme/gruvbox", nil)
	assert.Equal(t, http.StatusOK, css.StatusCode)
	assert.Equal(t, config.CTypeCSS, css.Header.Get(config.HCType))
	assert.Equal(t, "deny", css.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, css.Header.Get(config.HRequestID))
	assert.Contains(t, readAll(t, css), ".chroma")

	tagged := e.get(t, "/robots.txt", http.Header{config.HRequestID: {"req-1"}})
	assert.Equal(t, "req-1", tagged.Header.Get(config.HRequestID))
}

func TestEvents(t *testing.T) {
	e := newTestEnv(t)
	id := e.createPublished(t, model.ProjectState{Title: "Live", Theme: model.ThemeLight})

	t.Run("requires a project", func(t *testing.T) {
		resp := e.get(t, "/sse", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("hides drafts", func(t *testing.T) {
		resp := e.get(t, "/sse?project=999", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("streams reloads", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.srv.URL+"/sse?project="+id.String(), nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, config.CTypeEventStream, resp.Header.Get(config.HCType))

		reader := bufio.NewReader(resp.Body)
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, "event: connected\n", line)

		require.Eventually(t, func() bool { return e.clients.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
		e.clients.Broadcast(id, sse.ReloadMessage)

		for {
			line, err = reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "data: ") && line != "data: SSE connection established\n" {
				break
			}
		}
		assert.Equal(t, "data: "+sse.ReloadMessage+"\n", line)
	})
}
