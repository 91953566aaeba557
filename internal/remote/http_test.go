package remote

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debemdeboas/microsites/internal/model"
)

func newTestHTTPBackend(handler http.HandlerFunc, opts ...HTTPOption) (*HTTPBackend, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewHTTPBackend(srv.URL, opts...), srv
}

func jsonResponse(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func errorResponse(w http.ResponseWriter, status int, code, message string) {
	jsonResponse(w, status, map[string]any{"error": map[string]any{"code": code, "message": message}})
}

func TestHTTPBackend_CreateProject(t *testing.T) {
	b, srv := newTestHTTPBackend(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/projects", r.URL.Path)

		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "My Site", body["name"])
		assert.Equal(t, "about", body["description"])

		jsonResponse(w, http.StatusCreated, map[string]any{"data": map[string]any{"id": 7}})
	})
	defer srv.Close()

	desc := "about"
	id, err := b.CreateProject(context.Background(), "My Site", &desc)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectID(7), id)
}

func TestHTTPBackend_GetProject(t *testing.T) {
	b, srv := newTestHTTPBackend(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/projects/3", r.URL.Path)

		jsonResponse(w, http.StatusOK, map[string]any{
			"data": map[string]any{
				"id":             3,
				"owner":          "alice",
				"name":           "Site",
				"publish_status": "published",
				"url_slug":       "3",
				"state": map[string]any{
					"title":   "T",
					"tagline": "Tg",
					"body":    "**B**",
					"theme":   "dark",
				},
				"created_at": "2026-01-01T00:00:00Z",
				"updated_at": "2026-01-02T00:00:00Z",
			},
		})
	})
	defer srv.Close()

	p, err := b.GetProject(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, model.ProjectID(3), p.ID)
	assert.Equal(t, model.UserID("alice"), p.Owner)
	assert.True(t, p.Published())
	require.NotNil(t, p.URLSlug)
	assert.Equal(t, "3", *p.URLSlug)
	assert.Nil(t, p.Description)
	assert.Equal(t, model.ThemeDark, p.State.Theme)
	assert.Equal(t, "**B**", p.State.Body)
}

func TestHTTPBackend_ListProjects(t *testing.T) {
	b, srv := newTestHTTPBackend(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/users/alice/projects", "/api/public/projects":
			jsonResponse(w, http.StatusOK, map[string]any{
				"data": []map[string]any{
					{"id": 1, "owner": "alice", "name": "One", "publish_status": "draft"},
					{"id": 2, "owner": "alice", "name": "Two", "publish_status": "published"},
				},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	defer srv.Close()

	projects, err := b.GetUserProjects(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, projects, 2)
	assert.Equal(t, "One", projects[0].Name)

	public, err := b.ListPublicProjects(context.Background())
	require.NoError(t, err)
	assert.Len(t, public, 2)
}

func TestHTTPBackend_Mutations(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	b, srv := newTestHTTPBackend(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Method+" "+r.URL.Path)
		mu.Unlock()
		if r.URL.Path == "/api/projects/5/state" {
			var st model.ProjectState
			require.NoError(t, json.NewDecoder(r.Body).Decode(&st))
			assert.Equal(t, "T", st.Title)
			assert.Equal(t, model.ThemeDark, st.Theme)
		}
		if r.URL.Path == "/api/users/bob/role" {
			var req RoleRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, model.RoleAdmin, req.Role)
		}
		jsonResponse(w, http.StatusOK, map[string]any{"data": map[string]any{"ok": true}})
	})
	defer srv.Close()

	ctx := context.Background()
	require.NoError(t, b.UpdateProject(ctx, 5, "n", nil))
	require.NoError(t, b.SaveProjectState(ctx, 5, model.ProjectState{Title: "T", Theme: model.ThemeDark}))
	require.NoError(t, b.PublishProject(ctx, 5))
	require.NoError(t, b.UnpublishProject(ctx, 5))
	require.NoError(t, b.DeleteProject(ctx, 5))
	require.NoError(t, b.SaveCallerUserProfile(ctx, model.Profile{Name: "Ada"}))
	require.NoError(t, b.AssignCallerUserRole(ctx, "bob", model.RoleAdmin))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"PUT /api/projects/5",
		"PUT /api/projects/5/state",
		"POST /api/projects/5/publish",
		"POST /api/projects/5/unpublish",
		"DELETE /api/projects/5",
		"PUT /api/me/profile",
		"PUT /api/users/bob/role",
	}, seen)
}

func TestHTTPBackend_CallerQueries(t *testing.T) {
	b, srv := newTestHTTPBackend(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/me/profile":
			jsonResponse(w, http.StatusOK, map[string]any{"data": nil})
		case "/api/users/bob/profile":
			jsonResponse(w, http.StatusOK, map[string]any{"data": map[string]any{"name": "Bob"}})
		case "/api/me/role":
			jsonResponse(w, http.StatusOK, map[string]any{"data": map[string]any{"role": "admin"}})
		case "/api/me/admin":
			jsonResponse(w, http.StatusOK, map[string]any{"data": map[string]any{"admin": true}})
		}
	})
	defer srv.Close()

	ctx := context.Background()
	prof, err := b.GetCallerUserProfile(ctx)
	require.NoError(t, err)
	assert.Nil(t, prof)

	bob, err := b.GetUserProfile(ctx, "bob")
	require.NoError(t, err)
	require.NotNil(t, bob)
	assert.Equal(t, "Bob", bob.Name)

	role, err := b.GetCallerUserRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, role)

	admin, err := b.IsCallerAdmin(ctx)
	require.NoError(t, err)
	assert.True(t, admin)
}

func TestHTTPBackend_StatusMapping(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		code   string
		public bool
		check  func(t *testing.T, err error)
	}{
		{"bad request", 400, CodeValidation, false, func(t *testing.T, err error) {
			assert.True(t, model.IsValidation(err))
		}},
		{"unauthorized", 401, CodeNotAuthorized, false, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, model.ErrNotAuthorized)
		}},
		{"forbidden", 403, CodeNotAuthorized, false, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, model.ErrNotAuthorized)
		}},
		{"not found", 404, CodeNotFound, false, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, model.ErrNotFound)
		}},
		{"public not found", 404, CodeNotFound, true, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, model.ErrNotFoundOrUnpublished)
		}},
		{"server error", 500, CodeInternal, false, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, model.ErrTransport)
			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, 500, se.Status)
		}},
		{"bad gateway", 502, "", false, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, model.ErrTransport)
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, srv := newTestHTTPBackend(func(w http.ResponseWriter, r *http.Request) {
				errorResponse(w, tc.status, tc.code, "nope")
			})
			defer srv.Close()

			var err error
			if tc.public {
				_, err = b.GetProjectPublic(context.Background(), 1)
			} else {
				_, err = b.GetProject(context.Background(), 1)
			}
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestHTTPBackend_TransportFailures(t *testing.T) {
	t.Run("server unreachable", func(t *testing.T) {
		b, srv := newTestHTTPBackend(func(w http.ResponseWriter, r *http.Request) {})
		srv.Close()

		_, err := b.GetProject(context.Background(), 1)
		assert.ErrorIs(t, err, model.ErrTransport)
	})

	t.Run("malformed body", func(t *testing.T) {
		b, srv := newTestHTTPBackend(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("{not json"))
		})
		defer srv.Close()

		_, err := b.GetProject(context.Background(), 1)
		assert.ErrorIs(t, err, model.ErrTransport)
	})

	t.Run("client timeout", func(t *testing.T) {
		b, srv := newTestHTTPBackend(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}, WithTimeout(20*time.Millisecond))
		defer srv.Close()

		_, err := b.GetProject(context.Background(), 1)
		assert.ErrorIs(t, err, model.ErrTransport)
	})
}

func TestHTTPBackend_SignsRequests(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	var challenge atomic.Value
	challenge.Store([]byte("challenge-one"))
	var challenges atomic.Int32

	b, srv := newTestHTTPBackend(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/challenge" {
			challenges.Add(1)
			assert.Equal(t, "alice", r.URL.Query().Get("principal"))
			jsonResponse(w, http.StatusOK, map[string]string{
				"challenge": base64.StdEncoding.EncodeToString(challenge.Load().([]byte)),
			})
			return
		}

		assert.Equal(t, "alice", r.Header.Get("X-Principal"))
		sig, err := base64.StdEncoding.DecodeString(r.Header.Get("Authorization"))
		require.NoError(t, err)
		if !ed25519.Verify(pub, challenge.Load().([]byte), sig) {
			errorResponse(w, http.StatusUnauthorized, CodeNotAuthorized, "bad signature")
			return
		}
		jsonResponse(w, http.StatusOK, map[string]any{"data": map[string]any{"role": "user"}})
	}, WithIdentity("alice", priv))
	defer srv.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		role, err := b.GetCallerUserRole(ctx)
		require.NoError(t, err)
		assert.Equal(t, model.RoleUser, role)
	}
	assert.Equal(t, int32(1), challenges.Load(), "signature should be reused")

	// Rotating the challenge fails the next call once, then a new one is signed.
	challenge.Store([]byte("challenge-two"))
	_, err = b.GetCallerUserRole(ctx)
	assert.ErrorIs(t, err, model.ErrNotAuthorized)

	_, err = b.GetCallerUserRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), challenges.Load())
}

func TestHTTPBackend_AnonymousSendsNoCredentials(t *testing.T) {
	b, srv := newTestHTTPBackend(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("X-Principal"))
		jsonResponse(w, http.StatusOK, map[string]any{"data": []any{}})
	})
	defer srv.Close()

	ps, err := b.ListPublicProjects(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ps)
}

func TestErrorForRoundTrip(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		public bool
		want   error
	}{
		{"not authorized", model.ErrNotAuthorized, false, model.ErrNotAuthorized},
		{"not found", model.ErrNotFound, false, model.ErrNotFound},
		{"public not found", model.ErrNotFound, true, model.ErrNotFoundOrUnpublished},
		{"public not authorized", model.ErrNotAuthorized, true, model.ErrNotFoundOrUnpublished},
		{"unpublished", model.ErrNotFoundOrUnpublished, false, model.ErrNotFoundOrUnpublished},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := ErrorFor(tc.err, tc.public)
			got := errorFromResponse("op", status, body, tc.public)
			assert.ErrorIs(t, got, tc.want)
		})
	}

	status, body := ErrorFor(&model.ValidationError{Field: "name", Err: model.ErrEmptyName}, false)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "name", body.Field)
}
