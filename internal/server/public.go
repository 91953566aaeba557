package server

import (
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/microsites/internal/config"
	"github.com/debemdeboas/microsites/internal/model"
	"github.com/debemdeboas/microsites/internal/sse"
	"github.com/debemdeboas/microsites/internal/theme"
	"github.com/debemdeboas/microsites/internal/util"
)

const robotsTxt = "User-agent: *\nDisallow:"

func (s *Server) serveRobots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(config.HCType, config.CTypePlain)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(robotsTxt))
}

// writeCached answers a conditional GET with 304 when body is unchanged.
func writeCached(w http.ResponseWriter, r *http.Request, contentType string, body []byte) {
	etag := `"` + util.ContentHash(body) + `"`
	w.Header().Set(config.HETag, etag)
	if r.Header.Get(config.HIfNoneMatch) == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set(config.HCType, contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (s *Server) serveSyntaxTheme(w http.ResponseWriter, r *http.Request) {
	css := []byte(theme.GenerateSyntaxCSS(r.PathValue("theme")))
	w.Header().Set(config.HCacheControl, "public, max-age=3600")
	writeCached(w, r, config.CTypeCSS, css)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(config.HCType, config.CTypeHTML)
	w.WriteHeader(http.StatusNotFound)
	if err := s.renderer.NotFound(w); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to render not found page")
	}
}

// servePublicPage renders a published project. Missing and unpublished
// projects get the same not found page.
func (s *Server) servePublicPage(w http.ResponseWriter, r *http.Request) {
	l := zerolog.Ctx(r.Context())

	id, err := pathProject(r)
	if err != nil {
		s.notFound(w, r)
		return
	}

	p, err := s.backend(r).GetProjectPublic(r.Context(), id)
	if errors.Is(err, model.ErrNotFoundOrUnpublished) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		l.Error().Err(err).Stringer("project", id).Msg("Failed to read public project")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
		return
	}

	page, err := s.renderer.PageBytes(p, true)
	if err != nil {
		l.Error().Err(err).Stringer("project", id).Msg("Failed to render public page")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
		return
	}
	writeCached(w, r, config.CTypeHTML, page)
}

// previewState reads a state from a JSON body or from form fields. An unknown
// theme falls back to the default one.
func previewState(w http.ResponseWriter, r *http.Request) (model.ProjectState, error) {
	var state model.ProjectState
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get(config.HCType))
	if mediaType == config.CTypeJSON {
		if err := decodeJSON(r, &state); err != nil {
			return state, err
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			return state, &model.ValidationError{Field: "body", Err: err}
		}
		state.Title = r.PostFormValue("title")
		state.Tagline = r.PostFormValue("tagline")
		state.Body = r.PostFormValue("body")
		state.Theme = model.Theme(r.PostFormValue("theme"))
	}

	if t, err := model.ParseTheme(string(state.Theme)); err == nil {
		state.Theme = t
	} else {
		state.Theme = model.DefaultState().Theme
	}
	return state, nil
}

func (s *Server) servePreview(w http.ResponseWriter, r *http.Request) {
	state, err := previewState(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set(config.HCType, config.CTypeHTML)
	if err := s.renderer.Preview(w, state); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to render preview")
	}
}

// serveEvents streams a reload message to a public page whenever its
// project changes.
func (s *Server) serveEvents(w http.ResponseWriter, r *http.Request) {
	l := zerolog.Ctx(r.Context())

	id, err := model.ParseProjectID(r.URL.Query().Get("project"))
	if err != nil {
		http.Error(w, config.HTTPErrProjectRequired, http.StatusBadRequest)
		return
	}
	if _, err := s.backend(r).GetProjectPublic(r.Context(), id); err != nil {
		http.Error(w, model.ErrNotFoundOrUnpublished.Error(), http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, config.HTTPErrStreaming, http.StatusInternalServerError)
		return
	}

	w.Header().Set(config.HCType, config.CTypeEventStream)
	w.Header().Set(config.HCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Del("X-Content-Type-Options")

	fmt.Fprintf(w, "event: connected\ndata: SSE connection established\n\n")
	flusher.Flush()

	client := sse.NewClient(id)
	s.clients.Add(client)
	l.Debug().Stringer("project", id).Int("clients", s.clients.Len()).Msg("SSE client connected")

	defer func() {
		s.clients.Delete(client)
		l.Debug().Stringer("project", id).Msg("SSE client disconnected")
	}()

	done := r.Context().Done()
	for {
		select {
		case msg, ok := <-client.Msg:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		case <-done:
			return
		}
	}
}
