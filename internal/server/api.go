package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/microsites/internal/auth"
	"github.com/debemdeboas/microsites/internal/config"
	"github.com/debemdeboas/microsites/internal/model"
	"github.com/debemdeboas/microsites/internal/remote"
)

func (s *Server) backend(r *http.Request) remote.Backend {
	return s.service.As(auth.Principal(r))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeData[T any](w http.ResponseWriter, status int, data T) {
	writeJSON(w, status, remote.Envelope[T]{Data: data})
}

func writeOK(w http.ResponseWriter) {
	writeData(w, http.StatusOK, remote.Ack{OK: true})
}

// writeError maps err to its status and error envelope. Public reads never
// reveal whether a project exists.
func writeError(w http.ResponseWriter, r *http.Request, err error, public bool) {
	status, body := remote.ErrorFor(err, public)
	l := zerolog.Ctx(r.Context())
	if status >= http.StatusInternalServerError {
		l.Error().Err(err).Msg("Request failed")
	} else {
		l.Debug().Err(err).Int("status", status).Msg("Request rejected")
	}
	writeJSON(w, status, remote.APIError{Error: body})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		return &model.ValidationError{Field: "body", Err: err}
	}
	return nil
}

func pathProject(r *http.Request) (model.ProjectID, error) {
	return model.ParseProjectID(r.PathValue("id"))
}

func pathUser(r *http.Request) model.UserID {
	return model.UserID(r.PathValue("user"))
}

// --- Projects ---

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var req remote.ProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, false)
		return
	}
	id, err := s.backend(r).CreateProject(r.Context(), req.Name, req.Description)
	if err != nil {
		writeError(w, r, err, false)
		return
	}
	writeData(w, http.StatusCreated, remote.CreatedProject{ID: id})
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathProject(r)
	if err != nil {
		writeError(w, r, err, false)
		return
	}
	p, err := s.backend(r).GetProject(r.Context(), id)
	if err != nil {
		writeError(w, r, err, false)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (s *Server) updateProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathProject(r)
	if err != nil {
		writeError(w, r, err, false)
		return
	}
	var req remote.ProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, false)
		return
	}
	if err := s.backend(r).UpdateProject(r.Context(), id, req.Name, req.Description); err != nil {
		writeError(w, r, err, false)
		return
	}
	writeOK(w)
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathProject(r)
	if err != nil {
		writeError(w, r, err, false)
		return
	}
	if err := s.backend(r).DeleteProject(r.Context(), id); err != nil {
		writeError(w, r, err, false)
		return
	}
	writeOK(w)
}

func (s *Server) saveProjectState(w http.ResponseWriter, r *http.Request) {
	id, err := pathProject(r)
	if err != nil {
		writeError(w, r, err, false)
		return
	}
	var state model.ProjectState
	if err := decodeJSON(r, &state); err != nil {
		writeError(w, r, err, false)
		return
	}
	if err := s.backend(r).SaveProjectState(r.Context(), id, state); err != nil {
		writeError(w, r, err, false)
		return
	}
	writeOK(w)
}

func (s *Server) publishProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathProject(r)
	if err != nil {
		writeError(w, r, err, false)
		return
	}
	if err := s.backend(r).PublishProject(r.Context(), id); err != nil {
		writeError(w, r, err, false)
		return
	}
	writeOK(w)
}

func (s *Server) unpublishProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathProject(r)
	if err != nil {
		writeError(w, r, err, false)
		return
	}
	if err := s.backend(r).UnpublishProject(r.Context(), id); err != nil {
		writeError(w, r, err, false)
		return
	}
	writeOK(w)
}

// --- Users ---

func (s *Server) getUserProjects(w http.ResponseWriter, r *http.Request) {
	list, err := s.backend(r).GetUserProjects(r.Context(), pathUser(r))
	if err != nil {
		writeError(w, r, err, false)
		return
	}
	writeData(w, http.StatusOK, list)
}

func (s *Server) getUserProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.backend(r).GetUserProfile(r.Context(), pathUser(r))
	if err != nil {
		writeError(w, r, err, false)
		return
	}
	writeData(w, http.StatusOK, profile)
}

func (s *Server) assignUserRole(w http.ResponseWriter, r *http.Request) {
	var req remote.RoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, false)
		return
	}
	if err := s.backend(r).AssignCallerUserRole(r.Context(), pathUser(r), req.Role); err != nil {
		writeError(w, r, err, false)
		return
	}
	writeOK(w)
}

// --- Public ---

func (s *Server) listPublicProjects(w http.ResponseWriter, r *http.Request) {
	list, err := s.backend(r).ListPublicProjects(r.Context())
	if err != nil {
		writeError(w, r, err, true)
		return
	}
	writeData(w, http.StatusOK, list)
}

func (s *Server) getPublicProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathProject(r)
	if err != nil {
		writeError(w, r, model.ErrNotFoundOrUnpublished, true)
		return
	}
	p, err := s.backend(r).GetProjectPublic(r.Context(), id)
	if err != nil {
		writeError(w, r, err, true)
		return
	}
	writeData(w, http.StatusOK, p)
}

// --- Caller ---

func (s *Server) getCallerProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.backend(r).GetCallerUserProfile(r.Context())
	if err != nil {
		writeError(w, r, err, false)
		return
	}
	writeData(w, http.StatusOK, profile)
}

func (s *Server) saveCallerProfile(w http.ResponseWriter, r *http.Request) {
	var profile model.Profile
	if err := decodeJSON(r, &profile); err != nil {
		writeError(w, r, err, false)
		return
	}
	if err := s.backend(r).SaveCallerUserProfile(r.Context(), profile); err != nil {
		writeError(w, r, err, false)
		return
	}
	writeOK(w)
}

func (s *Server) getCallerRole(w http.ResponseWriter, r *http.Request) {
	role, err := s.backend(r).GetCallerUserRole(r.Context())
	if err != nil {
		writeError(w, r, err, false)
		return
	}
	writeData(w, http.StatusOK, remote.RoleResponse{Role: role})
}

func (s *Server) isCallerAdmin(w http.ResponseWriter, r *http.Request) {
	admin, err := s.backend(r).IsCallerAdmin(r.Context())
	if err != nil {
		writeError(w, r, err, false)
		return
	}
	writeData(w, http.StatusOK, remote.AdminResponse{Admin: admin})
}
