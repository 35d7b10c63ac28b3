package server

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	"defectlog/pkg/types"
)

type currentProject struct {
	Project string `json:"project" form:"project"`
}

func (s *Service) handleGetCurrentProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.prefs.CurrentProject(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, currentProject{Project: project})
}

func (s *Service) handlePutCurrentProject(w http.ResponseWriter, r *http.Request) {
	var body currentProject

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.badRequest(w, "malformed JSON body")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			s.badRequest(w, "malformed form body")
			return
		}
		if err := decoder.Decode(&body, r.PostForm); err != nil {
			s.badRequest(w, "malformed form body")
			return
		}
	}

	body.Project = strings.TrimSpace(body.Project)
	if body.Project == "" {
		s.writeError(w, r, types.NewValidationError("project", "project title is required"))
		return
	}

	if err := s.prefs.SetCurrentProject(r.Context(), body.Project); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, body)
}

func (s *Service) handleDeleteCurrentProject(w http.ResponseWriter, r *http.Request) {
	if err := s.prefs.ClearCurrentProject(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
