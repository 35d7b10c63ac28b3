package server

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"defectlog/internal/catalog"
	"defectlog/pkg/types"
)

const maxUploadBytes = 32 << 20

type defectListResponse struct {
	Filter  types.Filter    `json:"filter"`
	Count   int             `json:"count"`
	Defects []*types.Defect `json:"defects"`
}

type statisticsResponse struct {
	*types.Statistics
	Totals     map[types.ServiceType]int `json:"totals"`
	GrandTotal int                       `json:"grandTotal"`
}

func (s *Service) handleCatalog(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.catalog)
}

func (s *Service) handleProjects(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.query.Projects(r.Context()))
}

// handleListDefects filters on project, serviceType and q. When the project
// parameter is absent the saved current project is used.
func (s *Service) handleListDefects(w http.ResponseWriter, r *http.Request) {
	filter, err := s.filterFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	defects := s.query.Filtered(r.Context(), filter)
	s.writeJSON(w, http.StatusOK, defectListResponse{
		Filter:  filter,
		Count:   len(defects),
		Defects: defects,
	})
}

func (s *Service) filterFromRequest(r *http.Request) (types.Filter, error) {
	var filter types.Filter
	values := r.URL.Query()
	if err := decoder.Decode(&filter, values); err != nil {
		return filter, types.NewValidationError("filter", "malformed filter parameters")
	}

	if !values.Has("project") {
		current, err := s.prefs.CurrentProject(r.Context())
		if err != nil {
			s.logger.WithError(err).Warn("failed to read current project, listing all projects")
		}
		// A saved project with no defects left would hide every other project.
		filter.Project = types.AllFilter
		if current != "" && slices.Contains(s.query.Projects(r.Context()), current) {
			filter.Project = current
		}
	}

	return filter, nil
}

func (s *Service) handleGetDefect(w http.ResponseWriter, r *http.Request) {
	id, err := defectIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	defect, err := s.defects.DefectByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, defect)
}

// handleCreateDefect accepts either a multipart form with the photo in the
// "photo" field, or a JSON body naming a photo already on the server.
func (s *Service) handleCreateDefect(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var (
		defect *types.Defect
		err    error
	)
	switch mediaType {
	case "multipart/form-data":
		defect, err = s.createFromUpload(w, r)
	case "application/json":
		var input types.NewDefect
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			s.badRequest(w, "malformed JSON body")
			return
		}
		defect, err = s.capture.Capture(r.Context(), input)
	default:
		s.writeJSON(w, http.StatusUnsupportedMediaType, errorResponse{Error: "expected multipart/form-data or application/json"})
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, defect)
}

func (s *Service) createFromUpload(w http.ResponseWriter, r *http.Request) (*types.Defect, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, types.NewValidationError("photo", "failed to read upload")
	}

	var input types.NewDefect
	if err := decoder.Decode(&input, r.MultipartForm.Value); err != nil {
		return nil, types.NewValidationError("form", "malformed form fields")
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, types.NewValidationError("photo", "a photo is required")
		}
		return nil, types.NewValidationError("photo", "failed to read upload")
	}
	defer file.Close()

	return s.capture.CaptureUpload(r.Context(), input, filepath.Ext(header.Filename), file)
}

func (s *Service) handleDeleteDefect(w http.ResponseWriter, r *http.Request) {
	id, err := defectIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.defects.DeleteDefect(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func defectIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("id")), 10, 64)
	if err != nil || id <= 0 {
		return 0, types.NewValidationError("id", "must be a positive integer")
	}
	return id, nil
}

func (s *Service) handleStatistics(w http.ResponseWriter, r *http.Request) {
	statistics := s.stats.ForProject(r.Context(), r.URL.Query().Get("project"))
	s.writeJSON(w, http.StatusOK, newStatisticsResponse(s.catalog, statistics))
}

func newStatisticsResponse(cat *catalog.Catalog, statistics *types.Statistics) statisticsResponse {
	totals := make(map[types.ServiceType]int, len(cat.Codes()))
	for _, code := range cat.Codes() {
		totals[code] = statistics.Total(code)
	}
	return statisticsResponse{
		Statistics: statistics,
		Totals:     totals,
		GrandTotal: statistics.GrandTotal(),
	}
}
