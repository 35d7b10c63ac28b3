package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"defectlog/pkg/types"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("failed to encode response")
	}
}

// writeError maps err onto a status code. Anything unrecognised is logged and
// reported as a bare 500.
func (s *Service) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *types.ValidationError
	switch {
	case errors.As(err, &verr):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Message, Field: verr.Field})
	case errors.Is(err, types.ErrValidation):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, types.ErrDefectNotFound):
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, types.ErrConstraint):
		s.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, types.ErrShare):
		s.writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	default:
		s.internalServerError(w, r, err)
	}
}

func (s *Service) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.WithError(err).WithField("request_id", requestIDFromContext(r.Context())).Error("request failed")
	s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
}

func (s *Service) badRequest(w http.ResponseWriter, message string) {
	s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: message})
}
