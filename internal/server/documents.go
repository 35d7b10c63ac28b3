package server

import (
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const (
	documentTokenName = "document"
	documentTokenTTL  = 24 * time.Hour
)

var errDocumentNotFound = errors.New("document not found")

func (s *Service) documentToken(fileName string) (string, error) {
	token, err := s.cookie.Encode(documentTokenName, fileName)
	if err != nil {
		return "", fmt.Errorf("failed to sign document token: %w", err)
	}
	return token, nil
}

// documentPath resolves a download token to a file inside the documents
// directory.
func (s *Service) documentPath(token string) (string, error) {
	var fileName string
	if err := s.cookie.Decode(documentTokenName, token, &fileName); err != nil {
		return "", errDocumentNotFound
	}

	fileName = filepath.Base(fileName)
	if fileName == "." || fileName == string(filepath.Separator) {
		return "", errDocumentNotFound
	}

	path := filepath.Join(s.exporter.Dir(), fileName)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", errDocumentNotFound
		}
		return "", err
	}
	return path, nil
}

func (s *Service) handleDownloadDocument(w http.ResponseWriter, r *http.Request) {
	path, err := s.documentPath(r.PathValue("token"))
	if err != nil {
		s.documentError(w, r, err)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		s.internalServerError(w, r, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.internalServerError(w, r, err)
		return
	}

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": info.Name()}))
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (s *Service) handleShareDocument(w http.ResponseWriter, r *http.Request) {
	path, err := s.documentPath(r.PathValue("token"))
	if err != nil {
		s.documentError(w, r, err)
		return
	}

	link, err := s.sharer.Share(r.Context(), path)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"url": link})
}

func (s *Service) documentError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errDocumentNotFound) {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	s.internalServerError(w, r, err)
}
