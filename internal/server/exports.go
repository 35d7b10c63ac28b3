package server

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"defectlog/internal/document"
	"defectlog/internal/stats"
	"defectlog/pkg/types"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// exportRequest selects the defects for a document either by explicit ids or
// by filter. Ids win when both are given.
type exportRequest struct {
	Project       string  `form:"project" json:"project"`
	ServiceType   string  `form:"serviceType" json:"serviceType"`
	Search        string  `form:"q" json:"q"`
	IDs           []int64 `form:"ids" json:"ids"`
	IncludePhotos bool    `form:"includePhotos" json:"includePhotos"`
}

func (e exportRequest) filter() types.Filter {
	return types.Filter{Project: e.Project, ServiceType: e.ServiceType, Search: e.Search}
}

type exportResponse struct {
	*document.ExportResult
	DownloadURL string `json:"downloadUrl"`
}

func (s *Service) decodeExportRequest(r *http.Request) (exportRequest, error) {
	var req exportRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, types.NewValidationError("body", "malformed JSON body")
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return req, types.NewValidationError("body", "malformed form body")
	}
	if err := decoder.Decode(&req, r.Form); err != nil {
		return req, types.NewValidationError("body", "malformed form body")
	}
	return req, nil
}

// statistics counts the whole project through the store unless the request
// narrows the set further, in which case the selection itself is counted.
func (s *Service) statistics(ctx context.Context, req exportRequest) *types.Statistics {
	f := req.filter()
	if len(req.IDs) == 0 && !f.HasServiceType() && strings.TrimSpace(f.Search) == "" {
		return s.stats.ForProject(ctx, req.Project)
	}
	return stats.FromDefects(f.ProjectLabel(), s.selectDefects(ctx, req))
}

func (s *Service) selectDefects(ctx context.Context, req exportRequest) []*types.Defect {
	if len(req.IDs) > 0 {
		return s.query.Selection(ctx, req.IDs)
	}
	return s.query.Filtered(ctx, req.filter())
}

func (s *Service) handleExportDefectLog(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeExportRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	doc, err := s.assembler.DefectLog(r.Context(), document.DefectLogInput{
		Defects: s.selectDefects(r.Context(), req),
		Filter:  req.filter(),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.export(w, r, doc)
}

func (s *Service) handleExportStatistics(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeExportRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	doc, err := s.assembler.Statistics(r.Context(), document.StatisticsInput{
		Statistics: s.statistics(r.Context(), req),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.export(w, r, doc)
}

func (s *Service) handleExportSiteMemo(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeExportRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	doc, err := s.assembler.SiteMemo(r.Context(), document.SiteMemoInput{
		Defects:       s.selectDefects(r.Context(), req),
		Project:       req.Project,
		IncludePhotos: req.IncludePhotos,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.export(w, r, doc)
}

func (s *Service) export(w http.ResponseWriter, r *http.Request, doc *document.Document) {
	result, err := s.exporter.Export(r.Context(), doc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	token, err := s.documentToken(result.FileName)
	if err != nil {
		s.internalServerError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, exportResponse{
		ExportResult: result,
		DownloadURL:  "/api/documents/" + token,
	})
}

func (s *Service) handleExportWorkbook(w http.ResponseWriter, r *http.Request) {
	filter, err := s.filterFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	data, err := document.WriteDefectLogWorkbook(s.catalog, s.query.Filtered(r.Context(), filter))
	if err != nil {
		s.internalServerError(w, r, err)
		return
	}

	fileName := document.WorkbookFileName(filter.ScopeLabel(), s.now())
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.WithError(err).Warn("failed to write workbook response")
	}
}
