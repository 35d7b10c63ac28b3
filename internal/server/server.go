package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"defectlog/internal/capture"
	"defectlog/internal/catalog"
	"defectlog/internal/document"
	"defectlog/internal/query"
	"defectlog/internal/share"
	"defectlog/internal/stats"
	"defectlog/internal/store"
	"defectlog/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/go-playground/form/v4"
	"github.com/gorilla/securecookie"
	"github.com/sirupsen/logrus"
)

var decoder = form.NewDecoder()

// Dependencies are the services the HTTP API is wired to.
type Dependencies struct {
	Catalog     *catalog.Catalog
	Defects     *store.DefectRepository
	Preferences *store.PreferenceRepository
	Query       *query.Engine
	Stats       *stats.Service
	Capture     *capture.Service
	Assembler   *document.Assembler
	Exporter    *document.Exporter
	Sharer      share.Sharer
}

type Service struct {
	logger *logrus.Logger
	config *types.Config

	catalog   *catalog.Catalog
	defects   *store.DefectRepository
	prefs     *store.PreferenceRepository
	query     *query.Engine
	stats     *stats.Service
	capture   *capture.Service
	assembler *document.Assembler
	exporter  *document.Exporter
	sharer    share.Sharer

	cookie *securecookie.SecureCookie
	now    func() time.Time

	server *http.Server
}

func New(config *types.Config, logger *logrus.Logger, deps Dependencies) (*Service, error) {
	mux := flow.New()

	cookie, err := downloadCodec(config, logger)
	if err != nil {
		return nil, err
	}

	sharer := deps.Sharer
	if sharer == nil {
		sharer = share.Unavailable{}
	}

	s := &Service{
		logger: logger,
		config: config,

		catalog:   deps.Catalog,
		defects:   deps.Defects,
		prefs:     deps.Preferences,
		query:     deps.Query,
		stats:     deps.Stats,
		capture:   deps.Capture,
		assembler: deps.Assembler,
		exporter:  deps.Exporter,
		sharer:    sharer,

		cookie: cookie,
		now:    time.Now,

		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	s.buildRouter(mux)
	// Unmatched paths never reach route middleware, so the slash redirect
	// wraps the whole mux.
	s.server.Handler = s.StripTrailingSlash(mux)

	return s, nil
}

// downloadCodec signs (and optionally encrypts) document download tokens.
// Without configured keys a random hash key is generated, so tokens do not
// survive a restart.
func downloadCodec(config *types.Config, logger *logrus.Logger) (*securecookie.SecureCookie, error) {
	var hashKey, blockKey []byte
	if config.DownloadHashKey != "" {
		key, err := base64.StdEncoding.DecodeString(config.DownloadHashKey)
		if err != nil {
			return nil, fmt.Errorf("decode download hash key: %w", err)
		}
		hashKey = key
	} else {
		logger.Warn("DOWNLOAD_HASH_KEY not set, document links will not survive a restart")
		hashKey = securecookie.GenerateRandomKey(32)
	}

	if config.DownloadBlockKey != "" {
		key, err := base64.StdEncoding.DecodeString(config.DownloadBlockKey)
		if err != nil {
			return nil, fmt.Errorf("decode download block key: %w", err)
		}
		blockKey = key
	}

	cookie := securecookie.New(hashKey, blockKey)
	cookie.MaxAge(int(documentTokenTTL.Seconds()))
	return cookie, nil
}

// Handler exposes the router, mostly for tests.
func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.RequestID)
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/health", s.handleHealth, http.MethodGet)

	r.HandleFunc("/api/catalog", s.handleCatalog, http.MethodGet)
	r.HandleFunc("/api/projects", s.handleProjects, http.MethodGet)

	r.HandleFunc("/api/defects", s.handleListDefects, http.MethodGet)
	r.HandleFunc("/api/defects", s.handleCreateDefect, http.MethodPost)
	r.HandleFunc("/api/defects/:id", s.handleGetDefect, http.MethodGet)
	r.HandleFunc("/api/defects/:id", s.handleDeleteDefect, http.MethodDelete)

	r.HandleFunc("/api/statistics", s.handleStatistics, http.MethodGet)

	r.HandleFunc("/api/preferences/current-project", s.handleGetCurrentProject, http.MethodGet)
	r.HandleFunc("/api/preferences/current-project", s.handlePutCurrentProject, http.MethodPut)
	r.HandleFunc("/api/preferences/current-project", s.handleDeleteCurrentProject, http.MethodDelete)

	r.HandleFunc("/api/exports/defect-log", s.handleExportDefectLog, http.MethodPost)
	r.HandleFunc("/api/exports/statistics", s.handleExportStatistics, http.MethodPost)
	r.HandleFunc("/api/exports/site-memo", s.handleExportSiteMemo, http.MethodPost)
	r.HandleFunc("/api/exports/defect-log.xlsx", s.handleExportWorkbook, http.MethodGet)

	r.HandleFunc("/api/documents/:token", s.handleDownloadDocument, http.MethodGet)
	r.HandleFunc("/api/documents/:token/share", s.handleShareDocument, http.MethodPost)
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
