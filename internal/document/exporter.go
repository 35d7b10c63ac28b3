package document

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"defectlog/pkg/types"

	"github.com/sirupsen/logrus"
)

const (
	DocumentsDirName = "documents"
	attachmentsExt   = ".attachments.json"

	photoUnavailable = `<span class="photo-unavailable">Photo unavailable</span>`
)

var unsafeScopeRe = regexp.MustCompile(`[^A-Za-z0-9]`)

// Renderer turns an HTML document into PDF bytes.
type Renderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

type Exporter struct {
	logger   *logrus.Logger
	renderer Renderer
	dir      string
	now      func() time.Time
}

func NewExporter(logger *logrus.Logger, renderer Renderer, dataDir string) *Exporter {
	return &Exporter{
		logger:   logger,
		renderer: renderer,
		dir:      filepath.Join(dataDir, DocumentsDirName),
		now:      time.Now,
	}
}

func (e *Exporter) Dir() string {
	return e.dir
}

type ExportResult struct {
	Kind           Kind     `json:"kind"`
	Path           string   `json:"path"`
	FileName       string   `json:"fileName"`
	MemoNumber     string   `json:"memoNumber,omitempty"`
	Attachments    []string `json:"attachments,omitempty"`
	ImagesStripped bool     `json:"imagesStripped"`
}

type attachmentManifest struct {
	MemoNumber string   `json:"memoNumber"`
	Document   string   `json:"document"`
	Photos     []string `json:"photos"`
}

// Export renders doc and writes the PDF into the documents directory. A
// render failure on a document with inline photos is retried once with the
// photos replaced by a text placeholder.
func (e *Exporter) Export(ctx context.Context, doc *Document) (*ExportResult, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: no document to export", types.ErrAssembly)
	}

	result := &ExportResult{Kind: doc.Kind, MemoNumber: doc.MemoNumber}

	pdf, err := e.renderer.Render(ctx, doc.HTML)
	if err != nil && doc.HasImages() {
		e.logger.WithError(err).WithField("kind", doc.Kind).Warn("render failed, retrying without inline photos")

		result.ImagesStripped = true
		pdf, err = e.renderer.Render(ctx, StripImages(doc.HTML))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrRender, doc.Kind, err)
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create documents directory: %v", types.ErrAssembly, err)
	}

	result.FileName = FileName(doc.Kind, doc.Scope, e.now())
	result.Path = filepath.Join(e.dir, result.FileName)

	if err := os.WriteFile(result.Path, pdf, 0o644); err != nil {
		return nil, fmt.Errorf("%w: write %s: %v", types.ErrAssembly, result.FileName, err)
	}

	if doc.Kind == KindSiteMemo && len(doc.Attachments) > 0 {
		if err := writeManifest(result.Path, doc); err != nil {
			os.Remove(result.Path)
			return nil, err
		}
		result.Attachments = doc.Attachments
	}

	e.logger.WithFields(logrus.Fields{
		"kind":           doc.Kind,
		"path":           result.Path,
		"bytes":          len(pdf),
		"imagesStripped": result.ImagesStripped,
	}).Info("document exported")

	return result, nil
}

func writeManifest(pdfPath string, doc *Document) error {
	data, err := json.MarshalIndent(attachmentManifest{
		MemoNumber: doc.MemoNumber,
		Document:   filepath.Base(pdfPath),
		Photos:     doc.Attachments,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode attachments: %v", types.ErrAssembly, err)
	}

	if err := os.WriteFile(pdfPath+attachmentsExt, data, 0o644); err != nil {
		return fmt.Errorf("%w: write attachments: %v", types.ErrAssembly, err)
	}
	return nil
}

// StripImages replaces every inline data URI image with a text placeholder.
func StripImages(html string) string {
	return inlineImageRe.ReplaceAllLiteralString(html, photoUnavailable)
}

// FileName is <Kind>_<scope>_<unix millis>.pdf with every character of scope
// outside [A-Za-z0-9] replaced by an underscore.
func FileName(kind Kind, scope string, at time.Time) string {
	return fileName(kind, scope, at, ".pdf")
}

// WorkbookFileName is FileName for the spreadsheet form of the defect log.
func WorkbookFileName(scope string, at time.Time) string {
	return fileName(KindDefectLog, scope, at, ".xlsx")
}

func fileName(kind Kind, scope string, at time.Time, ext string) string {
	return fmt.Sprintf("%s_%s_%d%s", kind, unsafeScopeRe.ReplaceAllString(scope, "_"), at.UnixMilli(), ext)
}
