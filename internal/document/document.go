// Package document assembles the HTML of the three printable reports (defect
// log, statistics, site memo) and exports them to PDF through a Renderer.
package document

import (
	"bytes"
	"context"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"defectlog/internal/catalog"
	"defectlog/pkg/types"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

//go:embed templates
var templateFS embed.FS

type Kind string

const (
	KindDefectLog  Kind = "DefectLog"
	KindStatistics Kind = "Statistics"
	KindSiteMemo   Kind = "SiteMemo"
)

const (
	reportTitle = "Building Services Inspection Report"
	dateLayout  = "02/01/2006"
	timeLayout  = "15:04"

	// photoReadLimit bounds concurrent photo reads while inlining.
	photoReadLimit = 4
)

var inlineImageRe = regexp.MustCompile(`(?is)<img\b[^>]*\bsrc\s*=\s*["']data:[^"']*["'][^>]*>`)

// Document is an assembled report ready to be rendered.
type Document struct {
	Kind Kind
	// Scope names the document in its file name: the project label for
	// logs and statistics, the memo number for site memos.
	Scope string
	HTML  string

	MemoNumber  string
	Attachments []string
}

// HasImages reports whether the HTML embeds inline photos.
func (d *Document) HasImages() bool {
	return inlineImageRe.MatchString(d.HTML)
}

// MemoIssuer hands out the next site memo number.
type MemoIssuer interface {
	Next(ctx context.Context) (string, error)
}

type Assembler struct {
	logger  *logrus.Logger
	catalog *catalog.Catalog
	memos   MemoIssuer

	// memoTemplatePath optionally points at an HTML site memo template
	// converted from the office's word processor document.
	memoTemplatePath string

	templates *template.Template
	now       func() time.Time
	loc       *time.Location
}

func NewAssembler(logger *logrus.Logger, cat *catalog.Catalog, memos MemoIssuer, memoTemplatePath string) (*Assembler, error) {
	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}

	return &Assembler{
		logger:           logger,
		catalog:          cat,
		memos:            memos,
		memoTemplatePath: memoTemplatePath,
		templates:        templates,
		now:              time.Now,
		loc:              time.Local,
	}, nil
}

func loadTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"inc": func(i int) int {
			return i + 1
		},
	}

	t := template.New("").Funcs(funcMap)
	err := fs.WalkDir(templateFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		data, err := fs.ReadFile(templateFS, path)
		if err != nil {
			return fmt.Errorf("read template %s: %w", path, err)
		}

		if _, err := t.Parse(string(data)); err != nil {
			return fmt.Errorf("parse template %s: %w", path, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return t, nil
}

func (a *Assembler) execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := a.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("%w: execute %s: %v", types.ErrAssembly, name, err)
	}
	return buf.String(), nil
}

func (a *Assembler) generatedAt() string {
	now := a.now().In(a.loc)
	return fmt.Sprintf("%s at %s", now.Format(dateLayout), now.Format(timeLayout))
}

func (a *Assembler) localTime(ts types.Timestamp) time.Time {
	return ts.Time.In(a.loc)
}

type summaryRow struct {
	Code  types.ServiceType
	Name  string
	Count int
}

// inlinePhotos reads every distinct photo of defects and returns them as
// data URIs keyed by path. Photos that cannot be read are left out.
func (a *Assembler) inlinePhotos(ctx context.Context, defects []*types.Defect) (map[string]template.URL, error) {
	paths := make([]string, 0, len(defects))
	seen := make(map[string]bool, len(defects))
	for _, d := range defects {
		if d.PhotoPath == "" || seen[d.PhotoPath] {
			continue
		}
		seen[d.PhotoPath] = true
		paths = append(paths, d.PhotoPath)
	}

	var (
		mu     sync.Mutex
		photos = make(map[string]template.URL, len(paths))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(photoReadLimit)

	for _, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			data, err := os.ReadFile(path)
			if err != nil {
				a.logger.WithError(err).WithField("photoPath", path).Warn("failed to read photo, rendering placeholder")
				return nil
			}

			uri := template.URL("data:" + photoMIMEType(path) + ";base64," + base64.StdEncoding.EncodeToString(data))

			mu.Lock()
			photos[path] = uri
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return photos, nil
}

func photoMIMEType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	default:
		return "image/jpeg"
	}
}
