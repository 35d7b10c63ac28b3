package query

import (
	"context"
	"strings"

	"defectlog/pkg/types"

	"github.com/sirupsen/logrus"
)

// DefectReader is the read side of the defect store.
type DefectReader interface {
	AllDefects(ctx context.Context) ([]*types.Defect, error)
	DefectsByServiceType(ctx context.Context, serviceType types.ServiceType) ([]*types.Defect, error)
	DefectsByProject(ctx context.Context, projectTitle string) ([]*types.Defect, error)
	DefectsByProjectAndServiceType(ctx context.Context, projectTitle string, serviceType types.ServiceType) ([]*types.Defect, error)
	DefectsByIDs(ctx context.Context, ids []int64) ([]*types.Defect, error)
	DistinctProjects(ctx context.Context) ([]string, error)
}

// Engine answers browse queries. Store failures are logged and reported
// as empty results so a broken store never takes the caller down.
type Engine struct {
	logger *logrus.Logger
	reader DefectReader
}

func NewEngine(logger *logrus.Logger, reader DefectReader) *Engine {
	return &Engine{logger: logger, reader: reader}
}

// Filtered picks the store read matching the constrained axes of filter
// and narrows the result with filter.Search.
func (e *Engine) Filtered(ctx context.Context, filter types.Filter) []*types.Defect {
	var (
		defects []*types.Defect
		err     error
	)

	project := strings.TrimSpace(filter.Project)
	serviceType := types.ServiceType(strings.TrimSpace(filter.ServiceType))

	switch {
	case filter.HasProject() && filter.HasServiceType():
		defects, err = e.reader.DefectsByProjectAndServiceType(ctx, project, serviceType)
	case filter.HasProject():
		defects, err = e.reader.DefectsByProject(ctx, project)
	case filter.HasServiceType():
		defects, err = e.reader.DefectsByServiceType(ctx, serviceType)
	default:
		defects, err = e.reader.AllDefects(ctx)
	}
	if err != nil {
		e.degraded(err, "filtered defects", logrus.Fields{
			"project":     filter.Project,
			"serviceType": filter.ServiceType,
		})
		return make([]*types.Defect, 0)
	}

	return ApplySearch(defects, filter.Search)
}

// Selection returns the defects with the given ids, most recent first.
func (e *Engine) Selection(ctx context.Context, ids []int64) []*types.Defect {
	defects, err := e.reader.DefectsByIDs(ctx, ids)
	if err != nil {
		e.degraded(err, "defect selection", logrus.Fields{"ids": len(ids)})
		return make([]*types.Defect, 0)
	}
	return defects
}

// Projects lists the distinct project titles in ascending order.
func (e *Engine) Projects(ctx context.Context) []string {
	projects, err := e.reader.DistinctProjects(ctx)
	if err != nil {
		e.degraded(err, "projects", nil)
		return make([]string, 0)
	}
	return projects
}

func (e *Engine) degraded(err error, what string, fields logrus.Fields) {
	if e.logger == nil {
		return
	}
	e.logger.WithError(err).WithFields(fields).Warnf("failed to read %s, returning an empty result", what)
}

// ApplySearch keeps the defects whose location, defect id, category or
// remarks contain q, ignoring case. A blank q returns defects unchanged.
func ApplySearch(defects []*types.Defect, q string) []*types.Defect {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return defects
	}

	out := make([]*types.Defect, 0, len(defects))
	for _, d := range defects {
		if matches(d, q) {
			out = append(out, d)
		}
	}
	return out
}

func matches(d *types.Defect, q string) bool {
	for _, field := range []string{d.Location, d.DefectID, d.Category, d.Remarks} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
