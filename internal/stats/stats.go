package stats

import (
	"context"
	"strings"

	"defectlog/pkg/types"

	"github.com/sirupsen/logrus"
)

// Aggregate folds store rows into a Statistics value. Every catalog
// service type is present even when it has no rows.
func Aggregate(project string, counts []types.CategoryCount) *types.Statistics {
	s := types.NewStatistics(project)
	for _, c := range counts {
		s.Add(c.ServiceType, c.Category, c.Count)
	}
	return s
}

// FromDefects builds the same structure from an in-memory collection, in
// the order the defects are given.
func FromDefects(project string, defects []*types.Defect) *types.Statistics {
	s := types.NewStatistics(project)
	for _, d := range defects {
		s.Add(d.ServiceType, d.Category, 1)
	}
	return s
}

type CountReader interface {
	CategoryCounts(ctx context.Context, projectTitle *string) ([]types.CategoryCount, error)
}

type Service struct {
	logger *logrus.Logger
	reader CountReader
}

func NewService(logger *logrus.Logger, reader CountReader) *Service {
	return &Service{logger: logger, reader: reader}
}

// ForProject aggregates one project, or every project when project is the
// "All" wildcard or empty. A read failure yields all-empty statistics.
func (s *Service) ForProject(ctx context.Context, project string) *types.Statistics {
	var scope *string
	label := types.Filter{Project: project}.ProjectLabel()
	if !types.Unconstrained(project) {
		p := strings.TrimSpace(project)
		scope = &p
	}

	counts, err := s.reader.CategoryCounts(ctx, scope)
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).WithField("project", label).Warn("failed to aggregate defects, returning empty statistics")
		}
		return types.NewStatistics(label)
	}

	return Aggregate(label, counts)
}
