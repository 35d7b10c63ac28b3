package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"defectlog/pkg/types"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate ensures the schema exists. It is safe to call any number of
// times; already applied migrations are skipped.
func Migrate(ctx context.Context, h *Handle, logger *logrus.Logger) error {
	if h == nil || h.DB == nil {
		return fmt.Errorf("%w: store handle is not open", types.ErrStore)
	}

	var dialect goose.Dialect
	switch h.Dialect {
	case DialectSQLite:
		dialect = goose.DialectSQLite3
	case DialectPostgres:
		dialect = goose.DialectPostgres
	default:
		return fmt.Errorf("%w: no migrations for dialect %q", types.ErrStore, h.Dialect)
	}

	dir, err := fs.Sub(migrationsFS, "migrations/"+string(h.Dialect))
	if err != nil {
		return fmt.Errorf("%w: migrations for %s: %v", types.ErrStore, h.Dialect, err)
	}

	provider, err := goose.NewProvider(dialect, h.DB, dir)
	if err != nil {
		return fmt.Errorf("%w: goose new provider: %v", types.ErrStore, err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("%w: goose up: %v", types.ErrStore, err)
	}

	if logger != nil {
		for _, r := range results {
			logger.WithFields(logrus.Fields{
				"version":  r.Source.Version,
				"path":     r.Source.Path,
				"duration": r.Duration.String(),
			}).Info("applied migration")
		}
	}

	return nil
}
