package store

import (
	"database/sql"

	"defectlog/internal/db"

	sq "github.com/Masterminds/squirrel"
)

const (
	defectTableName     = "defects"
	preferenceTableName = "preferences"
)

// base carries what every repository needs: the shared handle and a
// statement builder with the dialect's placeholder format.
type base struct {
	db      *sql.DB
	dialect db.Dialect
	builder sq.StatementBuilderType
}

func newBase(h *db.Handle) base {
	b := base{builder: statementBuilder(db.DialectSQLite)}
	if h == nil {
		return b
	}
	b.db = h.DB
	b.dialect = h.Dialect
	b.builder = statementBuilder(h.Dialect)
	return b
}

func statementBuilder(dialect db.Dialect) sq.StatementBuilderType {
	if dialect == db.DialectPostgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// ready fails with types.ErrStore when the store never opened; callers in
// degraded mode still get a well-formed error instead of a nil dereference.
func (b base) ready() error {
	if b.db == nil {
		return errStoreNotOpen
	}
	return nil
}
