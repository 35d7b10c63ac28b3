package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"defectlog/pkg/types"

	"github.com/jackc/pgx/v5/pgconn"
)

var errStoreNotOpen = fmt.Errorf("%w: store handle is not open", types.ErrStore)

// sqlite extended result codes
const (
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

type sqliteCoder interface {
	Code() int
}

// isUniqueViolation recognises unique-constraint failures from both the
// postgres and the sqlite drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}

	var coder sqliteCoder
	if errors.As(err, &coder) {
		switch coder.Code() {
		case sqliteConstraintUnique, sqliteConstraintPrimaryKey:
			return true
		}
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// mapError converts driver errors into the types package taxonomy. Context
// errors pass through untouched.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", msg, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", msg, types.ErrDefectNotFound)
	}

	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", msg, types.ErrDuplicateDefectID)
	}

	if errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%s: %w: %v", msg, types.ErrStore, err)
	}

	return fmt.Errorf("%s: %w", msg, err)
}
