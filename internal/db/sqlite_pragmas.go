package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
)

type sqlitePragmas struct {
	WAL           bool
	BusyTimeoutMs int
	ForeignKeys   bool
}

// dsn appends the per-connection pragmas to a sqlite DSN so every pooled
// connection gets them, not just the first one.
func (p sqlitePragmas) dsn(base string) string {
	params := url.Values{}
	if p.BusyTimeoutMs > 0 && !strings.Contains(base, "busy_timeout") {
		params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", p.BusyTimeoutMs))
	}
	if p.ForeignKeys && !strings.Contains(base, "foreign_keys") {
		params.Add("_pragma", "foreign_keys(1)")
	}
	if len(params) == 0 {
		return base
	}

	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + params.Encode()
}

// applySQLitePragmas sets database-wide pragmas. journal_mode is persisted
// in the file, so running it on one connection is enough.
func applySQLitePragmas(ctx context.Context, sqlDB *sql.DB, cfg sqlitePragmas) error {
	if sqlDB == nil {
		return fmt.Errorf("nil sql db")
	}
	if cfg.WAL {
		var mode string
		if err := sqlDB.QueryRowContext(ctx, "PRAGMA journal_mode=WAL;").Scan(&mode); err != nil {
			return fmt.Errorf("enable wal: %w", err)
		}
	}
	return nil
}
