package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"defectlog/pkg/types"

	_ "github.com/glebarez/go-sqlite"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Handle is the process-wide store handle. It is opened once at startup and
// passed to every repository; there is no implicit re-open.
type Handle struct {
	DB      *sql.DB
	Dialect Dialect
}

func (h *Handle) Close() error {
	if h == nil || h.DB == nil {
		return nil
	}
	return h.DB.Close()
}

// DefaultSQLitePath is where the store lives when DATABASE_URL is unset.
func DefaultSQLitePath(dataDir string) string {
	return filepath.Join(dataDir, "defects.db")
}

// Open opens the backing store selected by config.DatabaseDriver and verifies
// it answers. Errors wrap types.ErrStore.
func Open(ctx context.Context, config *types.Config) (*Handle, error) {
	switch strings.ToLower(strings.TrimSpace(config.DatabaseDriver)) {
	case "", types.DatabaseDriverSQLite:
		return openSQLite(ctx, config)
	case types.DatabaseDriverPostgres:
		return openPostgres(ctx, config)
	default:
		return nil, fmt.Errorf("%w: unsupported database driver %q", types.ErrStore, config.DatabaseDriver)
	}
}

func openSQLite(ctx context.Context, config *types.Config) (*Handle, error) {
	dsn := config.DatabaseURL
	if dsn == "" {
		dsn = DefaultSQLitePath(config.DataDir)
	}

	if path := sqliteFilePath(dsn); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("%w: create store directory: %v", types.ErrStore, err)
		}
	}

	pragmas := sqlitePragmas{
		WAL:           true,
		BusyTimeoutMs: config.SQLiteBusyTimeoutMs,
		ForeignKeys:   true,
	}

	sqlDB, err := sql.Open("sqlite", pragmas.dsn(dsn))
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %v", types.ErrStore, err)
	}

	if config.DatabaseMaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(config.DatabaseMaxOpenConns)
	}

	if err := applySQLitePragmas(ctx, sqlDB, pragmas); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("%w: %v", types.ErrStore, err)
	}

	return &Handle{DB: sqlDB, Dialect: DialectSQLite}, nil
}

func openPostgres(ctx context.Context, config *types.Config) (*Handle, error) {
	if config.DatabaseURL == "" {
		return nil, fmt.Errorf("%w: set DATABASE_URL for the postgres driver", types.ErrStore)
	}

	sqlDB, err := sql.Open("pgx", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: open postgres: %v", types.ErrStore, err)
	}

	if config.DatabaseMaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(config.DatabaseMaxOpenConns)
	}
	if config.DatabaseConnMaxIdleMin > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(config.DatabaseConnMaxIdleMin) * time.Minute)
	}
	sqlDB.SetConnMaxLifetime(45 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("%w: ping postgres: %v", types.ErrStore, err)
	}

	return &Handle{DB: sqlDB, Dialect: DialectPostgres}, nil
}

// sqliteFilePath extracts the file path from a sqlite DSN, or "" for
// in-memory databases.
func sqliteFilePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return ""
	}
	return path
}
