package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"defectlog/internal/db"
	"defectlog/pkg/types"

	"github.com/stretchr/testify/require"
)

func newTestHandle(t *testing.T) *db.Handle {
	t.Helper()

	cfg := &types.Config{
		DatabaseDriver:      types.DatabaseDriverSQLite,
		DataDir:             filepath.Join(t.TempDir(), "data"),
		SQLiteBusyTimeoutMs: 1000,
	}

	ctx := context.Background()
	h, err := db.Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })

	require.NoError(t, db.Migrate(ctx, h, nil))

	return h
}

var baseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func testDefect(n int, project string, st types.ServiceType, category string) *types.Defect {
	created := baseTime.Add(time.Duration(n) * time.Minute)
	return &types.Defect{
		DefectID:     fmt.Sprintf("DEF-%s-%03d", created.Format("20060102-150405"), n),
		ProjectTitle: project,
		ServiceType:  st,
		Category:     category,
		Location:     fmt.Sprintf("L%d Lobby", n),
		Remarks:      "",
		PhotoPath:    fmt.Sprintf("/x/%d.jpg", n),
		CreatedAt:    types.NewTimestamp(created),
	}
}
