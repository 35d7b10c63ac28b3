package store

import (
	"context"
	"fmt"
	"time"

	"defectlog/internal/db"
	"defectlog/internal/utils"
	"defectlog/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"
)

const (
	PreferenceCurrentProject = "current_project"
	PreferenceLastMemoNumber = "last_memo_number"
)

// PreferenceRepository is a string key/value store kept in the same
// database as the defects.
type PreferenceRepository struct {
	base
	now func() time.Time
}

func NewPreferenceRepository(h *db.Handle) *PreferenceRepository {
	return &PreferenceRepository{base: newBase(h), now: time.Now}
}

// Get returns the value stored under key and whether it exists.
func (r *PreferenceRepository) Get(ctx context.Context, key string) (string, bool, error) {
	if err := r.ready(); err != nil {
		return "", false, err
	}

	query, args, err := r.builder.
		Select("value").
		From(preferenceTableName).
		Where(sq.Eq{"key": key}).
		Limit(1).
		ToSql()
	if err != nil {
		return "", false, fmt.Errorf("failed to generate preference query: %w", err)
	}

	var value string
	err = sqlscan.Get(ctx, r.db, &value, query, args...)
	if sqlscan.NotFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to fetch preference %s: %w", key, err)
	}

	return value, true, nil
}

func (r *PreferenceRepository) Set(ctx context.Context, key, value string) error {
	if err := r.ready(); err != nil {
		return err
	}

	query, args, err := r.builder.
		Insert(preferenceTableName).
		Columns("key", "value", "updated_at").
		Values(key, value, types.NewTimestamp(r.now())).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate upsert preference query: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to save preference "+key)
}

func (r *PreferenceRepository) Delete(ctx context.Context, key string) error {
	if err := r.ready(); err != nil {
		return err
	}

	query, args, err := r.builder.
		Delete(preferenceTableName).
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate delete preference query: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to delete preference "+key)
}

// CurrentProject is the last project a defect was captured under, or "".
func (r *PreferenceRepository) CurrentProject(ctx context.Context) (string, error) {
	v, _, err := r.Get(ctx, PreferenceCurrentProject)
	return v, err
}

func (r *PreferenceRepository) SetCurrentProject(ctx context.Context, projectTitle string) error {
	return r.Set(ctx, PreferenceCurrentProject, projectTitle)
}

func (r *PreferenceRepository) ClearCurrentProject(ctx context.Context) error {
	return r.Delete(ctx, PreferenceCurrentProject)
}
