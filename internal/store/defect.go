package store

import (
	"context"
	"fmt"
	"strings"

	"defectlog/internal/db"
	"defectlog/internal/utils"
	"defectlog/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"
)

var defectColumns = utils.StructTagValues(types.Defect{})

// newest first; id breaks ties between rows captured in the same millisecond
var defectOrder = []string{"created_at DESC", "id DESC"}

type DefectRepository struct {
	base
}

func NewDefectRepository(h *db.Handle) *DefectRepository {
	return &DefectRepository{base: newBase(h)}
}

// CreateDefect inserts a fully populated defect and sets defect.ID to the
// store-assigned id. A defect_id that already exists fails with
// types.ErrDuplicateDefectID and leaves the table unchanged.
func (r *DefectRepository) CreateDefect(ctx context.Context, defect *types.Defect) (int64, error) {
	if err := r.ready(); err != nil {
		return 0, err
	}

	if err := requireDefectFields(defect); err != nil {
		return 0, err
	}

	query, args, err := r.builder.
		Insert(defectTableName).
		SetMap(utils.StructToMap(defect, "id")).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate insert defect query: %w", err)
	}

	var id int64
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if err != nil {
		return 0, mapError(err, fmt.Sprintf("failed to create defect %s", defect.DefectID))
	}

	defect.ID = id
	return id, nil
}

func requireDefectFields(defect *types.Defect) error {
	if defect == nil {
		return types.NewValidationError("", "defect is required")
	}

	required := []struct {
		field string
		value string
	}{
		{"defectId", defect.DefectID},
		{"projectTitle", defect.ProjectTitle},
		{"serviceType", string(defect.ServiceType)},
		{"category", defect.Category},
		{"location", defect.Location},
		{"photoPath", defect.PhotoPath},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return types.NewValidationError(f.field, "is required")
		}
	}

	if defect.CreatedAt.IsZero() {
		return types.NewValidationError("createdAt", "is required")
	}

	return nil
}

func (r *DefectRepository) DefectByID(ctx context.Context, id int64) (*types.Defect, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	query, args, err := r.builder.
		Select(defectColumns...).
		From(defectTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate defect query: %w", err)
	}

	var defect = new(types.Defect)
	err = sqlscan.Get(ctx, r.db, defect, query, args...)
	if err != nil && !sqlscan.NotFound(err) {
		return nil, mapError(err, fmt.Sprintf("failed to fetch defect %d", id))
	}

	if err != nil {
		return nil, types.ErrDefectNotFound
	}

	return defect, nil
}

// AllDefects returns every defect, most recent first.
func (r *DefectRepository) AllDefects(ctx context.Context) ([]*types.Defect, error) {
	return r.selectDefects(ctx, nil, "all defects")
}

func (r *DefectRepository) DefectsByServiceType(ctx context.Context, serviceType types.ServiceType) ([]*types.Defect, error) {
	return r.selectDefects(ctx, sq.Eq{"service_type": serviceType}, "defects by service type")
}

func (r *DefectRepository) DefectsByProject(ctx context.Context, projectTitle string) ([]*types.Defect, error) {
	return r.selectDefects(ctx, sq.Eq{"project_title": projectTitle}, "defects by project")
}

func (r *DefectRepository) DefectsByProjectAndServiceType(ctx context.Context, projectTitle string, serviceType types.ServiceType) ([]*types.Defect, error) {
	return r.selectDefects(ctx, sq.Eq{"project_title": projectTitle, "service_type": serviceType}, "defects by project and service type")
}

func (r *DefectRepository) DefectsByCategory(ctx context.Context, category string) ([]*types.Defect, error) {
	return r.selectDefects(ctx, sq.Eq{"category": category}, "defects by category")
}

// DefectsByIDs returns the defects whose id is in ids, most recent first.
// Unknown ids are ignored.
func (r *DefectRepository) DefectsByIDs(ctx context.Context, ids []int64) ([]*types.Defect, error) {
	if len(ids) == 0 {
		return make([]*types.Defect, 0), nil
	}
	return r.selectDefects(ctx, sq.Eq{"id": ids}, "defects by id")
}

func (r *DefectRepository) selectDefects(ctx context.Context, where sq.Sqlizer, what string) ([]*types.Defect, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	builder := r.builder.
		Select(defectColumns...).
		From(defectTableName)
	if where != nil {
		builder = builder.Where(where)
	}

	query, args, err := builder.OrderBy(defectOrder...).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s query: %w", what, err)
	}

	var defects = make([]*types.Defect, 0)
	err = sqlscan.Select(ctx, r.db, &defects, query, args...)
	if err != nil {
		return nil, mapError(err, "failed to fetch "+what)
	}

	return defects, nil
}

// DistinctProjects returns every project title in ascending order.
func (r *DefectRepository) DistinctProjects(ctx context.Context) ([]string, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	query, args, err := r.builder.
		Select("project_title").
		Distinct().
		From(defectTableName).
		OrderBy("project_title ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate projects query: %w", err)
	}

	var projects = make([]string, 0)
	err = sqlscan.Select(ctx, r.db, &projects, query, args...)
	if err != nil {
		return nil, mapError(err, "failed to fetch projects")
	}

	return projects, nil
}

// CategoryCounts counts defects per (service type, category) pair that has
// at least one row, optionally scoped to one project. Rows are ordered by
// service type then category.
func (r *DefectRepository) CategoryCounts(ctx context.Context, projectTitle *string) ([]types.CategoryCount, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}

	builder := r.builder.
		Select("service_type", "category", "COUNT(*) AS count").
		From(defectTableName)
	if projectTitle != nil {
		builder = builder.Where(sq.Eq{"project_title": *projectTitle})
	}

	query, args, err := builder.
		GroupBy("service_type", "category").
		OrderBy("service_type", "category").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate statistics query: %w", err)
	}

	var counts = make([]types.CategoryCount, 0)
	err = sqlscan.Select(ctx, r.db, &counts, query, args...)
	if err != nil {
		return nil, mapError(err, "failed to aggregate defects")
	}

	return counts, nil
}

// DeleteDefect hard-deletes one defect. Deleting an id that does not exist
// is not an error.
func (r *DefectRepository) DeleteDefect(ctx context.Context, id int64) error {
	if err := r.ready(); err != nil {
		return err
	}

	query, args, err := r.builder.
		Delete(defectTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate delete defect query for defect %d: %w", id, err)
	}

	_, err = r.db.ExecContext(ctx, query, args...)

	return utils.ErrorWrapOrNil(mapError(err, fmt.Sprintf("defect %d", id)), "failed to delete defect")
}

// DeleteDefectsWithRemarksPrefix removes every defect whose remarks start
// with prefix and reports how many rows went.
func (r *DefectRepository) DeleteDefectsWithRemarksPrefix(ctx context.Context, prefix string) (int64, error) {
	if err := r.ready(); err != nil {
		return 0, err
	}
	if prefix == "" {
		return 0, types.NewValidationError("prefix", "prefix is required")
	}

	query, args, err := r.builder.
		Delete(defectTableName).
		Where(sq.Like{"remarks": prefix + "%"}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate delete defects query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete defects with remarks prefix %q: %w", prefix, mapError(err, "defects"))
	}

	return result.RowsAffected()
}
