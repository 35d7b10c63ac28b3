package store

import (
	"context"
	"testing"

	"defectlog/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedDefects(t *testing.T, repo *DefectRepository, defects ...*types.Defect) {
	t.Helper()
	for _, d := range defects {
		_, err := repo.CreateDefect(context.Background(), d)
		require.NoError(t, err)
	}
}

func TestCreateDefect_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewDefectRepository(newTestHandle(t))

	created, err := types.ParseTimestamp("2024-01-01T12:00:00.000Z")
	require.NoError(t, err)

	input := &types.Defect{
		DefectID:     "DEF-20240101-120000-001",
		ProjectTitle: "Tower A",
		ServiceType:  types.ServiceTypePD,
		Category:     "Hydraulic test of water pipes fail",
		Location:     "L2 Lobby",
		Remarks:      "",
		PhotoPath:    "/x/y.jpg",
		CreatedAt:    created,
	}
	want := *input

	id, err := repo.CreateDefect(ctx, input)
	require.NoError(t, err)
	assert.Positive(t, id)
	assert.Equal(t, id, input.ID)

	all, err := repo.AllDefects(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	want.ID = id
	assert.Equal(t, want, *all[0])
	assert.Equal(t, "2024-01-01T12:00:00.000Z", all[0].CreatedAt.String())
}

func TestCreateDefect_DuplicateDefectID(t *testing.T) {
	ctx := context.Background()
	repo := NewDefectRepository(newTestHandle(t))

	first := testDefect(1, "Tower A", types.ServiceTypePD, "Pipe leakage")
	seedDefects(t, repo, first)

	dup := testDefect(2, "Tower B", types.ServiceTypeEL, "Lighting fault")
	dup.DefectID = first.DefectID

	_, err := repo.CreateDefect(ctx, dup)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrDuplicateDefectID)
	assert.ErrorIs(t, err, types.ErrConstraint)

	all, err := repo.AllDefects(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Tower A", all[0].ProjectTitle)
}

func TestCreateDefect_RequiresFields(t *testing.T) {
	ctx := context.Background()
	repo := NewDefectRepository(newTestHandle(t))

	d := testDefect(1, "Tower A", types.ServiceTypePD, "Pipe leakage")
	d.Location = "  "

	_, err := repo.CreateDefect(ctx, d)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrValidation)

	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "location", verr.Field)

	_, err = repo.CreateDefect(ctx, nil)
	assert.ErrorIs(t, err, types.ErrValidation)

	all, err := repo.AllDefects(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestAllDefects_NewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewDefectRepository(newTestHandle(t))

	seedDefects(t, repo,
		testDefect(3, "Tower A", types.ServiceTypePD, "Pipe leakage"),
		testDefect(1, "Tower A", types.ServiceTypeFS, "Sprinkler head damaged"),
		testDefect(5, "Tower B", types.ServiceTypeEL, "Lighting fault"),
		testDefect(2, "Tower B", types.ServiceTypePD, "Pipe leakage"),
	)

	all, err := repo.AllDefects(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)

	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].CreatedAt.After(all[i-1].CreatedAt.Time), "row %d is newer than row %d", i, i-1)
	}

	byProject, err := repo.DefectsByProject(ctx, "Tower B")
	require.NoError(t, err)
	require.Len(t, byProject, 2)
	assert.True(t, byProject[0].CreatedAt.After(byProject[1].CreatedAt.Time))
}

func TestAllDefects_SameInstantOrderedByID(t *testing.T) {
	ctx := context.Background()
	repo := NewDefectRepository(newTestHandle(t))

	a := testDefect(1, "Tower A", types.ServiceTypePD, "Pipe leakage")
	b := testDefect(1, "Tower A", types.ServiceTypePD, "Pipe leakage")
	b.DefectID = "DEF-20240101-120100-002"
	seedDefects(t, repo, a, b)

	all, err := repo.AllDefects(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b.ID, all[0].ID)
	assert.Equal(t, a.ID, all[1].ID)
}

func TestDefectsByProjectAndServiceType_IsIntersection(t *testing.T) {
	ctx := context.Background()
	repo := NewDefectRepository(newTestHandle(t))

	seedDefects(t, repo,
		testDefect(1, "Tower A", types.ServiceTypePD, "Pipe leakage"),
		testDefect(2, "Tower A", types.ServiceTypeEL, "Lighting fault"),
		testDefect(3, "Tower B", types.ServiceTypePD, "Pipe leakage"),
		testDefect(4, "Tower A", types.ServiceTypePD, "Drainage blocked"),
		testDefect(5, "Tower B", types.ServiceTypeFS, "Sprinkler head damaged"),
	)

	ids := func(defects []*types.Defect) map[int64]bool {
		out := make(map[int64]bool, len(defects))
		for _, d := range defects {
			out[d.ID] = true
		}
		return out
	}

	for _, project := range []string{"Tower A", "Tower B", "Tower C"} {
		for _, st := range types.ServiceTypes {
			both, err := repo.DefectsByProjectAndServiceType(ctx, project, st)
			require.NoError(t, err)

			byProject, err := repo.DefectsByProject(ctx, project)
			require.NoError(t, err)
			byType, err := repo.DefectsByServiceType(ctx, st)
			require.NoError(t, err)

			want := make(map[int64]bool)
			typed := ids(byType)
			for id := range ids(byProject) {
				if typed[id] {
					want[id] = true
				}
			}

			assert.Equal(t, want, ids(both), "project %s service type %s", project, st)
		}
	}
}

func TestDefectsByCategoryAndIDs(t *testing.T) {
	ctx := context.Background()
	repo := NewDefectRepository(newTestHandle(t))

	d1 := testDefect(1, "Tower A", types.ServiceTypePD, "Pipe leakage")
	d2 := testDefect(2, "Tower A", types.ServiceTypeEL, "Lighting fault")
	d3 := testDefect(3, "Tower B", types.ServiceTypePD, "Pipe leakage")
	seedDefects(t, repo, d1, d2, d3)

	byCategory, err := repo.DefectsByCategory(ctx, "Pipe leakage")
	require.NoError(t, err)
	require.Len(t, byCategory, 2)
	assert.Equal(t, d3.ID, byCategory[0].ID)
	assert.Equal(t, d1.ID, byCategory[1].ID)

	selected, err := repo.DefectsByIDs(ctx, []int64{d1.ID, d2.ID, 9999})
	require.NoError(t, err)
	require.Len(t, selected, 2)
	assert.Equal(t, d2.ID, selected[0].ID)

	none, err := repo.DefectsByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDefectByID(t *testing.T) {
	ctx := context.Background()
	repo := NewDefectRepository(newTestHandle(t))

	d := testDefect(1, "Tower A", types.ServiceTypePD, "Pipe leakage")
	seedDefects(t, repo, d)

	got, err := repo.DefectByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.DefectID, got.DefectID)

	_, err = repo.DefectByID(ctx, d.ID+100)
	assert.ErrorIs(t, err, types.ErrDefectNotFound)
}

func TestDistinctProjects(t *testing.T) {
	ctx := context.Background()
	repo := NewDefectRepository(newTestHandle(t))

	projects, err := repo.DistinctProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)

	seedDefects(t, repo,
		testDefect(1, "Tower B", types.ServiceTypePD, "Pipe leakage"),
		testDefect(2, "Tower A", types.ServiceTypeEL, "Lighting fault"),
		testDefect(3, "Tower B", types.ServiceTypeFS, "Sprinkler head damaged"),
	)

	projects, err = repo.DistinctProjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tower A", "Tower B"}, projects)
}

func TestCategoryCounts(t *testing.T) {
	ctx := context.Background()
	repo := NewDefectRepository(newTestHandle(t))

	seedDefects(t, repo,
		testDefect(1, "Tower A", types.ServiceTypePD, "Pipe leakage"),
		testDefect(2, "Tower A", types.ServiceTypePD, "Pipe leakage"),
		testDefect(3, "Tower A", types.ServiceTypeEL, "Lighting fault"),
		testDefect(4, "Tower B", types.ServiceTypePD, "Drainage blocked"),
	)

	project := "Tower A"
	counts, err := repo.CategoryCounts(ctx, &project)
	require.NoError(t, err)
	assert.Equal(t, []types.CategoryCount{
		{ServiceType: types.ServiceTypeEL, Category: "Lighting fault", Count: 1},
		{ServiceType: types.ServiceTypePD, Category: "Pipe leakage", Count: 2},
	}, counts)

	counts, err = repo.CategoryCounts(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, counts, 3)
}

func TestDeleteDefect(t *testing.T) {
	ctx := context.Background()
	repo := NewDefectRepository(newTestHandle(t))

	d1 := testDefect(1, "Tower A", types.ServiceTypePD, "Pipe leakage")
	d2 := testDefect(2, "Tower A", types.ServiceTypeEL, "Lighting fault")
	seedDefects(t, repo, d1, d2)

	require.NoError(t, repo.DeleteDefect(ctx, 424242))

	all, err := repo.AllDefects(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, repo.DeleteDefect(ctx, d1.ID))

	all, err = repo.AllDefects(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, d2.ID, all[0].ID)
}

func TestDefectRepository_NotOpen(t *testing.T) {
	ctx := context.Background()
	repo := NewDefectRepository(nil)

	_, err := repo.AllDefects(ctx)
	assert.ErrorIs(t, err, types.ErrStore)

	_, err = repo.CreateDefect(ctx, testDefect(1, "Tower A", types.ServiceTypePD, "Pipe leakage"))
	assert.ErrorIs(t, err, types.ErrStore)

	assert.ErrorIs(t, repo.DeleteDefect(ctx, 1), types.ErrStore)
}

func TestDeleteDefectsWithRemarksPrefix(t *testing.T) {
	ctx := context.Background()
	repo := NewDefectRepository(newTestHandle(t))

	seeded := testDefect(1, "Tower A", types.ServiceTypePD, "Pipe leakage")
	seeded.Remarks = "[seed] sample"
	kept := testDefect(2, "Tower A", types.ServiceTypePD, "Pipe leakage")
	kept.Remarks = "real finding [seed]"
	seedDefects(t, repo, seeded, kept)

	n, err := repo.DeleteDefectsWithRemarksPrefix(ctx, "[seed] ")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	all, err := repo.AllDefects(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, kept.ID, all[0].ID)

	_, err = repo.DeleteDefectsWithRemarksPrefix(ctx, "")
	assert.ErrorIs(t, err, types.ErrValidation)
}
