package query

import (
	"context"
	"errors"
	"testing"

	"defectlog/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	defects []*types.Defect
	err     error
	called  string
}

func (f *fakeReader) filter(keep func(*types.Defect) bool) ([]*types.Defect, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*types.Defect, 0)
	for _, d := range f.defects {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeReader) AllDefects(context.Context) ([]*types.Defect, error) {
	f.called = "all"
	return f.filter(func(*types.Defect) bool { return true })
}

func (f *fakeReader) DefectsByServiceType(_ context.Context, st types.ServiceType) ([]*types.Defect, error) {
	f.called = "serviceType"
	return f.filter(func(d *types.Defect) bool { return d.ServiceType == st })
}

func (f *fakeReader) DefectsByProject(_ context.Context, p string) ([]*types.Defect, error) {
	f.called = "project"
	return f.filter(func(d *types.Defect) bool { return d.ProjectTitle == p })
}

func (f *fakeReader) DefectsByProjectAndServiceType(_ context.Context, p string, st types.ServiceType) ([]*types.Defect, error) {
	f.called = "projectAndServiceType"
	return f.filter(func(d *types.Defect) bool { return d.ProjectTitle == p && d.ServiceType == st })
}

func (f *fakeReader) DefectsByIDs(_ context.Context, ids []int64) ([]*types.Defect, error) {
	f.called = "ids"
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return f.filter(func(d *types.Defect) bool { return want[d.ID] })
}

func (f *fakeReader) DistinctProjects(context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []string{"Tower A", "Tower B"}, nil
}

func sampleDefects() []*types.Defect {
	return []*types.Defect{
		{ID: 1, DefectID: "DEF-20240101-120000-001", ProjectTitle: "Tower A", ServiceType: types.ServiceTypePD, Category: "Pipe leakage", Location: "L2 Lobby", Remarks: "Water stain near riser"},
		{ID: 2, DefectID: "DEF-20240101-120100-002", ProjectTitle: "Tower A", ServiceType: types.ServiceTypeEL, Category: "Lighting fault", Location: "Car park B1"},
		{ID: 3, DefectID: "DEF-20240102-090000-003", ProjectTitle: "Tower B", ServiceType: types.ServiceTypePD, Category: "Drainage blocked", Location: "Roof"},
		{ID: 4, DefectID: "DEF-20240102-091500-004", ProjectTitle: "Tower B", ServiceType: types.ServiceTypeFS, Category: "Sprinkler head damaged", Location: "L2 corridor", Remarks: "cover missing"},
	}
}

func TestFiltered_SelectsStoreRead(t *testing.T) {
	cases := []struct {
		name   string
		filter types.Filter
		called string
		ids    []int64
	}{
		{"unconstrained", types.Filter{}, "all", []int64{1, 2, 3, 4}},
		{"all wildcard", types.Filter{Project: "All", ServiceType: "all"}, "all", []int64{1, 2, 3, 4}},
		{"project", types.Filter{Project: "Tower A", ServiceType: "All"}, "project", []int64{1, 2}},
		{"service type", types.Filter{Project: "All", ServiceType: "PD"}, "serviceType", []int64{1, 3}},
		{"both", types.Filter{Project: "Tower B", ServiceType: "PD"}, "projectAndServiceType", []int64{3}},
		{"both with search", types.Filter{Project: "Tower A", ServiceType: "All", Search: "LOBBY"}, "project", []int64{1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reader := &fakeReader{defects: sampleDefects()}
			e := NewEngine(nil, reader)

			got := e.Filtered(context.Background(), tc.filter)
			assert.Equal(t, tc.called, reader.called)

			ids := make([]int64, 0, len(got))
			for _, d := range got {
				ids = append(ids, d.ID)
			}
			assert.Equal(t, tc.ids, ids)
		})
	}
}

func TestFiltered_DegradesToEmpty(t *testing.T) {
	logger, hook := test.NewNullLogger()
	e := NewEngine(logger, &fakeReader{err: errors.New("database is locked")})

	got := e.Filtered(context.Background(), types.Filter{Project: "Tower A"})
	require.NotNil(t, got)
	assert.Empty(t, got)

	assert.Empty(t, e.Projects(context.Background()))
	assert.Empty(t, e.Selection(context.Background(), []int64{1}))

	require.Len(t, hook.AllEntries(), 3)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestApplySearch(t *testing.T) {
	defects := sampleDefects()

	assert.Equal(t, defects, ApplySearch(defects, ""))
	assert.Equal(t, defects, ApplySearch(defects, "   "))

	byField := map[string][]int64{
		"l2":                   {1, 4},
		"def-20240102":         {3, 4},
		"SPRINKLER":            {4},
		"stain":                {1},
		"cover missing":        {4},
		"nothing matches this": {},
	}
	for q, want := range byField {
		got := ApplySearch(defects, q)
		ids := make([]int64, 0, len(got))
		for _, d := range got {
			ids = append(ids, d.ID)
		}
		assert.Equal(t, want, ids, "query %q", q)
	}
}

func TestApplySearch_IsSubset(t *testing.T) {
	defects := sampleDefects()
	in := make(map[*types.Defect]bool, len(defects))
	for _, d := range defects {
		in[d] = true
	}

	for _, q := range []string{"a", "e", "tower", "1", "-", "B1", "zz"} {
		got := ApplySearch(defects, q)
		assert.LessOrEqual(t, len(got), len(defects))
		for _, d := range got {
			assert.True(t, in[d], "query %q returned a defect outside the input", q)
		}
	}
}
