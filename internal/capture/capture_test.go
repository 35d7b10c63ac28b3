package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"defectlog/internal/catalog"
	"defectlog/internal/storage"
	"defectlog/pkg/types"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	defects []*types.Defect
	seen    map[string]bool
	err     error
}

func (w *fakeWriter) CreateDefect(_ context.Context, d *types.Defect) (int64, error) {
	if w.err != nil {
		return 0, w.err
	}
	if w.seen == nil {
		w.seen = make(map[string]bool)
	}
	if w.seen[d.DefectID] {
		return 0, types.ErrDuplicateDefectID
	}
	w.seen[d.DefectID] = true
	copied := *d
	copied.ID = int64(len(w.defects) + 1)
	d.ID = copied.ID
	w.defects = append(w.defects, &copied)
	return copied.ID, nil
}

type fakePrefs struct {
	project string
}

func (p *fakePrefs) SetCurrentProject(_ context.Context, project string) error {
	p.project = project
	return nil
}

type sequenceIDs struct {
	ids []string
	i   int
}

func (s *sequenceIDs) DefectID() string {
	id := s.ids[s.i%len(s.ids)]
	s.i++
	return id
}

type fixture struct {
	svc    *Service
	writer *fakeWriter
	prefs  *fakePrefs
	photos *storage.PhotoLibrary
	ids    *sequenceIDs
	src    string
}

func newFixture(t *testing.T, ids ...string) *fixture {
	t.Helper()

	root := t.TempDir()
	src := filepath.Join(root, "camera.jpg")
	require.NoError(t, os.WriteFile(src, []byte("jpeg"), 0o644))

	if len(ids) == 0 {
		ids = []string{"DEF-20240101-120000-001"}
	}

	logger, _ := test.NewNullLogger()
	f := &fixture{
		writer: &fakeWriter{},
		prefs:  &fakePrefs{},
		photos: storage.NewPhotoLibrary(filepath.Join(root, "data")),
		ids:    &sequenceIDs{ids: ids},
		src:    src,
	}
	f.svc = NewService(logger, catalog.Default(), f.writer, f.prefs, f.photos, f.ids)
	f.svc.now = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func (f *fixture) input() types.NewDefect {
	return types.NewDefect{
		ProjectTitle: " Tower A ",
		ServiceType:  "pd",
		Category:     "Hydraulic test of water pipes fail",
		Location:     "L2 Lobby",
		Remarks:      "leaking at joint",
		PhotoPath:    f.src,
	}
}

func photoCount(t *testing.T, lib *storage.PhotoLibrary) int {
	t.Helper()
	entries, err := os.ReadDir(lib.Dir())
	if os.IsNotExist(err) {
		return 0
	}
	require.NoError(t, err)
	return len(entries)
}

func TestCapture(t *testing.T) {
	f := newFixture(t)

	d, err := f.svc.Capture(context.Background(), f.input())
	require.NoError(t, err)

	assert.Equal(t, int64(1), d.ID)
	assert.Equal(t, "DEF-20240101-120000-001", d.DefectID)
	assert.Equal(t, "Tower A", d.ProjectTitle)
	assert.Equal(t, types.ServiceTypePD, d.ServiceType)
	assert.Equal(t, "2024-01-01T12:00:00.000Z", d.CreatedAt.String())
	assert.Equal(t, f.photos.Dir(), filepath.Dir(d.PhotoPath))
	assert.NotEqual(t, f.src, d.PhotoPath)
	assert.Equal(t, "Tower A", f.prefs.project)
	assert.Equal(t, 1, photoCount(t, f.photos))
}

func TestCapture_ValidationHappensFirst(t *testing.T) {
	cases := map[string]func(*types.NewDefect){
		"projectTitle": func(in *types.NewDefect) { in.ProjectTitle = "  " },
		"serviceType":  func(in *types.NewDefect) { in.ServiceType = "HVAC" },
		"category":     func(in *types.NewDefect) { in.Category = "Lighting fault" },
		"location":     func(in *types.NewDefect) { in.Location = "" },
		"remarks":      func(in *types.NewDefect) { in.Remarks = strings.Repeat("é", types.MaxRemarksLength+1) },
		"photoPath":    func(in *types.NewDefect) { in.PhotoPath = filepath.Join(filepath.Dir(in.PhotoPath), "missing.jpg") },
	}

	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			f := newFixture(t)
			in := f.input()
			mutate(&in)

			_, err := f.svc.Capture(context.Background(), in)
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrValidation)

			var verr *types.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, field, verr.Field)

			assert.Empty(t, f.writer.defects)
			assert.Zero(t, photoCount(t, f.photos))
			assert.Empty(t, f.prefs.project)
		})
	}
}

func TestCapture_RemarksAtLimit(t *testing.T) {
	f := newFixture(t)
	in := f.input()
	in.Remarks = strings.Repeat("é", types.MaxRemarksLength)

	_, err := f.svc.Capture(context.Background(), in)
	assert.NoError(t, err)
}

func TestCapture_RetriesCollidingID(t *testing.T) {
	f := newFixture(t, "DEF-20240101-120000-001", "DEF-20240101-120000-001", "DEF-20240101-120000-002")

	_, err := f.svc.Capture(context.Background(), f.input())
	require.NoError(t, err)

	second, err := f.svc.Capture(context.Background(), f.input())
	require.NoError(t, err)
	assert.Equal(t, "DEF-20240101-120000-002", second.DefectID)
	assert.Len(t, f.writer.defects, 2)
}

func TestCapture_GivesUpAfterRepeatedCollisions(t *testing.T) {
	f := newFixture(t, "DEF-20240101-120000-001")

	_, err := f.svc.Capture(context.Background(), f.input())
	require.NoError(t, err)

	_, err = f.svc.Capture(context.Background(), f.input())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConstraint)
	assert.Equal(t, 1+maxIDAttempts, f.ids.i)

	assert.Len(t, f.writer.defects, 1)
	assert.Equal(t, 1, photoCount(t, f.photos))
}

func TestCapture_StoreFailureRemovesPhoto(t *testing.T) {
	f := newFixture(t)
	f.writer.err = errors.New("disk full")

	_, err := f.svc.Capture(context.Background(), f.input())
	require.Error(t, err)
	assert.Zero(t, photoCount(t, f.photos))
	assert.Equal(t, 1, f.ids.i)
}

func TestCaptureUpload(t *testing.T) {
	f := newFixture(t)
	in := f.input()
	in.PhotoPath = ""

	d, err := f.svc.CaptureUpload(context.Background(), in, ".png", strings.NewReader("png bytes"))
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(d.PhotoPath))

	_, err = f.svc.CaptureUpload(context.Background(), in, ".png", nil)
	assert.ErrorIs(t, err, types.ErrValidation)
}
