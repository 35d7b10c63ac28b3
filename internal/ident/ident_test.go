package ident

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"defectlog/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_DefectID(t *testing.T) {
	g := &Generator{
		Now:    func() time.Time { return time.Date(2024, 1, 1, 12, 0, 5, 0, time.Local) },
		Suffix: func() int { return 7 },
	}
	assert.Equal(t, "DEF-20240101-120005-007", g.DefectID())

	pattern := regexp.MustCompile(`^DEF-\d{8}-\d{6}-\d{3}$`)
	gen := NewGenerator()
	for i := 0; i < 50; i++ {
		assert.Regexp(t, pattern, gen.DefectID())
	}
}

type memoryKV struct {
	mu     sync.Mutex
	values map[string]string
	setErr error
}

func (m *memoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value
	return nil
}

func TestMemoCounter_Next(t *testing.T) {
	ctx := context.Background()
	kv := &memoryKV{}
	c := NewMemoCounter(kv)

	peek, err := c.Peek(ctx)
	require.NoError(t, err)
	assert.Equal(t, "HTS/MC/SM/000001", peek)

	first, err := c.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "HTS/MC/SM/000001", first)

	second, err := c.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "HTS/MC/SM/000002", second)
	assert.Equal(t, "2", kv.values[store.PreferenceLastMemoNumber])
}

func TestMemoCounter_ContinuesFromStoredValue(t *testing.T) {
	kv := &memoryKV{values: map[string]string{store.PreferenceLastMemoNumber: "41"}}

	n, err := NewMemoCounter(kv).Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "HTS/MC/SM/000042", n)
}

func TestMemoCounter_ConcurrentNextIsMonotonic(t *testing.T) {
	ctx := context.Background()
	c := NewMemoCounter(&memoryKV{})

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]bool)
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := c.Next(ctx)
			assert.NoError(t, err)
			mu.Lock()
			seen[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 20)
	assert.True(t, seen["HTS/MC/SM/000020"])
}

func TestMemoCounter_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewMemoCounter(&memoryKV{values: map[string]string{store.PreferenceLastMemoNumber: "abc"}}).Next(ctx)
	assert.Error(t, err)

	boom := errors.New("read only")
	_, err = NewMemoCounter(&memoryKV{setErr: boom}).Next(ctx)
	assert.ErrorIs(t, err, boom)
}
