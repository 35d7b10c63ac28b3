package ident

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"defectlog/internal/store"
)

const (
	defectIDPrefix = "DEF"
	memoPrefix     = "HTS/MC/SM/"
)

// Generator issues human readable defect ids of the form
// DEF-YYYYMMDD-HHMMSS-NNN. Ids are not guaranteed unique; the store's
// unique index is the final arbiter.
type Generator struct {
	Now    func() time.Time
	Suffix func() int
}

func NewGenerator() *Generator {
	return &Generator{
		Now:    time.Now,
		Suffix: func() int { return rand.IntN(1000) },
	}
}

func (g *Generator) DefectID() string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	suffix := func() int { return rand.IntN(1000) }
	if g.Suffix != nil {
		suffix = g.Suffix
	}

	t := now()
	return fmt.Sprintf("%s-%s-%03d", defectIDPrefix, t.Format("20060102-150405"), suffix()%1000)
}

// KeyValueStore persists counters and preferences by string key.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// MemoCounter hands out site memo numbers. The last issued number is
// persisted under store.PreferenceLastMemoNumber.
type MemoCounter struct {
	mu sync.Mutex
	kv KeyValueStore
}

func NewMemoCounter(kv KeyValueStore) *MemoCounter {
	return &MemoCounter{kv: kv}
}

// Next increments and persists the counter and returns the formatted memo
// number, e.g. HTS/MC/SM/000001.
func (c *MemoCounter) Next(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	last, err := c.last(ctx)
	if err != nil {
		return "", err
	}

	next := last + 1
	if err := c.kv.Set(ctx, store.PreferenceLastMemoNumber, strconv.Itoa(next)); err != nil {
		return "", fmt.Errorf("failed to persist memo number: %w", err)
	}

	return FormatMemoNumber(next), nil
}

// Peek returns the number the next call to Next would issue without
// consuming it.
func (c *MemoCounter) Peek(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	last, err := c.last(ctx)
	if err != nil {
		return "", err
	}
	return FormatMemoNumber(last + 1), nil
}

func (c *MemoCounter) last(ctx context.Context) (int, error) {
	raw, ok, err := c.kv.Get(ctx, store.PreferenceLastMemoNumber)
	if err != nil {
		return 0, fmt.Errorf("failed to read memo number: %w", err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("stored memo number %q is not an integer: %w", raw, err)
	}
	return n, nil
}

func FormatMemoNumber(n int) string {
	return fmt.Sprintf("%s%06d", memoPrefix, n)
}
