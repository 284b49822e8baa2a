package store

import (
	"context"
	"os"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churchconnect/internal/model"
)

func newSQLite(t *testing.T) *SQLBackend {
	t.Helper()
	b, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func newFile(t *testing.T) *FileBackend {
	t.Helper()
	b, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)
	return b
}

func TestBackends(t *testing.T) {
	backends := map[string]Backend{
		"file":   newFile(t),
		"sqlite": newSQLite(t),
	}
	for name, b := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := b.Get(ctx, "events")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, b.Put(ctx, "events", []byte(`[1]`)))
			require.NoError(t, b.Put(ctx, "events", []byte(`[1,2]`)))
			got, err := b.Get(ctx, "events")
			require.NoError(t, err)
			assert.Equal(t, `[1,2]`, string(got))
		})
	}
}

func TestLoadFallsBackToSeed(t *testing.T) {
	s := New(newFile(t))
	require.NoError(t, s.Load(context.Background()))

	s.View(func(d *Data) {
		require.Len(t, d.Events, 3)
		assert.Equal(t, "Youth Summer Retreat", d.Events[0].Name)
		assert.Len(t, d.Volunteers, 3)
		assert.Len(t, d.Attendees, 3)
		assert.Len(t, d.Communications, 2)
		assert.Len(t, d.Payments, 2)
		assert.Len(t, d.Donations, 2)
	})
}

func TestCorruptCollectionFallsBackAlone(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "events.json"), []byte("{not json"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "volunteers.json"), []byte(`[{"id":7,"name":"Ann","email":"ann@x.org"}]`), 0o600))

	s := New(b)
	require.NoError(t, s.Load(context.Background()))
	s.View(func(d *Data) {
		assert.Len(t, d.Events, 3)
		require.Len(t, d.Volunteers, 1)
		assert.Equal(t, model.ID("7"), d.Volunteers[0].ID)
	})
}

func TestSaveAndReload(t *testing.T) {
	for name, b := range map[string]Backend{"file": newFile(t), "sqlite": newSQLite(t)} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := New(b)
			require.NoError(t, s.Load(ctx))
			require.NoError(t, s.Update(func(d *Data) error {
				d.Events = d.Events[:1]
				d.Donations = nil
				return nil
			}))
			require.NoError(t, s.Save(ctx))

			again := New(b)
			require.NoError(t, again.Load(ctx))
			again.View(func(d *Data) {
				assert.Len(t, d.Events, 1)
				assert.Empty(t, d.Donations)
				assert.Len(t, d.Volunteers, 3)
			})
		})
	}
}

func TestDefaultDataIsFresh(t *testing.T) {
	a := DefaultData()
	a.Events[0].Name = "changed"
	assert.Equal(t, "Youth Summer Retreat", DefaultData().Events[0].Name)
}

// gateBackend holds the first Put of key until release is closed.
type gateBackend struct {
	Backend
	key     string
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGate(b Backend, key string) *gateBackend {
	return &gateBackend{Backend: b, key: key, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gateBackend) Put(ctx context.Context, key string, value []byte) error {
	if key == g.key {
		first := false
		g.once.Do(func() { first = true })
		if first {
			close(g.entered)
			<-g.release
		}
	}
	return g.Backend.Put(ctx, key, value)
}

func TestConcurrentSavesKeepNewestSnapshot(t *testing.T) {
	ctx := context.Background()
	base := newFile(t)
	gate := newGate(base, KeyEvents)
	s := New(gate)
	require.NoError(t, s.Load(ctx))
	require.NoError(t, s.Update(func(d *Data) error {
		d.Events = d.Events[:1]
		return nil
	}))

	first := make(chan error, 1)
	go func() { first <- s.Save(ctx) }()
	<-gate.entered

	second := make(chan error, 1)
	go func() {
		second <- s.UpdateAndSave(ctx, func(d *Data) error {
			d.Events = append(d.Events, model.Event{ID: "b", Name: "Added"})
			return nil
		})
	}()

	select {
	case <-second:
		t.Fatal("second save finished while the first was still writing")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate.release)
	require.NoError(t, <-first)
	require.NoError(t, <-second)

	again := New(base)
	require.NoError(t, again.Load(ctx))
	again.View(func(d *Data) {
		require.Len(t, d.Events, 2)
		assert.Equal(t, model.ID("b"), d.Events[1].ID)
	})
}

func TestUpdateAndSaveSkipsFailedUpdate(t *testing.T) {
	ctx := context.Background()
	b := newFile(t)
	s := New(b)
	require.NoError(t, s.Load(ctx))

	boom := errors.New("boom")
	err := s.UpdateAndSave(ctx, func(d *Data) error { return boom })
	assert.ErrorIs(t, err, boom)

	_, err = b.Get(ctx, KeyEvents)
	assert.ErrorIs(t, err, ErrNotFound)
}
