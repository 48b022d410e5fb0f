package player

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestManagerRestoresAfterRestart verifies a session comes back from the store
// with its song reloaded at the saved position.
func TestManagerRestoresAfterRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	st, err := OpenSQLiteStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	m := NewManager(st, func(context.Context) PlaybackBackend { return NewVirtualBackend() }, quietLogger())
	s, err := m.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	id := s.ID()
	_ = s.PlayQueue(ctx, []Song{songA, songB})
	_ = s.Seek(ctx, 7)
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}

	st, err = OpenSQLiteStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	var backend *VirtualBackend
	m = NewManager(st, func(context.Context) PlaybackBackend {
		backend = NewVirtualBackend()
		return backend
	}, quietLogger())
	defer m.Close()

	restored, err := m.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	snap := restored.Snapshot()
	if snap.Current == nil || snap.Current.ID != "a" || len(snap.Queue) != 2 {
		t.Errorf("restored = %+v", snap)
	}
	if backend.Position() != 7 || !backend.Playing() {
		t.Errorf("backend position = %v playing = %v, want 7 true", backend.Position(), backend.Playing())
	}
}

// TestManagerUnknownSession verifies lookups of missing or malformed IDs.
func TestManagerUnknownSession(t *testing.T) {
	st, err := OpenSQLiteStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	m := NewManager(st, func(context.Context) PlaybackBackend { return NewVirtualBackend() }, quietLogger())
	defer m.Close()

	for _, id := range []string{"not-a-uuid", "6f1c1b57-3c44-4a3b-9d1e-2f6a0e1b2c3d"} {
		if _, err := m.Get(context.Background(), id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get(%q) err = %v, want ErrNotFound", id, err)
		}
	}
}

// TestManagerDelete verifies a deleted session cannot be restored.
func TestManagerDelete(t *testing.T) {
	st, err := OpenSQLiteStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	m := NewManager(st, func(context.Context) PlaybackBackend { return NewVirtualBackend() }, quietLogger())
	defer m.Close()
	ctx := context.Background()

	s, _ := m.Create(ctx)
	if err := m.Delete(ctx, s.ID()); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(ctx, s.ID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// TestManagerStopsBackendOnDelete verifies each session's backend context is
// cancelled when the session is deleted or the manager closed.
func TestManagerStopsBackendOnDelete(t *testing.T) {
	ctx := context.Background()
	var backendCtxs []context.Context
	m := NewManager(nil, func(bctx context.Context) PlaybackBackend {
		backendCtxs = append(backendCtxs, bctx)
		b := NewVirtualBackend()
		go b.Run(bctx, time.Millisecond)
		return b
	}, quietLogger())

	first, err := m.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Create(ctx); err != nil {
		t.Fatal(err)
	}
	if len(backendCtxs) != 2 {
		t.Fatalf("backends created = %d, want 2", len(backendCtxs))
	}

	if err := m.Delete(ctx, first.ID()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if backendCtxs[0].Err() == nil {
		t.Error("deleted session's backend context still live")
	}
	if backendCtxs[1].Err() != nil {
		t.Error("other session's backend context cancelled early")
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if backendCtxs[1].Err() == nil {
		t.Error("backend context still live after Close")
	}
}
