package player

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Manager owns the live sessions and their backends.
type Manager struct {
	store      Store
	newBackend func(ctx context.Context) PlaybackBackend
	log        *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager. newBackend is called once per session with a
// context that is cancelled when the session is deleted or the Manager closed.
func NewManager(store Store, newBackend func(ctx context.Context) PlaybackBackend, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		store:      store,
		newBackend: newBackend,
		log:        log,
		sessions:   make(map[string]*Session),
	}
}

// Create starts a new empty session.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	id := uuid.NewString()
	s := m.newSession(id, newSnapshot())

	s.mu.Lock()
	err := s.applyVolume(ctx)
	s.persist(ctx)
	s.mu.Unlock()
	if err != nil {
		s.close()
		return nil, fmt.Errorf("creating session: %w", err)
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	m.log.Info("player session created", "session", id)
	return s, nil
}

func (m *Manager) newSession(id string, snap Snapshot) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := newSession(id, m.newBackend(ctx), m.store, m.log, snap)
	s.stop = cancel
	return s
}

// Get returns a live session, restoring it from the store if needed.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	if m.store == nil {
		return nil, ErrNotFound
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	snap, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	s := m.newSession(id, snap)
	if err := s.restore(ctx); err != nil {
		m.log.Warn("player session restored without media", "session", id, "error", err)
	}
	m.sessions[id] = s
	m.log.Info("player session restored", "session", id)
	return s, nil
}

// Delete ends a session and removes its persisted state.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.close()
	}
	if m.store == nil {
		if !ok {
			return ErrNotFound
		}
		return nil
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	return nil
}

// Close detaches every live session. Persisted state is kept.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.close()
		delete(m.sessions, id)
	}
	if m.store == nil {
		return nil
	}
	if err := m.store.Close(); err != nil {
		return fmt.Errorf("closing player store: %w", err)
	}
	return nil
}
