// Package session keeps the open analysis sessions in memory. A session pins
// one immutable Dataset; queries against it never change it.
package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"gradelens/domain/core"
	"gradelens/domain/dataset"
	"gradelens/internal/metrics"
)

// Session is one loaded dataset and where it came from
type Session struct {
	ID        core.ID          `json:"id"`
	Name      string           `json:"name"`
	Source    core.Hash        `json:"source"`
	CreatedAt time.Time        `json:"created_at"`
	Dataset   *dataset.Dataset `json:"-"`
	// UploadPath is the staged file behind an uploaded session, if any
	UploadPath string `json:"-"`
}

// Manager manages sessions for the lifetime of the process
type Manager struct {
	mu       sync.RWMutex
	sessions map[core.ID]*Session
}

// NewManager creates an empty session manager
func NewManager() *Manager {
	return &Manager{sessions: make(map[core.ID]*Session)}
}

// Create registers a session from s, assigning its ID and creation time
func (m *Manager) Create(ctx context.Context, s Session) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.ID = core.NewID()
	s.CreatedAt = time.Now().UTC()

	m.mu.Lock()
	m.sessions[s.ID] = &s
	m.mu.Unlock()

	metrics.SessionOpened()
	return &s, nil
}

// Get returns the session with id or ErrSessionNotFound
func (m *Manager) Get(ctx context.Context, id core.ID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, core.NewSessionNotFoundError(id)
	}
	return s, nil
}

// Delete removes the session and returns it so the caller can release its
// upload.
func (m *Manager) Delete(ctx context.Context, id core.ID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, core.NewSessionNotFoundError(id)
	}
	delete(m.sessions, id)
	metrics.SessionClosed()
	return s, nil
}

// List returns all sessions, oldest first
func (m *Manager) List(ctx context.Context) []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()

	// v7 ids are time ordered
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
