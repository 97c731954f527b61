package session

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

func (m *MemoryStore) Get(_ context.Context, userID string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[userID]
	if !ok {
		return Session{}, ErrNotFound
	}
	if s.PendingUpload != nil {
		p := *s.PendingUpload
		s.PendingUpload = &p
	}
	return s, nil
}

func (m *MemoryStore) Put(_ context.Context, s Session) error {
	if s.PendingUpload != nil {
		p := *s.PendingUpload
		s.PendingUpload = &p
	}

	m.mu.Lock()
	m.sessions[s.UserID] = s
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
	return nil
}
