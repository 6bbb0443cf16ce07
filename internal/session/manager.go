package session

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"homefinder-backend/internal/models"
	"homefinder-backend/internal/services"
)

// Manager is the in-memory session registry. Sessions are isolated,
// non-durable and swept away after sitting idle for the TTL.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	ttl      time.Duration
	stopChan chan struct{}
}

func NewManager(ttl time.Duration) *Manager {
	m := &Manager{
		sessions: make(map[uuid.UUID]*Session),
		ttl:      ttl,
		stopChan: make(chan struct{}),
	}

	// Sweep goroutine
	go func() {
		ticker := time.NewTicker(ttl)
		defer ticker.Stop()
		for {
			select {
			case <-m.stopChan:
				return
			case <-ticker.C:
				m.sweep()
			}
		}
	}()

	return m
}

// Create starts a fresh session in acquiring_url mode with the
// greeting already in its history.
func (m *Manager) Create() *Session {
	s := newSession()
	s.append(models.RoleAssistant, services.Greeting)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	log.Printf("Session created: %s", s.ID)
	return s
}

func (m *Manager) Get(id uuid.UUID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) Remove(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) Stop() {
	close(m.stopChan)
}

func (m *Manager) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, s := range m.sessions {
		s.mu.Lock()
		idle := time.Since(s.lastActiveAt)
		s.mu.Unlock()

		if idle > m.ttl {
			delete(m.sessions, id)
			log.Printf("Session expired after %s idle: %s", idle.Round(time.Second), id)
		}
	}
}
