package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/antoniostano/aria/internal/assistant"
	"github.com/antoniostano/aria/internal/persona"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

var ErrNotFound = errors.New("session not found")

// Session is a metadata snapshot. The controller itself is reached through
// Manager.Assistant.
type Session struct {
	ID             string    `json:"session_id"`
	Status         Status    `json:"status"`
	StartedAt      time.Time `json:"started_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// Factory builds the controller for a new session.
type Factory func(tag persona.Tag) (*assistant.Controller, error)

type entry struct {
	meta       Session
	controller *assistant.Controller
}

// Manager owns one assistant controller per session. Ended sessions are
// dropped together with their credential and conversation.
type Manager struct {
	mu                sync.RWMutex
	sessions          map[string]*entry
	factory           Factory
	inactivityTimeout time.Duration
	onExpire          func(Session)
}

func NewManager(inactivityTimeout time.Duration, factory Factory) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 10 * time.Minute
	}
	return &Manager{
		sessions:          make(map[string]*entry),
		factory:           factory,
		inactivityTimeout: inactivityTimeout,
	}
}

func (m *Manager) InactivityTimeout() time.Duration {
	return m.inactivityTimeout
}

func (m *Manager) SetExpireHook(hook func(Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

func (m *Manager) Create(tag persona.Tag) (Session, *assistant.Controller, error) {
	if m.factory == nil {
		return Session{}, nil, errors.New("session: no controller factory")
	}
	ctrl, err := m.factory(tag)
	if err != nil {
		return Session{}, nil, err
	}
	now := time.Now().UTC()
	e := &entry{
		meta: Session{
			ID:             uuid.NewString(),
			Status:         StatusActive,
			StartedAt:      now,
			LastActivityAt: now,
		},
		controller: ctrl,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[e.meta.ID] = e
	return e.meta, ctrl, nil
}

func (m *Manager) Get(sessionID string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[sessionID]
	if !ok {
		return Session{}, ErrNotFound
	}
	return e.meta, nil
}

// Assistant returns the session's controller and marks the session active.
func (m *Manager) Assistant(sessionID string) (*assistant.Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	e.meta.LastActivityAt = time.Now().UTC()
	return e.controller, nil
}

func (m *Manager) Touch(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	e.meta.LastActivityAt = time.Now().UTC()
	return nil
}

func (m *Manager) End(sessionID string) (Session, error) {
	m.mu.Lock()
	e, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()
	if !ok {
		return Session{}, ErrNotFound
	}
	return retire(e), nil
}

func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive()
			}
		}
	}()
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) expireInactive() {
	now := time.Now().UTC()
	var expired []*entry

	m.mu.Lock()
	for id, e := range m.sessions {
		if now.Sub(e.meta.LastActivityAt) < m.inactivityTimeout {
			continue
		}
		delete(m.sessions, id)
		expired = append(expired, e)
	}
	hook := m.onExpire
	m.mu.Unlock()

	for _, e := range expired {
		s := retire(e)
		if hook != nil {
			hook(s)
		}
	}
}

// retire wipes the controller's credential and conversation.
func retire(e *entry) Session {
	e.controller.ClearCredential()
	e.controller.Reset()
	s := e.meta
	s.Status = StatusEnded
	s.LastActivityAt = time.Now().UTC()
	return s
}
