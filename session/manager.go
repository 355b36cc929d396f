// Package session holds per-user state between requests: each session owns
// its current workflow and nothing else. Sessions live in memory only and
// are evicted after a configurable idle TTL.
package session

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/types"
	"github.com/BaSui01/imageflow/workflow"
)

// Session is the per-user state. Values handed out by the Manager are deep
// copies; mutating one never touches the stored session.
type Session struct {
	ID        string            `json:"id"`
	Workflow  workflow.Workflow `json:"workflow"`
	CreatedAt time.Time         `json:"created_at"`
	LastSeen  time.Time         `json:"last_seen"`
}

// Config bounds session lifetime. Zero values fall back to the defaults.
type Config struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

const (
	defaultTTL           = time.Hour
	defaultSweepInterval = 5 * time.Minute
)

// MetricsRecorder receives the active-session gauge. A nil recorder
// disables recording.
type MetricsRecorder interface {
	SetActiveSessions(count int)
}

// Manager owns the in-memory session table. Safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	metrics  MetricsRecorder

	ttl    time.Duration
	logger *zap.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

// NewManager creates the session table and starts its TTL sweeper.
func NewManager(cfg Config, logger *zap.Logger) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		sessions: make(map[string]*Session),
		ttl:      cfg.TTL,
		logger:   logger,
		stop:     make(chan struct{}),
	}
	go m.sweep(cfg.SweepInterval)
	return m
}

// SetMetricsRecorder attaches the active-session gauge recorder.
func (m *Manager) SetMetricsRecorder(rec MetricsRecorder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = rec
}

// Create registers a new session seeded with the empty workflow.
func (m *Manager) Create() Session {
	now := time.Now()
	s := &Session{
		ID:        uuid.New().String(),
		Workflow:  workflow.Empty(),
		CreatedAt: now,
		LastSeen:  now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	count := len(m.sessions)
	rec := m.metrics
	m.mu.Unlock()

	if rec != nil {
		rec.SetActiveSessions(count)
	}
	m.logger.Debug("session created", zap.String("session_id", s.ID))
	return copySession(s)
}

// Get returns a copy of the session and refreshes its liveness.
func (m *Manager) Get(id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, notFound(id)
	}
	s.LastSeen = time.Now()
	return copySession(s), nil
}

// Workflow returns a copy of the session's current workflow.
func (m *Manager) Workflow(id string) (workflow.Workflow, error) {
	s, err := m.Get(id)
	if err != nil {
		return workflow.Workflow{}, err
	}
	return s.Workflow, nil
}

// SetWorkflow replaces the session's workflow wholesale. The stored value is
// a copy, so the caller keeps ownership of wf.
func (m *Manager) SetWorkflow(id string, wf workflow.Workflow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return notFound(id)
	}
	s.Workflow = wf.Clone()
	s.LastSeen = time.Now()
	return nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops the TTL sweeper. Idempotent.
func (m *Manager) Close() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
}

func (m *Manager) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.evictIdle()
		}
	}
}

func (m *Manager) evictIdle() {
	cutoff := time.Now().Add(-m.ttl)

	m.mu.Lock()
	evicted := 0
	for id, s := range m.sessions {
		if s.LastSeen.Before(cutoff) {
			delete(m.sessions, id)
			evicted++
		}
	}
	count := len(m.sessions)
	rec := m.metrics
	m.mu.Unlock()

	if evicted > 0 {
		m.logger.Info("idle sessions evicted",
			zap.Int("evicted", evicted),
			zap.Int("active", count))
	}
	if rec != nil {
		rec.SetActiveSessions(count)
	}
}

func copySession(s *Session) Session {
	out := *s
	out.Workflow = s.Workflow.Clone()
	return out
}

func notFound(id string) *types.Error {
	return types.NewError(types.ErrSessionNotFound, fmt.Sprintf("session %s not found", id)).
		WithHTTPStatus(http.StatusNotFound)
}
