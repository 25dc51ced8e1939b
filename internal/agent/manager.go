package agent

import (
	"context"
	"errors"
	"sync"

	"supportline/internal/call"
)

var ErrNotFound = errors.New("call not found")

// Manager owns the live engines, one per active call.
type Manager struct {
	opts Options

	mu      sync.Mutex
	engines map[string]*Engine
}

func NewManager(opts Options) *Manager {
	return &Manager{opts: opts, engines: make(map[string]*Engine)}
}

// Create registers a new engine for a fresh session. The cycle loop starts
// when the audio stream attaches and calls Engine.Start.
func (m *Manager) Create() *Engine {
	eng := NewEngine(m.opts)
	m.mu.Lock()
	m.engines[eng.ID()] = eng
	m.mu.Unlock()
	return eng
}

func (m *Manager) Get(id string) (*Engine, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	eng, ok := m.engines[id]
	return eng, ok
}

// EndCall finalizes the engine and forgets it.
func (m *Manager) EndCall(ctx context.Context, id string) (call.Session, error) {
	m.mu.Lock()
	eng, ok := m.engines[id]
	if ok {
		delete(m.engines, id)
	}
	m.mu.Unlock()
	if !ok {
		return call.Session{}, ErrNotFound
	}
	return eng.End(ctx)
}

// Shutdown ends every live call so in-progress transcripts still get persisted.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	engines := make([]*Engine, 0, len(m.engines))
	for _, eng := range m.engines {
		engines = append(engines, eng)
	}
	m.engines = make(map[string]*Engine)
	m.mu.Unlock()

	for _, eng := range engines {
		if _, err := eng.End(ctx); err != nil {
			eng.log.Error("end call on shutdown failed", "error", err)
		}
	}
}
