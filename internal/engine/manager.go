package engine

import (
	"context"
	"sync"

	"smartspend/internal/budget"
	"smartspend/internal/ledger"
)

// Manager maps identities from the session layer onto engine instances. A
// sign-in acquires (or reuses) the user's engine; a sign-out drops it, which
// tears the subscription down.
type Manager struct {
	store   *ledger.Store
	budgets budget.Store

	mu      sync.Mutex
	engines map[string]*Engine
}

func NewManager(store *ledger.Store, budgets budget.Store) *Manager {
	return &Manager{
		store:   store,
		budgets: budgets,
		engines: make(map[string]*Engine),
	}
}

// Acquire returns the engine for userID, creating and subscribing it on
// first use.
func (m *Manager) Acquire(ctx context.Context, userID string) *Engine {
	m.mu.Lock()
	eng, ok := m.engines[userID]
	if !ok {
		eng = New(m.store, m.budgets)
		m.engines[userID] = eng
	}
	m.mu.Unlock()

	if !ok {
		eng.SetUser(ctx, userID)
	}
	return eng
}

// Drop handles a sign-out: the engine is removed and closed so no further
// snapshot reaches it.
func (m *Manager) Drop(userID string) {
	m.mu.Lock()
	eng, ok := m.engines[userID]
	delete(m.engines, userID)
	m.mu.Unlock()
	if ok {
		eng.Close()
	}
}

// Shutdown closes every engine.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	engines := make([]*Engine, 0, len(m.engines))
	for _, eng := range m.engines {
		engines = append(engines, eng)
	}
	m.engines = make(map[string]*Engine)
	m.mu.Unlock()
	for _, eng := range engines {
		eng.Close()
	}
}
