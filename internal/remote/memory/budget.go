package memory

import (
	"context"
	"sync"

	"smartspend/internal/budget"
)

// BudgetStore keeps budget configurations in memory. It backs the memory
// data backend and tests.
type BudgetStore struct {
	mu      sync.RWMutex
	configs map[string]budget.Config
}

var _ budget.Store = (*BudgetStore)(nil)

func NewBudgetStore() *BudgetStore {
	return &BudgetStore{configs: make(map[string]budget.Config)}
}

func (s *BudgetStore) Load(_ context.Context, userID string) (budget.Config, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[userID]
	return cfg, ok, nil
}

func (s *BudgetStore) Save(_ context.Context, userID string, cfg budget.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[userID] = cfg
	return nil
}
