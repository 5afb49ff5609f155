package vehicle

import (
	"context"
	"sync"
)

// Wildcard as a vehicle model matches every model
const Wildcard = "*"

// StaticTable is an in-memory compatibility table, used when no vehicle
// service is configured.
type StaticTable struct {
	mu    sync.RWMutex
	pairs map[string]map[string]struct{}
	open  bool
}

// NewStaticTable creates an empty table
func NewStaticTable() *StaticTable {
	return &StaticTable{pairs: make(map[string]map[string]struct{})}
}

// NewPermissiveTable accepts every pair
func NewPermissiveTable() *StaticTable {
	t := NewStaticTable()
	t.open = true
	return t
}

// Allow registers typeComponentIDs as compatible with vehicleModelID
func (t *StaticTable) Allow(vehicleModelID string, typeComponentIDs ...string) *StaticTable {
	t.mu.Lock()
	defer t.mu.Unlock()

	types, ok := t.pairs[vehicleModelID]
	if !ok {
		types = make(map[string]struct{}, len(typeComponentIDs))
		t.pairs[vehicleModelID] = types
	}
	for _, id := range typeComponentIDs {
		types[id] = struct{}{}
	}
	return t
}

// IsCompatible implements application.CompatibilityChecker
func (t *StaticTable) IsCompatible(_ context.Context, vehicleModelID, typeComponentID string) (bool, error) {
	if t.open {
		return true, nil
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, model := range []string{vehicleModelID, Wildcard} {
		if _, ok := t.pairs[model][typeComponentID]; ok {
			return true, nil
		}
	}
	return false, nil
}
