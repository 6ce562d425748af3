package scheduler

import (
	"sort"
	"sync"
)

// SymbolRegistry is the set of symbols currently being monitored. It is
// safe for concurrent use: List returns a consistent snapshot that never
// interleaves with a mutation. The set holds no duplicates; duplicates
// in the initial list are collapsed on construction.
type SymbolRegistry struct {
	mu      sync.RWMutex
	symbols map[string]struct{}
}

// NewSymbolRegistry creates a registry seeded with the given symbols.
func NewSymbolRegistry(initial []string) *SymbolRegistry {
	symbols := make(map[string]struct{}, len(initial))
	for _, symbol := range initial {
		symbols[symbol] = struct{}{}
	}
	return &SymbolRegistry{symbols: symbols}
}

// Add inserts a symbol and reports whether it was absent before.
func (r *SymbolRegistry) Add(symbol string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.symbols[symbol]; ok {
		return false
	}
	r.symbols[symbol] = struct{}{}
	return true
}

// Remove deletes a symbol and reports whether it was present.
func (r *SymbolRegistry) Remove(symbol string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.symbols[symbol]; !ok {
		return false
	}
	delete(r.symbols, symbol)
	return true
}

// Contains reports whether a symbol is in the set.
func (r *SymbolRegistry) Contains(symbol string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.symbols[symbol]
	return ok
}

// List returns a sorted copy of the monitored symbols.
func (r *SymbolRegistry) List() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.symbols))
	for symbol := range r.symbols {
		out = append(out, symbol)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Count returns the number of monitored symbols.
func (r *SymbolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.symbols)
}
