package reprioritizer

import "sync"

// ProcessedSet tracks task ids already upgraded during this process
// lifetime. It is owned by whoever constructs the service, not a package
// global, so tests can reset it and separate instances don't share state.
// It resets on restart: at-most-once is per process, not durable.
type ProcessedSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewProcessedSet creates an empty set.
func NewProcessedSet() *ProcessedSet {
	return &ProcessedSet{ids: make(map[string]struct{})}
}

// Has reports whether a task id was already processed.
func (p *ProcessedSet) Has(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.ids[id]
	return ok
}

// Add marks a task id as processed.
func (p *ProcessedSet) Add(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids[id] = struct{}{}
}

// Len returns the number of processed ids.
func (p *ProcessedSet) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ids)
}

// Reset clears the set.
func (p *ProcessedSet) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = make(map[string]struct{})
}
