package forecast

import "sync"

// Key returns the composite registry key market#crop.
func Key(market, crop string) string { return market + "#" + crop }

// Registry holds the trained models of the current refresh cycle. Readers and
// the refresh path never share a partially built state: a new cycle replaces
// the whole map at once via ReplaceAll.
type Registry struct {
	mu     sync.RWMutex
	models map[string]*TrainedModel
}

func NewRegistry() *Registry {
	return &Registry{models: make(map[string]*TrainedModel)}
}

func (r *Registry) Get(market, crop string) (*TrainedModel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[Key(market, crop)]
	return m, ok
}

// Put adds a single model, used when lazily loading persisted artifacts.
func (r *Registry) Put(m *TrainedModel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[Key(m.Market, m.Crop)] = m
}

// ReplaceAll swaps in a fully built model set, discarding the previous cycle.
func (r *Registry) ReplaceAll(models []*TrainedModel) {
	next := make(map[string]*TrainedModel, len(models))
	for _, m := range models {
		next[Key(m.Market, m.Crop)] = m
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models = next
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}
