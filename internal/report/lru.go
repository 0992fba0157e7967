package report

import (
	"container/list"
	"sync"
)

// LRUStore keeps the most recent results in memory and delegates to a
// backing Store for persistence and on cache misses.
type LRUStore struct {
	mu       sync.Mutex
	capacity int
	back     Store

	order *list.List               // of *RunResult, most recent at front
	items map[string]*list.Element // run ID -> element in order
}

// NewLRUStore creates an LRU cache holding up to capacity results in
// front of back. A capacity below 1 is treated as 1.
func NewLRUStore(capacity int, back Store) *LRUStore {
	if capacity < 1 {
		capacity = 1
	}
	return &LRUStore{
		capacity: capacity,
		back:     back,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Save caches the result and writes it to the backing store.
func (s *LRUStore) Save(result *RunResult) error {
	s.mu.Lock()
	s.put(result)
	s.mu.Unlock()

	return s.back.Save(result)
}

// Load checks the cache first. On a miss it loads from the backing
// store and caches the result.
func (s *LRUStore) Load(runID string) (*RunResult, error) {
	s.mu.Lock()
	if e, ok := s.items[runID]; ok {
		s.order.MoveToFront(e)
		r := e.Value.(*RunResult)
		s.mu.Unlock()
		return r, nil
	}
	s.mu.Unlock()

	result, err := s.back.Load(runID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.put(result)
	s.mu.Unlock()

	return result, nil
}

// List delegates to the backing store, which holds every result.
func (s *LRUStore) List() ([]string, error) {
	return s.back.List()
}

// Len returns the number of cached results.
func (s *LRUStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// put inserts or refreshes result. Callers hold s.mu.
func (s *LRUStore) put(result *RunResult) {
	if e, ok := s.items[result.ID]; ok {
		e.Value = result
		s.order.MoveToFront(e)
		return
	}
	s.items[result.ID] = s.order.PushFront(result)
	for s.order.Len() > s.capacity {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.items, oldest.Value.(*RunResult).ID)
	}
}
