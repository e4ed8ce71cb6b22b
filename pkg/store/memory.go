package store

import (
	"algoexec/pkg/strategy"
	"context"
	"sync"
)

// MemoryStore keeps encoded snapshots in process memory. Encoding on the way in
// means callers never share state with the store.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: map[string][]byte{}}
}

func (s *MemoryStore) Save(ctx context.Context, state *strategy.InstanceState) error {
	data, err := encode(state)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.Gid] = data
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, gid string) (*strategy.InstanceState, error) {
	s.mu.RLock()
	data, ok := s.states[gid]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decode(data)
}

func (s *MemoryStore) List(ctx context.Context) ([]*strategy.InstanceState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	states := make([]*strategy.InstanceState, 0, len(s.states))
	for _, data := range s.states {
		state, err := decode(data)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	sortByCreation(states)
	return states, nil
}

func (s *MemoryStore) Delete(ctx context.Context, gid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[gid]; !ok {
		return ErrNotFound
	}
	delete(s.states, gid)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
