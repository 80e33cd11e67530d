package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sig-0/jcbrates/storage/types"
)

// Storage is an in-memory rate table cache.
// Tables are never evicted for the lifetime of the process
type Storage struct {
	data map[types.Date]*types.RateTable

	mu sync.RWMutex
}

func NewStorage() *Storage {
	return &Storage{
		data: make(map[types.Date]*types.RateTable),
	}
}

func (s *Storage) SaveTable(_ context.Context, t *types.RateTable) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Tables are immutable once stored
	if _, exists := s.data[t.Date]; exists {
		return nil
	}

	s.data[t.Date] = t

	return nil
}

func (s *Storage) Table(_ context.Context, date types.Date) (*types.RateTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.data[date], nil
}

func (s *Storage) HasTable(_ context.Context, date types.Date) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.data[date]

	return ok, nil
}

func (s *Storage) ListDates(_ context.Context) ([]types.Date, error) {
	s.mu.RLock()

	out := make([]types.Date, 0, len(s.data))
	for d := range s.data {
		out = append(out, d)
	}

	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i] > out[j]
	})

	return out, nil
}
