// Package lru provides a size-bounded rate table cache.
// The least recently used dates are evicted once the size is reached
package lru

import (
	"context"
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sig-0/jcbrates/storage/types"
)

type Storage struct {
	cache *lru.Cache[types.Date, *types.RateTable]
}

// NewStorage creates a cache holding at most size tables
func NewStorage(size int) (*Storage, error) {
	cache, err := lru.New[types.Date, *types.RateTable](size)
	if err != nil {
		return nil, fmt.Errorf("unable to create LRU cache: %w", err)
	}

	return &Storage{
		cache: cache,
	}, nil
}

func (s *Storage) SaveTable(_ context.Context, t *types.RateTable) error {
	// ContainsOrAdd keeps the first stored table for a date
	s.cache.ContainsOrAdd(t.Date, t)

	return nil
}

func (s *Storage) Table(_ context.Context, date types.Date) (*types.RateTable, error) {
	t, ok := s.cache.Get(date)
	if !ok {
		return nil, nil
	}

	return t, nil
}

func (s *Storage) HasTable(_ context.Context, date types.Date) (bool, error) {
	return s.cache.Contains(date), nil
}

func (s *Storage) ListDates(_ context.Context) ([]types.Date, error) {
	out := s.cache.Keys()

	sort.Slice(out, func(i, j int) bool {
		return out[i] > out[j]
	})

	return out, nil
}
