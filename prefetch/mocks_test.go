package prefetch

import (
	"context"
	"time"

	"github.com/sig-0/jcbrates/storage/types"
)

type (
	fetchDelegate     func(context.Context) (*types.RateTable, error)
	saveTableDelegate func(context.Context, *types.RateTable) error
)

type mockSource struct {
	fetchFn  fetchDelegate
	name     string
	interval time.Duration
}

func (m *mockSource) Name() string {
	return m.name
}

func (m *mockSource) Interval() time.Duration {
	return m.interval
}

func (m *mockSource) Fetch(ctx context.Context) (*types.RateTable, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx)
	}

	return nil, nil
}

type mockSaver struct {
	saveTableFn saveTableDelegate
}

func (m *mockSaver) SaveTable(ctx context.Context, table *types.RateTable) error {
	if m.saveTableFn != nil {
		return m.saveTableFn(ctx, table)
	}

	return nil
}
