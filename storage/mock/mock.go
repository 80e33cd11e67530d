package mock

import (
	"context"

	"github.com/sig-0/jcbrates/storage/types"
)

type (
	SaveTableDelegate func(context.Context, *types.RateTable) error
	TableDelegate     func(context.Context, types.Date) (*types.RateTable, error)
	HasTableDelegate  func(context.Context, types.Date) (bool, error)
	ListDatesDelegate func(context.Context) ([]types.Date, error)
)

type Storage struct {
	SaveTableFn SaveTableDelegate
	TableFn     TableDelegate
	HasTableFn  HasTableDelegate
	ListDatesFn ListDatesDelegate
}

func (m *Storage) SaveTable(ctx context.Context, table *types.RateTable) error {
	if m.SaveTableFn != nil {
		return m.SaveTableFn(ctx, table)
	}

	return nil
}

func (m *Storage) Table(ctx context.Context, date types.Date) (*types.RateTable, error) {
	if m.TableFn != nil {
		return m.TableFn(ctx, date)
	}

	return nil, nil
}

func (m *Storage) HasTable(ctx context.Context, date types.Date) (bool, error) {
	if m.HasTableFn != nil {
		return m.HasTableFn(ctx, date)
	}

	return false, nil
}

func (m *Storage) ListDates(ctx context.Context) ([]types.Date, error) {
	if m.ListDatesFn != nil {
		return m.ListDatesFn(ctx)
	}

	return nil, nil
}
