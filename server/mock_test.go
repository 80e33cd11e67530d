package server

import (
	"context"

	"github.com/sig-0/jcbrates/storage/types"
)

type (
	convertLatestDelegate func(context.Context, types.Currency, types.Currency, float64) (*types.Conversion, error)
	latestTableDelegate   func(context.Context) (*types.RateTable, error)
	tableDelegate         func(context.Context, types.Date) (*types.RateTable, error)
	cachedDatesDelegate   func(context.Context) ([]types.Date, error)
)

type mockRates struct {
	convertLatestFn convertLatestDelegate
	latestTableFn   latestTableDelegate
	tableFn         tableDelegate
	cachedDatesFn   cachedDatesDelegate
}

func (m *mockRates) ConvertLatest(
	ctx context.Context,
	origin, target types.Currency,
	amount float64,
) (*types.Conversion, error) {
	if m.convertLatestFn != nil {
		return m.convertLatestFn(ctx, origin, target, amount)
	}

	return nil, nil
}

func (m *mockRates) LatestTable(ctx context.Context) (*types.RateTable, error) {
	if m.latestTableFn != nil {
		return m.latestTableFn(ctx)
	}

	return nil, nil
}

func (m *mockRates) Table(ctx context.Context, date types.Date) (*types.RateTable, error) {
	if m.tableFn != nil {
		return m.tableFn(ctx, date)
	}

	return nil, nil
}

func (m *mockRates) CachedDates(ctx context.Context) ([]types.Date, error) {
	if m.cachedDatesFn != nil {
		return m.cachedDatesFn(ctx)
	}

	return nil, nil
}
