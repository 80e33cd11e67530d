package rates

import (
	"context"
	"fmt"
	"sync"

	"github.com/sig-0/jcbrates/storage/types"
)

// mockFetcher serves the configured tables and counts fetches per date.
// Dates without a table are unavailable
type mockFetcher struct {
	tables map[types.Date]*types.RateTable
	errs   map[types.Date]error
	calls  map[types.Date]int

	mu sync.Mutex
}

func newMockFetcher() *mockFetcher {
	return &mockFetcher{
		tables: make(map[types.Date]*types.RateTable),
		errs:   make(map[types.Date]error),
		calls:  make(map[types.Date]int),
	}
}

func (m *mockFetcher) FetchTable(_ context.Context, date types.Date) (*types.RateTable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls[date]++

	if err, ok := m.errs[date]; ok {
		return nil, err
	}

	table, ok := m.tables[date]
	if !ok {
		return nil, fmt.Errorf("%w: status code 404", types.ErrRemoteUnavailable)
	}

	return table, nil
}

func (m *mockFetcher) publish(table *types.RateTable) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tables[table.Date] = table
}

func (m *mockFetcher) fail(date types.Date, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.errs[date] = err
}

func (m *mockFetcher) callsFor(date types.Date) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.calls[date]
}

func (m *mockFetcher) totalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0
	for _, c := range m.calls {
		total += c
	}

	return total
}

// fetcherFn adapts a function to the Fetcher interface
type fetcherFn func(context.Context, types.Date) (*types.RateTable, error)

func (f fetcherFn) FetchTable(ctx context.Context, date types.Date) (*types.RateTable, error) {
	return f(ctx, date)
}

// testTable returns a table with the given date and a fixed set of rates
func testTable(date types.Date) *types.RateTable {
	return &types.RateTable{
		Date: date,
		Rates: map[types.Currency]types.RateEntry{
			"USD": {OriginRate: 1.0, TargetRate: 1.0},
			"JPY": {OriginRate: 110.0, TargetRate: 110.0},
			"TWD": {OriginRate: 31.0, TargetRate: 31.0},
		},
	}
}
