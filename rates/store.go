package rates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sig-0/jcbrates/metrics"
	"github.com/sig-0/jcbrates/storage"
	"github.com/sig-0/jcbrates/storage/types"
)

// Fetcher fetches the rate table of a single day from the remote source
type Fetcher interface {
	FetchTable(context.Context, types.Date) (*types.RateTable, error)
}

// Store resolves rate tables from the cache, fetching missing days from the remote source.
// Each uncached day is fetched at most once at a time, concurrent requests share the result
type Store struct {
	storage storage.Storage
	fetcher Fetcher
	logger  *slog.Logger
	metrics *metrics.Metrics

	group singleflight.Group
}

// NewStore creates a new rate table store
func NewStore(storage storage.Storage, fetcher Fetcher, opts ...StoreOption) *Store {
	s := &Store{
		storage: storage,
		fetcher: fetcher,
		logger:  noopLogger,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// HasTable checks if the table for the given date is cached
func (s *Store) HasTable(ctx context.Context, date types.Date) (bool, error) {
	has, err := s.storage.HasTable(ctx, date)
	if err != nil {
		return false, fmt.Errorf("unable to check cache: %w", err)
	}

	return has, nil
}

// ListDates lists the dates of the cached tables, newest first
func (s *Store) ListDates(ctx context.Context) ([]types.Date, error) {
	dates, err := s.storage.ListDates(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to list cache: %w", err)
	}

	return dates, nil
}

// GetTable returns the table for the given date, fetching and caching it if needed.
// Nothing is cached on failure
func (s *Store) GetTable(ctx context.Context, date types.Date) (*types.RateTable, error) {
	table, err := s.storage.Table(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("unable to read cache: %w", err)
	}

	s.metrics.ObserveCacheLookup(table != nil)

	if table != nil {
		return table, nil
	}

	res, err, _ := s.group.Do(date.String(), func() (any, error) {
		// A fetch that just finished may have filled the cache
		cached, err := s.storage.Table(ctx, date)
		if err == nil && cached != nil {
			return cached, nil
		}

		return s.fetch(ctx, date)
	})
	if err != nil {
		return nil, err
	}

	return res.(*types.RateTable), nil //nolint:forcetypeassert // always a table
}

// fetch fetches the table from the remote source and caches it
func (s *Store) fetch(ctx context.Context, date types.Date) (*types.RateTable, error) {
	start := time.Now()

	table, err := s.fetcher.FetchTable(ctx, date)

	s.metrics.ObserveFetch(fetchOutcome(err), time.Since(start).Seconds())

	if err != nil {
		return nil, err
	}

	if err = s.storage.SaveTable(ctx, table); err != nil {
		return nil, fmt.Errorf("unable to save rate table: %w", err)
	}

	s.logger.Info(
		"cached rate table",
		"date", date,
		"currencies", len(table.Rates),
	)

	return table, nil
}

func fetchOutcome(err error) string {
	var parseErr *types.ParseError

	switch {
	case err == nil:
		return metrics.FetchOK
	case errors.Is(err, types.ErrRemoteUnavailable):
		return metrics.FetchUnavailable
	case errors.As(err, &parseErr):
		return metrics.FetchParseError
	default:
		return metrics.FetchError
	}
}
