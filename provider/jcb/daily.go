package jcb

import (
	"context"
	"time"

	"github.com/sig-0/jcbrates/storage/types"
)

// Fetcher fetches the rate table of a single day
type Fetcher interface {
	FetchTable(context.Context, types.Date) (*types.RateTable, error)
}

// Cache reports if a table is already present
type Cache interface {
	HasTable(context.Context, types.Date) (bool, error)
}

// DailySource polls for the current day's table
type DailySource struct {
	fetcher  Fetcher
	cache    Cache
	location *time.Location
	now      func() time.Time
	interval time.Duration
}

// NewDailySource creates a source that fetches the table of the current day
// (in the given location) every interval, until it is cached
func NewDailySource(
	fetcher Fetcher,
	cache Cache,
	location *time.Location,
	interval time.Duration,
) *DailySource {
	return &DailySource{
		fetcher:  fetcher,
		cache:    cache,
		location: location,
		now:      time.Now,
		interval: interval,
	}
}

func (p *DailySource) Name() string {
	return "JCB daily"
}

func (p *DailySource) Interval() time.Duration {
	return p.interval
}

// Fetch fetches today's table. Returns nil if it is already cached
func (p *DailySource) Fetch(ctx context.Context) (*types.RateTable, error) {
	today := types.DateOf(p.now(), p.location)

	cached, err := p.cache.HasTable(ctx, today)
	if err != nil {
		return nil, err
	}

	if cached {
		return nil, nil //nolint:nilnil // nothing new
	}

	return p.fetcher.FetchTable(ctx, today)
}
