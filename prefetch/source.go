package prefetch

import (
	"context"
	"time"

	"github.com/sig-0/jcbrates/storage/types"
)

// Source is a rate table source polled on a fixed schedule
type Source interface {
	// Name returns the human-readable name of the source
	Name() string

	// Interval returns how often the source is polled
	Interval() time.Duration

	// Fetch polls the source. A nil table means there is nothing new to save
	Fetch(context.Context) (*types.RateTable, error)
}

// Saver persists prefetched tables
type Saver interface {
	SaveTable(context.Context, *types.RateTable) error
}
