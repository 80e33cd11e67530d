package prefetch

import (
	"context"
	"time"

	"github.com/rs/xid"

	"github.com/sig-0/jcbrates/storage/types"
)

// job is a single pending poll of a source
type job struct {
	due    time.Time
	source Source
	id     xid.ID
}

// Less orders jobs by due time, earliest first
func (j job) Less(other job) bool {
	return j.due.Before(other.due)
}

// result is the outcome of a job run
type result struct {
	err   error
	table *types.RateTable
	id    xid.ID
}

// run polls the source, and hands the result over unless the scheduler stopped
func (j job) run(ctx context.Context, results chan<- result) {
	table, err := j.source.Fetch(ctx)

	select {
	case <-ctx.Done():
	case results <- result{
		err:   err,
		table: table,
		id:    j.id,
	}:
	}
}
