// Package prefetch polls rate table sources in the background,
// so the tables are cached before the first conversion asks for them
package prefetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/sig-0/iq"

	"github.com/sig-0/jcbrates/metrics"
	"github.com/sig-0/jcbrates/storage/types"
)

const saveTimeout = 10 * time.Second

var (
	errInvalidSource   = errors.New("invalid source")
	errInvalidInterval = errors.New("invalid interval")
)

// Scheduler runs the polls of the added sources, and saves what they yield
type Scheduler struct {
	saver   Saver
	logger  *slog.Logger
	metrics *metrics.Metrics

	sources sync.Map // xid.ID -> Source

	queue   iq.Queue[job]
	queueMu sync.Mutex

	pollInterval  time.Duration
	retryInterval time.Duration
}

// New creates a new prefetch scheduler, saving the tables into the given saver
func New(saver Saver, opts ...Option) *Scheduler {
	s := &Scheduler{
		saver:         saver,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		queue:         iq.NewQueue[job](),
		pollInterval:  time.Second,
		retryInterval: 10 * time.Second,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Add adds a source to the scheduler. Its first poll is due immediately
func (s *Scheduler) Add(src Source) error {
	if src == nil || src.Name() == "" {
		return errInvalidSource
	}

	if src.Interval() <= 0 {
		return errInvalidInterval
	}

	id := xid.New()
	s.sources.Store(id, src)

	s.logger.Info(
		"added prefetch source",
		"name", src.Name(),
		"id", id.String(),
		"interval", src.Interval(),
	)

	s.push(time.Now(), id, src)

	return nil
}

// Run runs the due polls until the context is canceled [BLOCKING]
func (s *Scheduler) Run(ctx context.Context) error {
	results := make(chan result, 16)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	s.dispatchDue(ctx, results)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("prefetch scheduler shut down")

			return nil
		case <-ticker.C:
			s.dispatchDue(ctx, results)
		case r := <-results:
			s.complete(ctx, r)
		}
	}
}

// dispatchDue starts every job that is due
func (s *Scheduler) dispatchDue(ctx context.Context, results chan<- result) {
	for ctx.Err() == nil {
		j, ok := s.popDue()
		if !ok {
			return
		}

		s.logger.Debug(
			"polling prefetch source",
			"name", j.source.Name(),
		)

		go j.run(ctx, results)
	}
}

// complete saves the job's table, if any, and schedules the next poll of its source
func (s *Scheduler) complete(ctx context.Context, r result) {
	raw, ok := s.sources.Load(r.id)
	if !ok {
		s.logger.Error(
			"unknown prefetch source",
			"id", r.id.String(),
		)

		return
	}

	src, _ := raw.(Source)
	next := time.Now().Add(src.Interval())

	switch {
	case errors.Is(r.err, types.ErrRemoteUnavailable):
		s.metrics.ObservePrefetch(metrics.PrefetchUnpublished)

		s.logger.Info(
			"rate table not published yet",
			"name", src.Name(),
			"err", r.err,
		)
	case r.err != nil:
		s.metrics.ObservePrefetch(metrics.PrefetchFailed)

		s.logger.Error(
			"unable to prefetch rate table",
			"name", src.Name(),
			"err", r.err,
		)

		next = time.Now().Add(s.retryInterval)
	case r.table == nil:
		s.metrics.ObservePrefetch(metrics.PrefetchUpToDate)
	default:
		s.save(ctx, src, r.table)
	}

	s.push(next, r.id, src)
}

func (s *Scheduler) save(ctx context.Context, src Source, table *types.RateTable) {
	saveCtx, cancelFn := context.WithTimeout(ctx, saveTimeout)
	defer cancelFn()

	if err := s.saver.SaveTable(saveCtx, table); err != nil {
		s.metrics.ObservePrefetch(metrics.PrefetchFailed)

		s.logger.Error(
			"unable to save prefetched rate table",
			"name", src.Name(),
			"date", table.Date,
			"err", err,
		)

		return
	}

	s.metrics.ObservePrefetch(metrics.PrefetchSaved)

	s.logger.Info(
		"saved prefetched rate table",
		"name", src.Name(),
		"date", table.Date,
		"currencies", len(table.Rates),
	)
}

func (s *Scheduler) push(due time.Time, id xid.ID, src Source) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()

	s.queue.Push(job{
		due:    due,
		source: src,
		id:     id,
	})
}

// popDue removes and returns the earliest job, if it is due
func (s *Scheduler) popDue() (job, bool) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()

	if s.queue.Len() == 0 || s.queue.Index(0).due.After(time.Now()) {
		return job{}, false
	}

	return *s.queue.PopFront(), true
}
