package prefetch

import (
	"log/slog"
	"time"

	"github.com/sig-0/jcbrates/metrics"
)

type Option func(s *Scheduler)

// WithLogger specifies the logger for the scheduler
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// WithMetrics specifies the collectors prefetch runs are recorded on
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// WithPollInterval specifies how often the queue is checked for due jobs.
// Defaults to 1s
func WithPollInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		s.pollInterval = d
	}
}

// WithRetryInterval specifies how soon a source is polled again after
// an unexpected error. Defaults to 10s.
// Unpublished tables are polled again at the source's regular interval
func WithRetryInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		s.retryInterval = d
	}
}
