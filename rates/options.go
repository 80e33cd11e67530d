package rates

import (
	"io"
	"log/slog"
	"time"

	"github.com/sig-0/jcbrates/metrics"
)

var noopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type StoreOption func(s *Store)

// WithStoreLogger specifies the logger for the store
func WithStoreLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = l
	}
}

// WithStoreMetrics specifies the metrics for the store
func WithStoreMetrics(m *metrics.Metrics) StoreOption {
	return func(s *Store) {
		s.metrics = m
	}
}

type Option func(e *Engine)

// WithLogger specifies the logger for the engine
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMetrics specifies the metrics for the engine
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLocation specifies the location used to determine the current day.
// Defaults to time.Local
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		e.location = loc
	}
}

// WithCooldown specifies the minimum interval between fetch attempts
// for the current day's table. Defaults to 1h
func WithCooldown(d time.Duration) Option {
	return func(e *Engine) {
		e.cooldown = d
	}
}

// WithMaxLookback specifies how many days back the engine looks for a table.
// Defaults to 30
func WithMaxLookback(days int) Option {
	return func(e *Engine) {
		e.maxLookback = days
	}
}

// WithClock specifies the time source of the engine
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}
