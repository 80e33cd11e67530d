// Package setup wires the rate lookup stack from the server configuration
package setup

import (
	"fmt"
	"log/slog"

	"github.com/sig-0/jcbrates/metrics"
	"github.com/sig-0/jcbrates/provider/jcb"
	"github.com/sig-0/jcbrates/rates"
	"github.com/sig-0/jcbrates/server/config"
	"github.com/sig-0/jcbrates/storage"
	"github.com/sig-0/jcbrates/storage/lru"
	"github.com/sig-0/jcbrates/storage/memory"
)

// Rates is the wired rate lookup stack
type Rates struct {
	Storage storage.Storage
	Client  *jcb.Client
	Engine  *rates.Engine
	Metrics *metrics.Metrics
}

// NewRates creates the table cache, the remote client,
// and the conversion engine on top of them
func NewRates(cfg *config.RatesConfig, logger *slog.Logger) (*Rates, error) {
	location, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	cache, err := newStorage(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("unable to create table cache, %w", err)
	}

	var (
		m      = metrics.New()
		client = jcb.NewClient(
			cfg.BaseURL,
			cfg.FetchTimeoutDuration(),
			jcb.WithLogger(logger),
		)
		store = rates.NewStore(
			cache,
			client,
			rates.WithStoreLogger(logger),
			rates.WithStoreMetrics(m),
		)
		engine = rates.NewEngine(
			store,
			rates.WithLogger(logger),
			rates.WithMetrics(m),
			rates.WithLocation(location),
			rates.WithCooldown(cfg.RetryCooldownDuration()),
			rates.WithMaxLookback(cfg.MaxLookbackDays),
		)
	)

	return &Rates{
		Storage: cache,
		Client:  client,
		Engine:  engine,
		Metrics: m,
	}, nil
}

// newStorage creates a bounded cache if a size is set, and an unbounded one otherwise
func newStorage(size int) (storage.Storage, error) {
	if size > 0 {
		s, err := lru.NewStorage(size)
		if err != nil {
			return nil, err
		}

		return s, nil
	}

	return memory.NewStorage(), nil
}
