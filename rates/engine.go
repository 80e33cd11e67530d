package rates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/sig-0/jcbrates/metrics"
	"github.com/sig-0/jcbrates/storage/types"
)

const (
	DefaultCooldown        = time.Hour
	DefaultMaxLookbackDays = 30
)

// Engine resolves the latest published rate table and converts amounts with it.
// Date resolution is serialized, the fetch cooldown is shared by all callers
type Engine struct {
	store   *Store
	logger  *slog.Logger
	metrics *metrics.Metrics

	location *time.Location
	now      func() time.Time

	cooldown    time.Duration
	maxLookback int

	lastAttempt time.Time // last fetch attempt of the current day's table
	mu          sync.Mutex
}

// NewEngine creates a new conversion engine on top of the given store
func NewEngine(store *Store, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		logger:      noopLogger,
		location:    time.Local,
		now:         time.Now,
		cooldown:    DefaultCooldown,
		maxLookback: DefaultMaxLookbackDays,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Initialize makes sure at least one table is cached, walking back from today (inclusive).
// It does not count as a fetch attempt for the cooldown
func (e *Engine) Initialize(ctx context.Context) (types.Date, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	today := types.DateOf(e.now(), e.location)

	date, err := e.walkBack(ctx, today, e.maxLookback+1, nil)
	if err != nil {
		return "", err
	}

	e.logger.Info(
		"rate engine initialized",
		"date", date,
	)

	return date, nil
}

// ResolveLatestDate returns the date of the latest available table as of now.
// Today's table is fetched at most once per cooldown, earlier days
// are looked up (and fetched if needed) one by one, up to the max lookback
func (e *Engine) ResolveLatestDate(ctx context.Context, now time.Time) (types.Date, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	today := types.DateOf(now, e.location)

	cached, err := e.store.HasTable(ctx, today)
	if err != nil {
		return "", err
	}

	if cached {
		e.metrics.SetResolvedLag(0)

		return today, nil
	}

	var parseErrs []error

	if now.Sub(e.lastAttempt) > e.cooldown {
		e.lastAttempt = now

		_, err = e.store.GetTable(ctx, today)

		var parseErr *types.ParseError

		switch {
		case err == nil:
			e.metrics.SetResolvedLag(0)

			return today, nil
		case errors.Is(err, types.ErrRemoteUnavailable):
			e.logger.Debug(
				"today's rate table not available",
				"date", today,
				"err", err,
			)
		case errors.As(err, &parseErr):
			e.logParseError(parseErr)

			parseErrs = append(parseErrs, err)
		default:
			return "", err
		}
	} else {
		e.logger.Debug(
			"skipping fetch of today's rate table, cooldown active",
			"date", today,
			"last_attempt", e.lastAttempt,
		)
	}

	date, err := e.walkBack(ctx, today.Prev(), e.maxLookback, parseErrs)
	if err != nil {
		return "", err
	}

	e.metrics.SetResolvedLag(daysBetween(date, today))

	return date, nil
}

// walkBack returns the first date with an available table, checking
// at most days dates, starting from the given one and going backwards
func (e *Engine) walkBack(
	ctx context.Context,
	from types.Date,
	days int,
	parseErrs []error,
) (types.Date, error) {
	date := from

	for i := 0; i < days; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		_, err := e.store.GetTable(ctx, date)

		var parseErr *types.ParseError

		switch {
		case err == nil:
			return date, nil
		case errors.Is(err, types.ErrRemoteUnavailable):
			// not published, keep looking
		case errors.As(err, &parseErr):
			e.logParseError(parseErr)

			parseErrs = append(parseErrs, err)
		default:
			return "", err
		}

		date = date.Prev()
	}

	noTable := fmt.Errorf(
		"%w: checked %d days back from %s",
		types.ErrNoTableAvailable,
		days,
		from,
	)

	return "", errors.Join(append([]error{noTable}, parseErrs...)...)
}

func (e *Engine) logParseError(err *types.ParseError) {
	e.logger.Error(
		"rate table is malformed, skipping",
		"date", err.Date,
		"row", err.Row,
		"err", err.Err,
	)
}

// Convert converts the amount from the origin to the target currency,
// using the table of the given date
func (e *Engine) Convert(
	ctx context.Context,
	date types.Date,
	origin, target types.Currency,
	amount float64,
) (float64, error) {
	table, err := e.store.GetTable(ctx, date)
	if err != nil {
		e.metrics.ObserveConversion(metrics.ConversionError)

		return 0, err
	}

	value, err := convert(table, normalize(origin), normalize(target), amount)
	if err != nil {
		var unknownErr *types.UnknownCurrencyError
		if errors.As(err, &unknownErr) {
			e.metrics.ObserveConversion(metrics.ConversionUnknownCurrency)
		} else {
			e.metrics.ObserveConversion(metrics.ConversionError)
		}

		return 0, err
	}

	e.metrics.ObserveConversion(metrics.ConversionOK)

	return value, nil
}

// ConvertLatest converts the amount using the latest available table
func (e *Engine) ConvertLatest(
	ctx context.Context,
	origin, target types.Currency,
	amount float64,
) (*types.Conversion, error) {
	date, err := e.ResolveLatestDate(ctx, e.now())
	if err != nil {
		return nil, err
	}

	value, err := e.Convert(ctx, date, origin, target, amount)
	if err != nil {
		return nil, err
	}

	return &types.Conversion{
		Date:   date,
		Origin: normalize(origin),
		Target: normalize(target),
		Amount: amount,
		Value:  value,
	}, nil
}

// LatestTable returns the latest available table
func (e *Engine) LatestTable(ctx context.Context) (*types.RateTable, error) {
	date, err := e.ResolveLatestDate(ctx, e.now())
	if err != nil {
		return nil, err
	}

	return e.store.GetTable(ctx, date)
}

// Table returns the table of the given date. Uncached tables are only fetched
// within the lookback window, and today's table at most once per cooldown
func (e *Engine) Table(ctx context.Context, date types.Date) (*types.RateTable, error) {
	cached, err := e.store.HasTable(ctx, date)
	if err != nil {
		return nil, err
	}

	if cached {
		return e.store.GetTable(ctx, date)
	}

	now := e.now()
	today := types.DateOf(now, e.location)

	if date > today || daysBetween(date, today) > e.maxLookback {
		return nil, fmt.Errorf(
			"%w: %s is not within %d days before %s",
			types.ErrDateOutOfRange,
			date,
			e.maxLookback,
			today,
		)
	}

	if date == today {
		e.mu.Lock()

		if now.Sub(e.lastAttempt) <= e.cooldown {
			e.mu.Unlock()

			return nil, fmt.Errorf("%w: %s, cooldown active", types.ErrRemoteUnavailable, date)
		}

		e.lastAttempt = now
		e.mu.Unlock()
	}

	return e.store.GetTable(ctx, date)
}

// CachedDates lists the dates of the cached tables, newest first
func (e *Engine) CachedDates(ctx context.Context) ([]types.Date, error) {
	return e.store.ListDates(ctx)
}

// ApplyRate adjusts a converted value by the given percentage (fees, card surcharges)
func ApplyRate(value, ratePercent float64) float64 {
	return value * ((100 + ratePercent) / 100)
}

// convert routes the amount through the table's reference currency
func convert(table *types.RateTable, origin, target types.Currency, amount float64) (float64, error) {
	originEntry, ok := table.Entry(origin)
	if !ok {
		return 0, &types.UnknownCurrencyError{Currency: origin}
	}

	targetEntry, ok := table.Entry(target)
	if !ok {
		return 0, &types.UnknownCurrencyError{Currency: target}
	}

	if originEntry.OriginRate == 0 {
		return 0, fmt.Errorf("%w: zero rate for %s on %s", types.ErrInvalidRate, origin, table.Date)
	}

	value := (amount / originEntry.OriginRate) * targetEntry.TargetRate
	if !IsFinite(value) {
		return 0, fmt.Errorf("%w: %g %s to %s", types.ErrValueOutOfRange, amount, origin, target)
	}

	return value, nil
}

// IsFinite reports if v is neither infinite nor NaN
func IsFinite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

func normalize(c types.Currency) types.Currency {
	return types.Currency(strings.ToUpper(strings.TrimSpace(c.String())))
}

func daysBetween(from, to types.Date) int {
	return int(to.Time().Sub(from.Time()).Hours() / 24)
}
