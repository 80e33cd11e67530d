package types

import (
	"errors"
	"fmt"
)

var (
	// ErrRemoteUnavailable is returned when the rate source has no usable table for a date
	ErrRemoteUnavailable = errors.New("rate table unavailable")

	// ErrNoTableAvailable is returned when no table could be found within the lookback window
	ErrNoTableAvailable = errors.New("no rate table available")

	// ErrDateOutOfRange is returned for uncached dates outside the lookback window
	ErrDateOutOfRange = errors.New("date outside the lookback window")

	// ErrValueOutOfRange is returned when a conversion result is not a finite number
	ErrValueOutOfRange = errors.New("converted value out of range")

	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidCurrency = errors.New("invalid currency")
	ErrInvalidRate     = errors.New("invalid rate")
)

// ParseError is returned when a table was served but could not be parsed
type ParseError struct {
	Err  error
	Date Date
	Row  int // 1-based, 0 if not row specific
}

func (e *ParseError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("unable to parse rate table %s: %s", e.Date, e.Err)
	}

	return fmt.Sprintf("unable to parse rate table %s (row %d): %s", e.Date, e.Row, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// UnknownCurrencyError is returned when a currency is absent from the rate table
type UnknownCurrencyError struct {
	Currency Currency
}

func (e *UnknownCurrencyError) Error() string {
	return fmt.Sprintf("unknown currency %s", e.Currency)
}
