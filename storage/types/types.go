package types

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the layout of the date key used by the rate source
const DateLayout = "20060102"

type Currency string

func (c Currency) String() string {
	return string(c)
}

// ParseCurrency normalizes the given 3-letter currency code to uppercase
func ParseCurrency(v string) (Currency, error) {
	s := strings.ToUpper(strings.TrimSpace(v))
	if len(s) != 3 {
		return "", fmt.Errorf("%w: %q (must be 3 letters)", ErrInvalidCurrency, v)
	}

	for i := 0; i < 3; i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return "", fmt.Errorf("%w: %q (must be A-Z)", ErrInvalidCurrency, v)
		}
	}

	return Currency(s), nil
}

// Date is a calendar day in YYYYMMDD form
type Date string

// DateOf returns the calendar day of t in the given location
func DateOf(t time.Time, loc *time.Location) Date {
	if loc != nil {
		t = t.In(loc)
	}

	return Date(t.Format(DateLayout))
}

// ParseDate validates the given YYYYMMDD date
func ParseDate(v string) (Date, error) {
	s := strings.TrimSpace(v)
	if len(s) != len(DateLayout) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, v)
	}

	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, v)
	}

	return Date(s), nil
}

func (d Date) String() string {
	return string(d)
}

// Time returns UTC midnight of the date
func (d Date) Time() time.Time {
	t, _ := time.Parse(DateLayout, string(d)) //nolint:errcheck // dates are validated on creation

	return t
}

// AddDays returns the date n calendar days away
func (d Date) AddDays(n int) Date {
	return Date(d.Time().AddDate(0, 0, n).Format(DateLayout))
}

// Prev returns the previous calendar day
func (d Date) Prev() Date {
	return d.AddDays(-1)
}

// RateEntry is a single currency row of the published table.
// Conversions are routed through the reference currency of the table:
// the amount is divided by the origin's OriginRate and
// multiplied by the target's TargetRate
type RateEntry struct {
	OriginRate float64 `json:"origin_rate"`
	TargetRate float64 `json:"target_rate"`
}

// RateTable holds all rates published for a single day
type RateTable struct {
	Rates map[Currency]RateEntry `json:"rates"`
	Date  Date                   `json:"date"`
}

// Entry returns the rate entry for the given currency, if any
func (t *RateTable) Entry(c Currency) (RateEntry, bool) {
	e, ok := t.Rates[c]

	return e, ok
}

// Currencies returns the currencies present in the table, in no particular order
func (t *RateTable) Currencies() []Currency {
	out := make([]Currency, 0, len(t.Rates))
	for c := range t.Rates {
		out = append(out, c)
	}

	return out
}

// Conversion is the outcome of a single conversion
type Conversion struct {
	Date   Date     `json:"date"`
	Origin Currency `json:"origin"`
	Target Currency `json:"target"`
	Amount float64  `json:"amount"`
	Value  float64  `json:"value"`
}
