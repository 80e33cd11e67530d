package storage

import (
	"context"

	"github.com/sig-0/jcbrates/storage/types"
)

// Storage is an abstraction over the rate table cache
type Storage interface {
	// SaveTable saves the given rate table, keyed by its date
	SaveTable(context.Context, *types.RateTable) error

	// Table fetches the table for the given date.
	// Returns nil if the date is not present
	Table(context.Context, types.Date) (*types.RateTable, error)

	// HasTable checks if a table for the given date is present
	HasTable(context.Context, types.Date) (bool, error)

	// ListDates lists all present dates, newest first
	ListDates(context.Context) ([]types.Date, error)
}
