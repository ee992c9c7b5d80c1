package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Watchlist model related methods.
	CreateWatchlist(ctx context.Context, create *Watchlist) (*Watchlist, error)
	ListWatchlists(ctx context.Context, find *FindWatchlist) ([]*Watchlist, error)

	// Event model related methods.
	CreateEvent(ctx context.Context, create *Event) (*Event, error)
	ListEvents(ctx context.Context, find *FindEvent) ([]*Event, error)
}
