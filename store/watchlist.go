package store

import "context"

// Watchlist is a named set of search terms that events are filed against.
type Watchlist struct {
	ID        string
	Name      string
	Terms     []string
	CreatedTs int64
	UpdatedTs int64

	// EventsCount is computed on read.
	EventsCount int32
}

// FindWatchlist is the find condition for watchlist.
type FindWatchlist struct {
	ID *string

	Limit  *int
	Offset *int
}

func (s *Store) CreateWatchlist(ctx context.Context, create *Watchlist) (*Watchlist, error) {
	return s.driver.CreateWatchlist(ctx, create)
}

func (s *Store) ListWatchlists(ctx context.Context, find *FindWatchlist) ([]*Watchlist, error) {
	return s.driver.ListWatchlists(ctx, find)
}

// GetWatchlist returns the first watchlist matching find, or nil if there is none.
func (s *Store) GetWatchlist(ctx context.Context, find *FindWatchlist) (*Watchlist, error) {
	list, err := s.ListWatchlists(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}
