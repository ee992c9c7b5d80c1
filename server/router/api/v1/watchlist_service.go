package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/signalwatch/server/service/watchlist"
	"github.com/hrygo/signalwatch/store"
)

// Watchlist is the API representation of a watchlist.
type Watchlist struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Terms       []string `json:"terms"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
	EventsCount int32    `json:"eventsCount"`
}

// CreateWatchlistPayload is the body of POST /api/v1/watchlists.
type CreateWatchlistPayload struct {
	Name  string   `json:"name"`
	Terms []string `json:"terms"`
}

// ListWatchlists returns every watchlist, newest first.
// GET /api/v1/watchlists
func (s *APIV1Service) ListWatchlists(c echo.Context) error {
	list, err := s.Watchlists.ListWatchlists(c.Request().Context())
	if err != nil {
		return err
	}

	watchlists := make([]*Watchlist, 0, len(list))
	for _, w := range list {
		watchlists = append(watchlists, convertWatchlistFromStore(w))
	}
	return respondOK(c, watchlists)
}

// CreateWatchlist creates a watchlist.
// POST /api/v1/watchlists
func (s *APIV1Service) CreateWatchlist(c echo.Context) error {
	var payload CreateWatchlistPayload
	if err := c.Bind(&payload); err != nil {
		return err
	}

	created, err := s.Watchlists.CreateWatchlist(c.Request().Context(), &watchlist.CreateWatchlistRequest{
		Name:  payload.Name,
		Terms: payload.Terms,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, convertWatchlistFromStore(created))
}

// GetWatchlist returns one watchlist.
// GET /api/v1/watchlists/:id
func (s *APIV1Service) GetWatchlist(c echo.Context) error {
	w, err := s.Watchlists.GetWatchlist(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return respondOK(c, convertWatchlistFromStore(w))
}

func convertWatchlistFromStore(w *store.Watchlist) *Watchlist {
	terms := w.Terms
	if terms == nil {
		terms = []string{}
	}
	return &Watchlist{
		ID:          w.ID,
		Name:        w.Name,
		Terms:       terms,
		CreatedAt:   formatTs(w.CreatedTs),
		UpdatedAt:   formatTs(w.UpdatedTs),
		EventsCount: w.EventsCount,
	}
}

func formatTs(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}
