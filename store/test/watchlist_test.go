package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/signalwatch/store"
)

func TestWatchlistStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	created, err := ts.CreateWatchlist(ctx, &store.Watchlist{
		ID:    "wl-1",
		Name:  "Finance",
		Terms: []string{"ransomware", "wire transfer"},
	})
	require.NoError(t, err)
	require.Equal(t, "wl-1", created.ID)
	require.NotZero(t, created.CreatedTs)
	require.Equal(t, created.CreatedTs, created.UpdatedTs)

	got, err := ts.GetWatchlist(ctx, &store.FindWatchlist{ID: &created.ID})
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Finance", got.Name)
	require.Equal(t, []string{"ransomware", "wire transfer"}, got.Terms)
	require.Equal(t, int32(0), got.EventsCount)

	missing := "nope"
	got, err = ts.GetWatchlist(ctx, &store.FindWatchlist{ID: &missing})
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestWatchlistStoreEmptyTerms(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	_, err := ts.CreateWatchlist(ctx, &store.Watchlist{ID: "wl-empty", Name: "Empty"})
	require.NoError(t, err)

	list, err := ts.ListWatchlists(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Terms)
	require.Empty(t, list[0].Terms)
}

func TestWatchlistStoreListOrder(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	for i, id := range []string{"a", "b", "c"} {
		_, err := ts.CreateWatchlist(ctx, &store.Watchlist{
			ID:        id,
			Name:      "watchlist " + id,
			CreatedTs: int64(1700000000 + i),
			UpdatedTs: int64(1700000000 + i),
		})
		require.NoError(t, err)
	}

	list, err := ts.ListWatchlists(ctx, &store.FindWatchlist{})
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "c", list[0].ID)
	require.Equal(t, "b", list[1].ID)
	require.Equal(t, "a", list[2].ID)

	limit, offset := 1, 1
	page, err := ts.ListWatchlists(ctx, &store.FindWatchlist{Limit: &limit, Offset: &offset})
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "b", page[0].ID)
}

func TestWatchlistStoreEventsCount(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	w, err := ts.CreateWatchlist(ctx, &store.Watchlist{ID: "wl-count", Name: "Count"})
	require.NoError(t, err)

	for _, id := range []string{"e1", "e2"} {
		_, err := ts.CreateEvent(ctx, &store.Event{
			ID:          id,
			Type:        "login",
			Description: "failed login",
			Severity:    store.SeverityLow,
			WatchlistID: w.ID,
		})
		require.NoError(t, err)
	}

	got, err := ts.GetWatchlist(ctx, &store.FindWatchlist{ID: &w.ID})
	require.NoError(t, err)
	require.Equal(t, int32(2), got.EventsCount)
}
