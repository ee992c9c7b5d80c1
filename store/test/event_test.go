package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/signalwatch/store"
)

func TestEventStore(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	w, err := ts.CreateWatchlist(ctx, &store.Watchlist{ID: "wl-1", Name: "Infra", Terms: []string{"vpn"}})
	require.NoError(t, err)

	created, err := ts.CreateEvent(ctx, &store.Event{
		ID:           "ev-1",
		Type:         "intrusion",
		Description:  "Ransomware note found on file server",
		Severity:     store.SeverityCritical,
		AISummary:    "Event detected: Ransomware note found on file server",
		AISuggestion: "Isolate affected systems immediately",
		WatchlistID:  w.ID,
	})
	require.NoError(t, err)
	require.NotZero(t, created.CreatedTs)

	got, err := ts.GetEvent(ctx, &store.FindEvent{ID: &created.ID})
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, *created, *got)

	missing := "nope"
	got, err = ts.GetEvent(ctx, &store.FindEvent{ID: &missing})
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestEventStoreUnknownWatchlist(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	_, err := ts.CreateEvent(ctx, &store.Event{
		ID:          "ev-orphan",
		Type:        "login",
		Description: "orphan",
		Severity:    store.SeverityLow,
		WatchlistID: "missing",
	})
	require.Error(t, err)
}

func TestEventStoreFilters(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	w1, err := ts.CreateWatchlist(ctx, &store.Watchlist{ID: "w1", Name: "One"})
	require.NoError(t, err)
	w2, err := ts.CreateWatchlist(ctx, &store.Watchlist{ID: "w2", Name: "Two"})
	require.NoError(t, err)

	events := []*store.Event{
		{ID: "e1", Type: "t", Description: "d1", Severity: store.SeverityLow, WatchlistID: w1.ID, CreatedTs: 1700000001},
		{ID: "e2", Type: "t", Description: "d2", Severity: store.SeverityHigh, WatchlistID: w1.ID, CreatedTs: 1700000002},
		{ID: "e3", Type: "t", Description: "d3", Severity: store.SeverityHigh, WatchlistID: w2.ID, CreatedTs: 1700000003},
	}
	for _, e := range events {
		_, err := ts.CreateEvent(ctx, e)
		require.NoError(t, err)
	}

	all, err := ts.ListEvents(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "e3", all[0].ID)
	require.Equal(t, "e1", all[2].ID)

	byWatchlist, err := ts.ListEvents(ctx, &store.FindEvent{WatchlistID: &w1.ID})
	require.NoError(t, err)
	require.Len(t, byWatchlist, 2)

	high := store.SeverityHigh
	bySeverity, err := ts.ListEvents(ctx, &store.FindEvent{Severity: &high})
	require.NoError(t, err)
	require.Len(t, bySeverity, 2)

	both, err := ts.ListEvents(ctx, &store.FindEvent{WatchlistID: &w1.ID, Severity: &high})
	require.NoError(t, err)
	require.Len(t, both, 1)
	require.Equal(t, "e2", both[0].ID)

	limit := 1
	newest, err := ts.ListEvents(ctx, &store.FindEvent{Limit: &limit})
	require.NoError(t, err)
	require.Len(t, newest, 1)
	require.Equal(t, "e3", newest[0].ID)
}
