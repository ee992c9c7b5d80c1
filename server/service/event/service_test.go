package event

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/signalwatch/plugin/ai"
	apierrors "github.com/hrygo/signalwatch/server/internal/errors"
	"github.com/hrygo/signalwatch/server/service/watchlist"
	"github.com/hrygo/signalwatch/store"
	"github.com/hrygo/signalwatch/store/cache"
	storetest "github.com/hrygo/signalwatch/store/test"
)

type countingStore struct {
	*store.Store
	eventLists     atomic.Int32
	eventGets      atomic.Int32
	watchlistLists atomic.Int32
}

func (c *countingStore) ListEvents(ctx context.Context, find *store.FindEvent) ([]*store.Event, error) {
	c.eventLists.Add(1)
	return c.Store.ListEvents(ctx, find)
}

func (c *countingStore) GetEvent(ctx context.Context, find *store.FindEvent) (*store.Event, error) {
	c.eventGets.Add(1)
	return c.Store.GetEvent(ctx, find)
}

func (c *countingStore) ListWatchlists(ctx context.Context, find *store.FindWatchlist) ([]*store.Watchlist, error) {
	c.watchlistLists.Add(1)
	return c.Store.ListWatchlists(ctx, find)
}

// recordingEnricher remembers the terms it was given and delegates to the rules.
type recordingEnricher struct {
	mu    sync.Mutex
	terms [][]string
}

func (r *recordingEnricher) Enrich(ctx context.Context, description string, terms []string) ai.Enrichment {
	r.mu.Lock()
	r.terms = append(r.terms, terms)
	r.mu.Unlock()
	return ai.RuleEnricher{}.Enrich(ctx, description, terms)
}

type fixture struct {
	events     Service
	watchlists watchlist.Service
	store      *countingStore
	enricher   *recordingEnricher
}

func newFixture(t *testing.T, cacheStore cache.Store) *fixture {
	t.Helper()
	ts := &countingStore{Store: storetest.NewTestingStore(context.Background(), t)}
	watchlists := watchlist.NewService(ts, cacheStore, time.Minute)
	enricher := &recordingEnricher{}
	return &fixture{
		events:     NewService(ts, watchlists, enricher, cacheStore, time.Minute),
		watchlists: watchlists,
		store:      ts,
		enricher:   enricher,
	}
}

func (f *fixture) watchlist(t *testing.T, name string, terms ...string) *store.Watchlist {
	t.Helper()
	w, err := f.watchlists.CreateWatchlist(context.Background(), &watchlist.CreateWatchlistRequest{Name: name, Terms: terms})
	require.NoError(t, err)
	return w
}

func eventIDs(list []*store.Event) []string {
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, e.ID)
	}
	return out
}

func TestCreateEvent_Enriches(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, cache.New(cache.Config{}))
	w := f.watchlist(t, "Remote access", "vpn", "citrix")

	created, err := f.events.CreateEvent(ctx, &CreateEventRequest{
		Type:        " login ",
		Description: "Repeated VPN logins from a new country",
		WatchlistID: w.ID,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "login", created.Type)
	assert.Equal(t, w.ID, created.WatchlistID)
	assert.Equal(t, store.SeverityMedium, created.Severity, "watchlist term raises LOW to MED")
	assert.Equal(t, "Event detected: Repeated VPN logins from a new country", created.AISummary)
	assert.NotEmpty(t, created.AISuggestion)
	assert.Equal(t, [][]string{{"vpn", "citrix"}}, f.enricher.terms)

	// Seeded under its unique key.
	got, err := f.events.GetEvent(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
	assert.Equal(t, int32(0), f.store.eventGets.Load())
}

func TestCreateEvent_InvalidatesWatchlists(t *testing.T) {
	ctx := context.Background()
	c := cache.New(cache.Config{})
	f := newFixture(t, c)
	w := f.watchlist(t, "Infra")

	list, err := f.watchlists.ListWatchlists(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int32(0), list[0].EventsCount)

	events, err := f.events.ListEvents(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, events)

	_, err = f.events.CreateEvent(ctx, &CreateEventRequest{Type: "malware", Description: "malware beacon", WatchlistID: w.ID})
	require.NoError(t, err)

	_, ok := c.Get("watchlist:list:")
	assert.False(t, ok)
	_, ok = c.Get("event:list:")
	assert.False(t, ok)

	list, err = f.watchlists.ListWatchlists(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), list[0].EventsCount)
	assert.Equal(t, int32(2), f.store.watchlistLists.Load())

	events, err = f.events.ListEvents(ctx, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, store.SeverityHigh, events[0].Severity)
}

func TestCreateEvent_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, cache.NewNop())
	w := f.watchlist(t, "W")

	_, err := f.events.CreateEvent(ctx, &CreateEventRequest{Type: "t", Description: "d", WatchlistID: "missing"})
	require.ErrorIs(t, err, watchlist.ErrWatchlistNotFound)

	long := string(make([]byte, MaxDescriptionLength+1))
	invalid := map[string]*CreateEventRequest{
		"nil":              nil,
		"no type":          {Description: "d", WatchlistID: w.ID},
		"no description":   {Type: "t", Description: "  ", WatchlistID: w.ID},
		"long description": {Type: "t", Description: "x" + long, WatchlistID: w.ID},
		"no watchlist":     {Type: "t", Description: "d"},
	}
	for name, request := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := f.events.CreateEvent(ctx, request)
			require.Error(t, err)
			assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeInvalidArgument))
		})
	}
	assert.Empty(t, f.enricher.terms)
}

func TestListEvents_Filters(t *testing.T) {
	ctx := context.Background()
	c := cache.New(cache.Config{})
	f := newFixture(t, c)
	w1 := f.watchlist(t, "One")
	w2 := f.watchlist(t, "Two")

	create := func(description, watchlistID string) *store.Event {
		e, err := f.events.CreateEvent(ctx, &CreateEventRequest{Type: "signal", Description: description, WatchlistID: watchlistID})
		require.NoError(t, err)
		return e
	}
	low := create("password changed", w1.ID)
	high := create("phishing mail opened", w1.ID)
	critical := create("ransomware on share", w2.ID)

	all, err := f.events.ListEvents(ctx, &EventFilter{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{low.ID, high.ID, critical.ID}, eventIDs(all))

	byWatchlist, err := f.events.ListEvents(ctx, &EventFilter{WatchlistID: w1.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{low.ID, high.ID}, eventIDs(byWatchlist))

	bySeverity, err := f.events.ListEvents(ctx, &EventFilter{Severity: "high"})
	require.NoError(t, err)
	assert.Equal(t, []string{high.ID}, eventIDs(bySeverity))

	byExpr, err := f.events.ListEvents(ctx, &EventFilter{Filter: `severity in ["HIGH", "CRITICAL"]`})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{high.ID, critical.ID}, eventIDs(byExpr))

	limited, err := f.events.ListEvents(ctx, &EventFilter{Filter: `severity != "LOW"`, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	// Each distinct query has its own entry; repeating one is a hit.
	before := f.store.eventLists.Load()
	_, err = f.events.ListEvents(ctx, &EventFilter{WatchlistID: w1.ID})
	require.NoError(t, err)
	_, err = f.events.ListEvents(ctx, &EventFilter{Filter: ` severity in ["HIGH", "CRITICAL"] `})
	require.NoError(t, err)
	assert.Equal(t, before, f.store.eventLists.Load())

	// Mutations drop every event query.
	assert.Positive(t, c.DeleteByPrefix("event:"))
}

func TestListEvents_InvalidArguments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, cache.New(cache.Config{}))

	for name, find := range map[string]*EventFilter{
		"bad severity": {Severity: "SEVERE"},
		"bad filter":   {Filter: "severity =="},
		"non bool":     {Filter: "created_ts"},
		"bad limit":    {Limit: -1},
		"separator":    {WatchlistID: "w1|severity=HIGH"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.events.ListEvents(ctx, find)
			require.Error(t, err)
			assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeInvalidArgument))
		})
	}
	assert.Equal(t, int32(0), f.store.eventLists.Load())
}

func TestListEvents_WatchlistIDCannotForgeKey(t *testing.T) {
	ctx := context.Background()
	c := cache.New(cache.Config{})
	f := newFixture(t, c)
	w := f.watchlist(t, "Perimeter")

	high, err := f.events.CreateEvent(ctx, &CreateEventRequest{Type: "av", Description: "malware quarantined", WatchlistID: w.ID})
	require.NoError(t, err)
	require.Equal(t, store.SeverityHigh, high.Severity)

	before := c.Size()
	for _, forged := range []string{
		w.ID + "|severity=HIGH",
		w.ID + "|severity=HIGH|limit=50",
		"|filter=" + cache.HashQualifier(`severity == "HIGH"`),
	} {
		_, err := f.events.ListEvents(ctx, &EventFilter{WatchlistID: forged})
		require.Error(t, err, forged)
		assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeInvalidArgument))
	}
	assert.Equal(t, before, c.Size(), "rejected queries cache nothing")

	list, err := f.events.ListEvents(ctx, &EventFilter{WatchlistID: w.ID, Severity: "HIGH"})
	require.NoError(t, err)
	assert.Equal(t, []string{high.ID}, eventIDs(list))
}

func TestGetEvent_NotFound(t *testing.T) {
	ctx := context.Background()
	c := cache.New(cache.Config{})
	f := newFixture(t, c)

	_, err := f.events.GetEvent(ctx, "missing")
	require.ErrorIs(t, err, ErrEventNotFound)
	_, err = f.events.GetEvent(ctx, "missing")
	require.ErrorIs(t, err, ErrEventNotFound)
	assert.Equal(t, int32(2), f.store.eventGets.Load())
	assert.Equal(t, 0, c.Size())
}

func TestListKey(t *testing.T) {
	high := store.SeverityHigh
	assert.Equal(t, "event:list:", listKey("", nil, "", 0))
	assert.Equal(t, "event:list:watchlist=w1|severity=HIGH", listKey("w1", &high, "", 0))
	assert.Equal(t, "event:list:severity=HIGH|limit=50", listKey("", &high, "", 50))
	assert.Equal(t, listKey("", nil, "true", 0), listKey("", nil, " true ", 0))
	assert.NotEqual(t, listKey("w1", nil, "", 0), listKey("", &high, "", 0))
}

func TestService_WithoutCache(t *testing.T) {
	ctx := context.Background()
	cached := newFixture(t, cache.New(cache.Config{}))
	uncached := newFixture(t, cache.NewNop())

	for _, f := range []*fixture{cached, uncached} {
		w := f.watchlist(t, "W", "okta")
		e, err := f.events.CreateEvent(ctx, &CreateEventRequest{Type: "auth", Description: "okta alert", WatchlistID: w.ID})
		require.NoError(t, err)

		for i := 0; i < 2; i++ {
			list, err := f.events.ListEvents(ctx, &EventFilter{WatchlistID: w.ID})
			require.NoError(t, err)
			assert.Equal(t, []string{e.ID}, eventIDs(list))

			got, err := f.events.GetEvent(ctx, e.ID)
			require.NoError(t, err)
			assert.Equal(t, e.Severity, got.Severity)

			watchlists, err := f.watchlists.ListWatchlists(ctx)
			require.NoError(t, err)
			assert.Equal(t, int32(1), watchlists[0].EventsCount)
		}
	}

	assert.Equal(t, int32(1), cached.store.eventLists.Load())
	assert.Equal(t, int32(2), uncached.store.eventLists.Load())
}
