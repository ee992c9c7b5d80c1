// Package event provides event ingestion and querying. Events are enriched
// with a severity and triage text before they are stored, and reads go
// through the process read cache.
package event

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/signalwatch/internal/observability"
	"github.com/hrygo/signalwatch/plugin/ai"
	"github.com/hrygo/signalwatch/plugin/filter"
	apierrors "github.com/hrygo/signalwatch/server/internal/errors"
	"github.com/hrygo/signalwatch/server/service/watchlist"
	"github.com/hrygo/signalwatch/store"
	"github.com/hrygo/signalwatch/store/cache"
)

// Namespace is the cache key family of event queries.
const Namespace = "event"

const (
	MaxTypeLength        = 100
	MaxDescriptionLength = 5000
)

// ErrEventNotFound is returned when no event has the requested id.
var ErrEventNotFound = apierrors.NotFound("event not found")

// Service defines event operations.
type Service interface {
	// CreateEvent enriches and stores a new event for an existing watchlist.
	CreateEvent(ctx context.Context, create *CreateEventRequest) (*store.Event, error)
	// ListEvents returns the events matching filter, newest first.
	ListEvents(ctx context.Context, filter *EventFilter) ([]*store.Event, error)
	// GetEvent returns one event or ErrEventNotFound.
	GetEvent(ctx context.Context, id string) (*store.Event, error)
}

// CreateEventRequest represents the request to create an event.
type CreateEventRequest struct {
	Type        string
	Description string
	WatchlistID string
}

// EventFilter narrows ListEvents. Zero values mean "any".
type EventFilter struct {
	WatchlistID string
	Severity    string
	// Filter is a CEL expression, see package filter.
	Filter string
	Limit  int
}

// Store is the interface for store operations needed by the event service.
type Store interface {
	CreateEvent(ctx context.Context, create *store.Event) (*store.Event, error)
	ListEvents(ctx context.Context, find *store.FindEvent) ([]*store.Event, error)
	GetEvent(ctx context.Context, find *store.FindEvent) (*store.Event, error)
}

type service struct {
	store      Store
	watchlists watchlist.Service
	enricher   ai.Enricher
	cache      cache.Store
	ttl        time.Duration
}

// NewService creates a new event service. A non-positive ttl uses the cache default.
func NewService(store Store, watchlists watchlist.Service, enricher ai.Enricher, cacheStore cache.Store, ttl time.Duration) Service {
	if enricher == nil {
		enricher = ai.RuleEnricher{}
	}
	if cacheStore == nil {
		cacheStore = cache.NewNop()
	}
	return &service{
		store:      store,
		watchlists: watchlists,
		enricher:   enricher,
		cache:      cacheStore,
		ttl:        ttl,
	}
}

func (s *service) CreateEvent(ctx context.Context, create *CreateEventRequest) (*store.Event, error) {
	if err := validate(create); err != nil {
		return nil, err
	}

	logger := observability.Logger(ctx)
	w, err := s.watchlists.GetWatchlist(ctx, create.WatchlistID)
	if err != nil {
		return nil, err
	}

	enrichment := s.enricher.Enrich(ctx, create.Description, w.Terms)
	event, err := s.store.CreateEvent(ctx, &store.Event{
		ID:           shortuuid.New(),
		Type:         create.Type,
		Description:  create.Description,
		Severity:     enrichment.Severity,
		AISummary:    enrichment.Summary,
		AISuggestion: enrichment.Suggestion,
		WatchlistID:  w.ID,
	})
	if err != nil {
		logger.Error("failed to create event", slog.String("watchlist_id", w.ID), slog.String("error", err.Error()))
		return nil, errors.Wrap(err, "failed to create event")
	}

	// The watchlist's events count changed as well.
	s.cache.DeleteByPrefix(cache.NamespacePrefix(Namespace))
	s.cache.DeleteByPrefix(cache.NamespacePrefix(watchlist.Namespace))
	s.cache.Set(cache.BuildKey(Namespace, cache.ShapeUnique, event.ID), event, s.ttl)

	logger.Info("event created",
		slog.String("event_id", event.ID),
		slog.String("watchlist_id", event.WatchlistID),
		slog.String("severity", string(event.Severity)))
	return event, nil
}

func (s *service) ListEvents(ctx context.Context, find *EventFilter) ([]*store.Event, error) {
	if find == nil {
		find = &EventFilter{}
	}

	watchlistID := strings.TrimSpace(find.WatchlistID)
	if !cache.IsSafeQualifier(watchlistID) {
		return nil, apierrors.InvalidArgumentf("invalid watchListId %q", watchlistID)
	}
	var severity *store.Severity
	if raw := strings.TrimSpace(find.Severity); raw != "" {
		sev, ok := store.ParseSeverity(raw)
		if !ok {
			return nil, apierrors.InvalidArgumentf("invalid severity %q, expected one of LOW, MED, HIGH, CRITICAL", raw)
		}
		severity = &sev
	}
	var program *filter.Program
	if expr := strings.TrimSpace(find.Filter); expr != "" {
		prg, err := filter.Compile(expr)
		if err != nil {
			return nil, apierrors.Wrap(err, apierrors.ErrCodeInvalidArgument, "invalid filter")
		}
		program = prg
	}
	if find.Limit < 0 {
		return nil, apierrors.InvalidArgument("limit must not be negative")
	}

	key := listKey(watchlistID, severity, find.Filter, find.Limit)
	if list, ok := cache.Get[[]*store.Event](s.cache, key); ok {
		observability.Logger(ctx).Debug("cache hit", slog.String(observability.LogFieldCacheKey, key))
		return list, nil
	}

	storeFind := &store.FindEvent{Severity: severity}
	if watchlistID != "" {
		storeFind.WatchlistID = &watchlistID
	}
	// With a CEL filter the limit applies to the filtered list.
	if find.Limit > 0 && program == nil {
		storeFind.Limit = &find.Limit
	}

	list, err := s.store.ListEvents(ctx, storeFind)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list events")
	}
	if program != nil {
		if list, err = program.Apply(list); err != nil {
			return nil, apierrors.Wrap(err, apierrors.ErrCodeInvalidArgument, "failed to apply filter")
		}
		if find.Limit > 0 && len(list) > find.Limit {
			list = list[:find.Limit]
		}
	}

	s.cache.Set(key, list, s.ttl)
	return list, nil
}

func (s *service) GetEvent(ctx context.Context, id string) (*store.Event, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apierrors.InvalidArgument("event id is required")
	}

	key := cache.BuildKey(Namespace, cache.ShapeUnique, id)
	if event, ok := cache.Get[*store.Event](s.cache, key); ok {
		observability.Logger(ctx).Debug("cache hit", slog.String(observability.LogFieldCacheKey, key))
		return event, nil
	}

	event, err := s.store.GetEvent(ctx, &store.FindEvent{ID: &id})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get event %s", id)
	}
	if event == nil {
		return nil, ErrEventNotFound
	}
	s.cache.Set(key, event, s.ttl)
	return event, nil
}

// listKey tags each qualifier with its name so that dropping an absent one
// cannot make two different queries collide.
func listKey(watchlistID string, severity *store.Severity, expr string, limit int) string {
	qualifiers := make([]string, 0, 4)
	if watchlistID != "" {
		qualifiers = append(qualifiers, "watchlist="+watchlistID)
	}
	if severity != nil {
		qualifiers = append(qualifiers, "severity="+string(*severity))
	}
	if hash := cache.HashQualifier(expr); hash != "" {
		qualifiers = append(qualifiers, "filter="+hash)
	}
	if limit > 0 {
		qualifiers = append(qualifiers, "limit="+strconv.Itoa(limit))
	}
	return cache.BuildKey(Namespace, cache.ShapeList, qualifiers...)
}

func validate(create *CreateEventRequest) error {
	if create == nil {
		return apierrors.InvalidArgument("request body is required")
	}

	create.Type = strings.TrimSpace(create.Type)
	create.Description = strings.TrimSpace(create.Description)
	create.WatchlistID = strings.TrimSpace(create.WatchlistID)

	switch {
	case create.Type == "":
		return apierrors.InvalidArgument("type is required")
	case utf8.RuneCountInString(create.Type) > MaxTypeLength:
		return apierrors.InvalidArgumentf("type must be at most %d characters", MaxTypeLength)
	case create.Description == "":
		return apierrors.InvalidArgument("description is required")
	case utf8.RuneCountInString(create.Description) > MaxDescriptionLength:
		return apierrors.InvalidArgumentf("description must be at most %d characters", MaxDescriptionLength)
	case create.WatchlistID == "":
		return apierrors.InvalidArgument("watchListId is required")
	}
	return nil
}
