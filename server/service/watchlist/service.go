// Package watchlist provides watchlist management backed by the relational
// store, with cache-aside reads through the process read cache.
//
// Every successful mutation drops the whole "watchlist:" key family before
// returning, then seeds the cache with the record it just wrote.
package watchlist

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/signalwatch/internal/observability"
	apierrors "github.com/hrygo/signalwatch/server/internal/errors"
	"github.com/hrygo/signalwatch/store"
	"github.com/hrygo/signalwatch/store/cache"
)

// Namespace is the cache key family of watchlist queries.
const Namespace = "watchlist"

// MaxNameLength is the longest accepted watchlist name, in characters.
const MaxNameLength = 200

// ErrWatchlistNotFound is returned when no watchlist has the requested id.
var ErrWatchlistNotFound = apierrors.NotFound("watchlist not found")

// Service defines watchlist operations.
type Service interface {
	// CreateWatchlist validates and stores a new watchlist.
	CreateWatchlist(ctx context.Context, create *CreateWatchlistRequest) (*store.Watchlist, error)
	// ListWatchlists returns every watchlist, newest first.
	ListWatchlists(ctx context.Context) ([]*store.Watchlist, error)
	// GetWatchlist returns one watchlist or ErrWatchlistNotFound.
	GetWatchlist(ctx context.Context, id string) (*store.Watchlist, error)
}

// CreateWatchlistRequest represents the request to create a watchlist.
type CreateWatchlistRequest struct {
	Name  string
	Terms []string
}

// Store is the interface for store operations needed by the watchlist service.
type Store interface {
	CreateWatchlist(ctx context.Context, create *store.Watchlist) (*store.Watchlist, error)
	ListWatchlists(ctx context.Context, find *store.FindWatchlist) ([]*store.Watchlist, error)
	GetWatchlist(ctx context.Context, find *store.FindWatchlist) (*store.Watchlist, error)
}

type service struct {
	store Store
	cache cache.Store
	ttl   time.Duration
}

// NewService creates a new watchlist service. A non-positive ttl uses the cache default.
func NewService(store Store, cacheStore cache.Store, ttl time.Duration) Service {
	if cacheStore == nil {
		cacheStore = cache.NewNop()
	}
	return &service{store: store, cache: cacheStore, ttl: ttl}
}

func (s *service) CreateWatchlist(ctx context.Context, create *CreateWatchlistRequest) (*store.Watchlist, error) {
	name, terms, err := validate(create)
	if err != nil {
		return nil, err
	}

	logger := observability.Logger(ctx)
	logger.Info("creating watchlist", slog.String("name", name), slog.Int("terms_count", len(terms)))

	watchlist, err := s.store.CreateWatchlist(ctx, &store.Watchlist{
		ID:    shortuuid.New(),
		Name:  name,
		Terms: terms,
	})
	if err != nil {
		logger.Error("failed to create watchlist", slog.String("error", err.Error()))
		return nil, errors.Wrap(err, "failed to create watchlist")
	}

	s.cache.DeleteByPrefix(cache.NamespacePrefix(Namespace))
	s.cache.Set(cache.BuildKey(Namespace, cache.ShapeUnique, watchlist.ID), watchlist, s.ttl)

	logger.Info("watchlist created", slog.String("watchlist_id", watchlist.ID))
	return watchlist, nil
}

func (s *service) ListWatchlists(ctx context.Context) ([]*store.Watchlist, error) {
	key := cache.BuildKey(Namespace, cache.ShapeList)
	if list, ok := cache.Get[[]*store.Watchlist](s.cache, key); ok {
		observability.Logger(ctx).Debug("cache hit", slog.String(observability.LogFieldCacheKey, key))
		return list, nil
	}

	list, err := s.store.ListWatchlists(ctx, &store.FindWatchlist{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list watchlists")
	}
	s.cache.Set(key, list, s.ttl)
	return list, nil
}

func (s *service) GetWatchlist(ctx context.Context, id string) (*store.Watchlist, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apierrors.InvalidArgument("watchlist id is required")
	}

	key := cache.BuildKey(Namespace, cache.ShapeUnique, id)
	if watchlist, ok := cache.Get[*store.Watchlist](s.cache, key); ok {
		observability.Logger(ctx).Debug("cache hit", slog.String(observability.LogFieldCacheKey, key))
		return watchlist, nil
	}

	watchlist, err := s.store.GetWatchlist(ctx, &store.FindWatchlist{ID: &id})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get watchlist %s", id)
	}
	if watchlist == nil {
		return nil, ErrWatchlistNotFound
	}
	s.cache.Set(key, watchlist, s.ttl)
	return watchlist, nil
}

// validate normalises the request: the name is trimmed, terms are trimmed,
// empty terms are dropped and duplicates removed keeping the first occurrence.
func validate(create *CreateWatchlistRequest) (string, []string, error) {
	if create == nil {
		return "", nil, apierrors.InvalidArgument("request body is required")
	}

	name := strings.TrimSpace(create.Name)
	if name == "" {
		return "", nil, apierrors.InvalidArgument("name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", nil, apierrors.InvalidArgumentf("name must be at most %d characters", MaxNameLength)
	}

	terms := make([]string, 0, len(create.Terms))
	seen := make(map[string]struct{}, len(create.Terms))
	for _, term := range create.Terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}
	return name, terms, nil
}
