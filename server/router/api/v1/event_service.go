package v1

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/feeds"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"

	"github.com/hrygo/signalwatch/server/service/event"
	"github.com/hrygo/signalwatch/store"
)

// FeedSize is the number of events in the RSS feed.
const FeedSize = 50

// Event is the API representation of an event.
type Event struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Description  string `json:"description"`
	Severity     string `json:"severity"`
	AISummary    string `json:"aiSummary"`
	AISuggestion string `json:"aiSuggestion"`
	WatchlistID  string `json:"watchListId"`
	CreatedAt    string `json:"createdAt"`
}

// CreateEventPayload is the body of POST /api/v1/events.
type CreateEventPayload struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	WatchlistID string `json:"watchListId"`
}

// ListEvents returns events, newest first.
// GET /api/v1/events?watchListId=&severity=&filter=
func (s *APIV1Service) ListEvents(c echo.Context) error {
	list, err := s.Events.ListEvents(c.Request().Context(), &event.EventFilter{
		WatchlistID: c.QueryParam("watchListId"),
		Severity:    c.QueryParam("severity"),
		Filter:      c.QueryParam("filter"),
	})
	if err != nil {
		return err
	}

	events := make([]*Event, 0, len(list))
	for _, e := range list {
		events = append(events, convertEventFromStore(e))
	}
	return respondOK(c, events)
}

// CreateEvent stores an enriched event.
// POST /api/v1/events
func (s *APIV1Service) CreateEvent(c echo.Context) error {
	var payload CreateEventPayload
	if err := c.Bind(&payload); err != nil {
		return err
	}

	created, err := s.Events.CreateEvent(c.Request().Context(), &event.CreateEventRequest{
		Type:        payload.Type,
		Description: payload.Description,
		WatchlistID: payload.WatchlistID,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, convertEventFromStore(created))
}

// GetEvent returns one event.
// GET /api/v1/events/:id
func (s *APIV1Service) GetEvent(c echo.Context) error {
	e, err := s.Events.GetEvent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return respondOK(c, convertEventFromStore(e))
}

// EventFeed renders the newest events as RSS 2.0.
// GET /api/v1/events/feed.rss
func (s *APIV1Service) EventFeed(c echo.Context) error {
	list, err := s.Events.ListEvents(c.Request().Context(), &event.EventFilter{
		WatchlistID: c.QueryParam("watchListId"),
		Severity:    c.QueryParam("severity"),
		Limit:       FeedSize,
	})
	if err != nil {
		return err
	}

	baseURL := c.Scheme() + "://" + c.Request().Host + "/api/v1/events"
	feed := &feeds.Feed{
		Title:       "Signal Watcher events",
		Link:        &feeds.Link{Href: baseURL},
		Description: "Newest security events across all watchlists",
		Created:     time.Now().UTC(),
	}
	for _, e := range list {
		content, err := renderFeedContent(e)
		if err != nil {
			return err
		}
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          e.ID,
			Title:       fmt.Sprintf("[%s] %s", e.Severity, e.Type),
			Link:        &feeds.Link{Href: baseURL + "/" + e.ID},
			Description: e.AISummary,
			Content:     content,
			Created:     time.Unix(e.CreatedTs, 0).UTC(),
		})
	}

	rss, err := feed.ToRss()
	if err != nil {
		return errors.Wrap(err, "failed to render RSS feed")
	}
	return c.Blob(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(rss))
}

// renderFeedContent renders the description, which may be markdown, followed by the suggestion.
func renderFeedContent(e *store.Event) (string, error) {
	var buf bytes.Buffer
	source := e.Description + "\n\n**Suggested action:** " + e.AISuggestion
	if err := goldmark.Convert([]byte(source), &buf); err != nil {
		return "", errors.Wrap(err, "failed to render event content")
	}
	return buf.String(), nil
}

func convertEventFromStore(e *store.Event) *Event {
	return &Event{
		ID:           e.ID,
		Type:         e.Type,
		Description:  e.Description,
		Severity:     string(e.Severity),
		AISummary:    e.AISummary,
		AISuggestion: e.AISuggestion,
		WatchlistID:  e.WatchlistID,
		CreatedAt:    formatTs(e.CreatedTs),
	}
}
