package store

import (
	"context"
	"strings"
)

// Severity is the triage level assigned to an event.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MED"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// ParseSeverity accepts a severity in any letter case.
func ParseSeverity(s string) (Severity, bool) {
	switch sev := Severity(strings.ToUpper(strings.TrimSpace(s))); sev {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return sev, true
	default:
		return "", false
	}
}

// Event is a reported security signal attached to a watchlist.
type Event struct {
	ID           string
	Type         string
	Description  string
	Severity     Severity
	AISummary    string
	AISuggestion string
	WatchlistID  string
	CreatedTs    int64
}

// FindEvent is the find condition for event.
type FindEvent struct {
	ID          *string
	WatchlistID *string
	Severity    *Severity

	Limit  *int
	Offset *int
}

func (s *Store) CreateEvent(ctx context.Context, create *Event) (*Event, error) {
	return s.driver.CreateEvent(ctx, create)
}

func (s *Store) ListEvents(ctx context.Context, find *FindEvent) ([]*Event, error) {
	return s.driver.ListEvents(ctx, find)
}

// GetEvent returns the first event matching find, or nil if there is none.
func (s *Store) GetEvent(ctx context.Context, find *FindEvent) (*Event, error) {
	list, err := s.ListEvents(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}
