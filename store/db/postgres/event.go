package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/signalwatch/store"
)

func (d *DB) CreateEvent(ctx context.Context, create *store.Event) (*store.Event, error) {
	fields := []string{"id", "type", "description", "severity", "ai_summary", "ai_suggestion", "watchlist_id"}
	args := []any{
		create.ID, create.Type, create.Description, string(create.Severity),
		create.AISummary, create.AISuggestion, create.WatchlistID,
	}
	if create.CreatedTs != 0 {
		fields, args = append(fields, "created_ts"), append(args, create.CreatedTs)
	}

	stmt := `INSERT INTO event (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING created_ts`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.CreatedTs); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	return create, nil
}

func (d *DB) ListEvents(ctx context.Context, find *store.FindEvent) ([]*store.Event, error) {
	if find == nil {
		find = &store.FindEvent{}
	}

	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.WatchlistID; v != nil {
		where, args = append(where, "watchlist_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Severity; v != nil {
		where, args = append(where, "severity = "+placeholder(len(args)+1)), append(args, string(*v))
	}

	query := `
		SELECT id, type, description, severity, ai_summary, ai_suggestion, watchlist_id, created_ts
		FROM event
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC, id DESC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Event, 0)
	for rows.Next() {
		var e store.Event
		if err := rows.Scan(
			&e.ID,
			&e.Type,
			&e.Description,
			&e.Severity,
			&e.AISummary,
			&e.AISuggestion,
			&e.WatchlistID,
			&e.CreatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		list = append(list, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return list, nil
}
