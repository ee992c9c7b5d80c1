package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/signalwatch/store"
)

func (d *DB) CreateWatchlist(ctx context.Context, create *store.Watchlist) (*store.Watchlist, error) {
	terms := create.Terms
	if terms == nil {
		terms = []string{}
	}
	termsJSON, err := encodeTerms(terms)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal watchlist terms: %w", err)
	}

	fields := []string{"id", "name", "terms"}
	args := []any{create.ID, create.Name, termsJSON}
	if create.CreatedTs != 0 {
		fields, args = append(fields, "created_ts"), append(args, create.CreatedTs)
	}
	if create.UpdatedTs != 0 {
		fields, args = append(fields, "updated_ts"), append(args, create.UpdatedTs)
	}

	stmt := `INSERT INTO watchlist (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING created_ts, updated_ts`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.CreatedTs, &create.UpdatedTs); err != nil {
		return nil, fmt.Errorf("failed to create watchlist: %w", err)
	}

	create.Terms = terms
	create.EventsCount = 0
	return create, nil
}

func (d *DB) ListWatchlists(ctx context.Context, find *store.FindWatchlist) ([]*store.Watchlist, error) {
	if find == nil {
		find = &store.FindWatchlist{}
	}

	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "watchlist.id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT
			watchlist.id, watchlist.name, watchlist.terms, watchlist.created_ts, watchlist.updated_ts,
			(SELECT COUNT(*) FROM event WHERE event.watchlist_id = watchlist.id) AS events_count
		FROM watchlist
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY watchlist.created_ts DESC, watchlist.rowid DESC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlists: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Watchlist, 0)
	for rows.Next() {
		var w store.Watchlist
		var terms string
		if err := rows.Scan(&w.ID, &w.Name, &terms, &w.CreatedTs, &w.UpdatedTs, &w.EventsCount); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist: %w", err)
		}
		if w.Terms, err = decodeTerms(terms); err != nil {
			return nil, fmt.Errorf("failed to unmarshal terms of watchlist %s: %w", w.ID, err)
		}
		list = append(list, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate watchlists: %w", err)
	}

	return list, nil
}
