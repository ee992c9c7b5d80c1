package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/hrygo/signalwatch/store"
)

func (d *DB) CreateWatchlist(ctx context.Context, create *store.Watchlist) (*store.Watchlist, error) {
	if create.Terms == nil {
		create.Terms = []string{}
	}

	fields := []string{"id", "name", "terms"}
	args := []any{create.ID, create.Name, pq.Array(create.Terms)}
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

	create.EventsCount = 0
	return create, nil
}

func (d *DB) ListWatchlists(ctx context.Context, find *store.FindWatchlist) ([]*store.Watchlist, error) {
	if find == nil {
		find = &store.FindWatchlist{}
	}

	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "w.id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT
			w.id, w.name, w.terms, w.created_ts, w.updated_ts,
			(SELECT COUNT(*) FROM event e WHERE e.watchlist_id = w.id) AS events_count
		FROM watchlist w
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY w.created_ts DESC, w.id DESC`
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
		var terms pq.StringArray
		if err := rows.Scan(&w.ID, &w.Name, &terms, &w.CreatedTs, &w.UpdatedTs, &w.EventsCount); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist: %w", err)
		}
		w.Terms = []string(terms)
		if w.Terms == nil {
			w.Terms = []string{}
		}
		list = append(list, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate watchlists: %w", err)
	}

	return list, nil
}
