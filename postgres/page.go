package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/ttab/elephant-export/scroll"
)

// Condition is an equality condition that is part of a base filter.
type Condition struct {
	Column string
	Value  any
}

func Eq(column string, value any) Condition {
	return Condition{
		Column: column,
		Value:  value,
	}
}

// PageQuery fetches pages of a table for a scroll.
type PageQuery[T any] struct {
	Table          string
	Columns        []string
	OrderColumn    string
	IdentityColumn string
	Direction      scroll.Direction
	PageSize       int
	// Filter conditions are combined using AND.
	Filter []Condition
	// OrderValue converts an order key to the value that the order
	// column is compared to. It must be the exact inverse of the key
	// function used for the scroll.
	OrderValue func(key int64) any
	Scan       pgx.RowToFunc[T]
}

// SQL builds the page query for a cursor.
func (pq PageQuery[T]) SQL(cursor scroll.Cursor) (string, pgx.NamedArgs) {
	var (
		where []string
		args  = pgx.NamedArgs{}
	)

	for i, cond := range pq.Filter {
		name := fmt.Sprintf("f%d", i)

		where = append(where, fmt.Sprintf("%s = @%s",
			quoteIdent(cond.Column), name))
		args[name] = cond.Value
	}

	order := quoteIdent(pq.OrderColumn)

	if cursor.LastOrderKey != nil {
		op := ">="
		if pq.Direction == scroll.Descending {
			op = "<="
		}

		where = append(where, fmt.Sprintf("%s %s @after", order, op))
		args["after"] = pq.OrderValue(*cursor.LastOrderKey)
	}

	if len(cursor.Exclude) > 0 {
		where = append(where, fmt.Sprintf("%s <> ALL(@exclude)",
			quoteIdent(pq.IdentityColumn)))
		args["exclude"] = cursor.Exclude
	}

	cols := make([]string, len(pq.Columns))

	for i := range pq.Columns {
		cols[i] = quoteIdent(pq.Columns[i])
	}

	var q strings.Builder

	q.WriteString("SELECT ")
	q.WriteString(strings.Join(cols, ", "))
	q.WriteString(" FROM ")
	q.WriteString(quoteIdent(pq.Table))

	if len(where) > 0 {
		q.WriteString(" WHERE ")
		q.WriteString(strings.Join(where, " AND "))
	}

	direction := "ASC"
	if pq.Direction == scroll.Descending {
		direction = "DESC"
	}

	fmt.Fprintf(&q, " ORDER BY %s %s LIMIT @limit", order, direction)

	args["limit"] = pq.PageSize

	return q.String(), args
}

// Fetch a page of items.
func (pq PageQuery[T]) Fetch(
	ctx context.Context, db DBTX, cursor scroll.Cursor,
) ([]T, error) {
	sql, args := pq.SQL(cursor)

	rows, err := db.Query(ctx, sql, args)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", pq.Table, err)
	}

	items, err := pgx.CollectRows(rows, pq.Scan)
	if err != nil {
		return nil, fmt.Errorf("read %s rows: %w", pq.Table, err)
	}

	return items, nil
}

// Fetcher binds the query to a database.
func (pq PageQuery[T]) Fetcher(db DBTX) scroll.FetchFunc[T] {
	return func(ctx context.Context, cursor scroll.Cursor) ([]T, error) {
		return pq.Fetch(ctx, db, cursor)
	}
}

// quoteIdent quotes a possibly schema qualified identifier.
func quoteIdent(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}
