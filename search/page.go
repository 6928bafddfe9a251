package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/ttab/elephant-export/scroll"
	"github.com/ttab/elephantine"
)

// PageQuery fetches pages of an index for a scroll. The identity key of a
// document is its "_id".
type PageQuery[T any] struct {
	Index      string
	OrderField string
	Direction  scroll.Direction
	PageSize   int
	// Filter queries are combined using AND.
	Filter []ElasticQuery
	// OrderValue converts an order key to the value that the order field
	// is compared to, see OrderFormat.
	OrderValue func(key int64) any
	// OrderFormat is the date format of the order value, if any.
	OrderFormat string
	Logger      *slog.Logger
}

// Body builds the search request for a cursor.
func (pq PageQuery[T]) Body(cursor scroll.Cursor) SearchRequest {
	filter := append([]ElasticQuery{}, pq.Filter...)

	if cursor.LastOrderKey != nil {
		r := RangeFilter{
			Format: pq.OrderFormat,
		}

		value := pq.OrderValue(*cursor.LastOrderKey)

		if pq.Direction == scroll.Descending {
			r.LTE = value
		} else {
			r.GTE = value
		}

		filter = append(filter, ElasticQuery{
			Range: map[string]RangeFilter{
				pq.OrderField: r,
			},
		})
	}

	query := BooleanQuery{
		Filter: filter,
	}

	if len(cursor.Exclude) > 0 {
		query.MustNot = []ElasticQuery{
			{IDs: &IDsQuery{Values: cursor.Exclude}},
		}
	}

	return SearchRequest{
		Query: ElasticQuery{Bool: &query},
		Sort: []map[string]SortSpec{
			{pq.OrderField: {Order: pq.Direction.String()}},
		},
		Size: pq.PageSize,
	}
}

// Fetch a page of hits.
func (pq PageQuery[T]) Fetch(
	ctx context.Context, client *opensearch.Client, cursor scroll.Cursor,
) ([]Hit[T], error) {
	var body bytes.Buffer

	err := json.NewEncoder(&body).Encode(pq.Body(cursor))
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	res, err := client.Search(
		client.Search.WithIndex(pq.Index),
		client.Search.WithContext(ctx),
		client.Search.WithBody(&body))
	if err != nil {
		return nil, fmt.Errorf("perform search request: %w", err)
	}

	logger := pq.Logger
	if logger == nil {
		logger = slog.Default()
	}

	defer elephantine.SafeClose(logger, "search response", res.Body)

	err = ElasticErrorFromResponse(res)
	if err != nil {
		return nil, err
	}

	var result SearchResponseBody[T]

	err = json.NewDecoder(res.Body).Decode(&result)
	if err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	return result.Hits.Hits, nil
}

// Fetcher binds the query to a client.
func (pq PageQuery[T]) Fetcher(client *opensearch.Client) scroll.FetchFunc[Hit[T]] {
	return func(ctx context.Context, cursor scroll.Cursor) ([]Hit[T], error) {
		return pq.Fetch(ctx, client, cursor)
	}
}

// HitIdentity returns the document ID of a hit.
func HitIdentity[T any](hit Hit[T]) (string, bool) {
	return hit.ID, hit.ID != ""
}
