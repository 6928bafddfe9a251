package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/opensearch-project/opensearch-go/v2"
)

type bulkAction struct {
	Index *bulkTarget `json:"index,omitempty"`
}

type bulkTarget struct {
	Index string `json:"_index"`
	ID    string `json:"_id"`
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string        `json:"_id"`
		Status int           `json:"status"`
		Error  *ElasticError `json:"error"`
	} `json:"items"`
}

// BulkIndex indexes the documents and refreshes the index so that they are
// searchable when BulkIndex returns.
func BulkIndex[T any](
	ctx context.Context, client *opensearch.Client, index string,
	docs []T, id func(doc T) string,
) error {
	if len(docs) == 0 {
		return nil
	}

	var body bytes.Buffer

	enc := json.NewEncoder(&body)

	for i := range docs {
		err := enc.Encode(bulkAction{
			Index: &bulkTarget{
				Index: index,
				ID:    id(docs[i]),
			},
		})
		if err != nil {
			return fmt.Errorf("marshal bulk action: %w", err)
		}

		err = enc.Encode(docs[i])
		if err != nil {
			return fmt.Errorf("marshal document %d: %w", i, err)
		}
	}

	res, err := client.Bulk(&body,
		client.Bulk.WithContext(ctx),
		client.Bulk.WithRefresh("true"))
	if err != nil {
		return fmt.Errorf("perform bulk request: %w", err)
	}

	defer res.Body.Close()

	err = ElasticErrorFromResponse(res)
	if err != nil {
		return err
	}

	var result bulkResponse

	err = json.NewDecoder(res.Body).Decode(&result)
	if err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}

	if !result.Errors {
		return nil
	}

	var failed []string

	for _, item := range result.Items {
		for _, r := range item {
			if r.Error == nil {
				continue
			}

			failed = append(failed, fmt.Sprintf("%s: %s",
				r.ID, r.Error.Reason))
		}
	}

	return fmt.Errorf("failed to index %d documents: %s",
		len(failed), strings.Join(failed, "; "))
}

// EnsureIndex creates the index with the given mappings unless it already
// exists.
func EnsureIndex(
	ctx context.Context, client *opensearch.Client, index string,
	mappings json.RawMessage,
) error {
	exists := client.Indices.Exists

	res, err := exists([]string{index}, exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check if index exists: %w", err)
	}

	_ = res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("check if index exists: %s", res.Status())
	}

	body, err := json.Marshal(map[string]json.RawMessage{
		"mappings": mappings,
	})
	if err != nil {
		return fmt.Errorf("marshal index settings: %w", err)
	}

	create := client.Indices.Create

	res, err = create(index,
		create.WithContext(ctx),
		create.WithBody(bytes.NewReader(body)))
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	defer res.Body.Close()

	err = ElasticErrorFromResponse(res)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	return nil
}
