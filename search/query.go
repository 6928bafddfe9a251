package search

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

type SearchRequest struct {
	Query          ElasticQuery          `json:"query"`
	Sort           []map[string]SortSpec `json:"sort,omitempty"`
	Size           int                   `json:"size"`
	TrackTotalHits bool                  `json:"track_total_hits"`
}

type SortSpec struct {
	Order string `json:"order"`
}

type ElasticQuery struct {
	Bool  *BooleanQuery          `json:"bool,omitempty"`
	Term  map[string]string      `json:"term,omitempty"`
	IDs   *IDsQuery              `json:"ids,omitempty"`
	Range map[string]RangeFilter `json:"range,omitempty"`
}

type BooleanQuery struct {
	Must    []ElasticQuery `json:"must,omitempty"`
	MustNot []ElasticQuery `json:"must_not,omitempty"`
	Should  []ElasticQuery `json:"should,omitempty"`
	Filter  []ElasticQuery `json:"filter,omitempty"`
}

type IDsQuery struct {
	Values []string `json:"values,omitempty"`
}

type RangeFilter struct {
	GTE    any    `json:"gte,omitempty"`
	LTE    any    `json:"lte,omitempty"`
	Format string `json:"format,omitempty"`
}

// TermQuery creates an exact match query for a field.
func TermQuery(field string, value string) ElasticQuery {
	return ElasticQuery{
		Term: map[string]string{
			field: value,
		},
	}
}

type SearchResponseBody[T any] struct {
	Hits struct {
		Hits []Hit[T] `json:"hits"`
	} `json:"hits"`
}

type Hit[T any] struct {
	ID     string `json:"_id"`
	Index  string `json:"_index"`
	Source T      `json:"_source"`
}

// ElasticErrorResponse is the error response structure of OpenSearch.
//
//	{
//	  "error": {
//	    "type": "index_not_found_exception",
//	    "reason": "no such index [people]"
//	  },
//	  "status": 404
//	}
type ElasticErrorResponse struct {
	ErrorInfo ElasticError `json:"error"`
	Status    int          `json:"status"`
}

func (er ElasticErrorResponse) Error() string {
	return fmt.Sprintf("%s: %s", er.ErrorInfo.Type, er.ErrorInfo.Reason)
}

type ElasticError struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// ElasticErrorFromResponse returns nil if the response isn't an error
// response.
func ElasticErrorFromResponse(res *opensearchapi.Response) error {
	if !res.IsError() {
		return nil
	}

	dec := json.NewDecoder(res.Body)

	var elasticErr ElasticErrorResponse

	err := dec.Decode(&elasticErr)
	if err != nil {
		return errors.Join(
			fmt.Errorf("opensearch responded with: %s", res.Status()),
			fmt.Errorf("decoded error response: %w", err),
		)
	}

	return fmt.Errorf(
		"error response from opensearch: %s: %w", res.Status(), elasticErr)
}
