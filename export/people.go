package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/ttab/elephant-export/csvexport"
	"github.com/ttab/elephant-export/postgres"
	"github.com/ttab/elephant-export/scroll"
	"github.com/ttab/elephant-export/search"
	"github.com/twitchtv/twirp"
)

// PeopleHeader is the header row of people exports.
var PeopleHeader = []string{"id", "name", "city", "phone", "createdTime"}

// PeopleRequest describes a people export.
type PeopleRequest struct {
	// Gender filters the export, "F", "M" or empty for everyone.
	Gender    string
	Direction scroll.Direction
	PageSize  int
}

// FileName returns the base name of the exported file.
func (pr PeopleRequest) FileName() string {
	switch pr.Gender {
	case "F":
		return "all-female"
	case "M":
		return "all-male"
	}

	return "all-people"
}

var pageSizeRule = fmt.Sprintf("must be a number between 1 and %d",
	scroll.MaxPageSize)

// Validate checks the gender filter and the page size. Failures are twirp
// invalid argument errors.
func (pr PeopleRequest) Validate() error {
	switch pr.Gender {
	case "", "F", "M":
	default:
		return twirp.InvalidArgumentError("gender", "must be F or M")
	}

	if pr.PageSize <= 0 || pr.PageSize > scroll.MaxPageSize {
		return twirp.InvalidArgumentError("page-size", pageSizeRule)
	}

	return nil
}

// Source scrolls through people in creation order.
type Source interface {
	ScrollPeople(
		ctx context.Context, req PeopleRequest,
		handler scroll.PageHandler[postgres.Person],
	) (scroll.Stats, error)
}

var _ Source = &PostgresSource{}

// PostgresSource scrolls the person table.
type PostgresSource struct {
	db postgres.DBTX
}

func NewPostgresSource(db postgres.DBTX) *PostgresSource {
	return &PostgresSource{db: db}
}

func (ps *PostgresSource) ScrollPeople(
	ctx context.Context, req PeopleRequest,
	handler scroll.PageHandler[postgres.Person],
) (scroll.Stats, error) {
	orderKey, err := postgres.PersonOrderFields.Resolve("created")
	if err != nil {
		return scroll.Stats{}, err
	}

	q := postgres.PeopleQuery(req.Gender, req.Direction, req.PageSize)

	return scroll.Scroll(ctx, scroll.Options[postgres.Person]{
		PageSize:    req.PageSize,
		IdentityKey: postgres.PersonIdentity,
		OrderKey:    orderKey,
	}, q.Fetcher(ps.db), handler)
}

var _ Source = &OpenSearchSource{}

// OpenSearchSource scrolls through a people index. The "created" field is
// indexed as a date with millisecond precision, so the order keys are
// truncated to milliseconds.
type OpenSearchSource struct {
	logger *slog.Logger
	client *opensearch.Client
	index  string
}

func NewOpenSearchSource(
	logger *slog.Logger, client *opensearch.Client, index string,
) *OpenSearchSource {
	return &OpenSearchSource{
		logger: logger,
		client: client,
		index:  index,
	}
}

func (oss *OpenSearchSource) ScrollPeople(
	ctx context.Context, req PeopleRequest,
	handler scroll.PageHandler[postgres.Person],
) (scroll.Stats, error) {
	q := search.PageQuery[postgres.Person]{
		Index:      oss.index,
		OrderField: "created",
		Direction:  req.Direction,
		PageSize:   req.PageSize,
		OrderValue: func(key int64) any {
			return key / 1000
		},
		OrderFormat: "epoch_millis",
		Logger:      oss.logger,
	}

	if req.Gender != "" {
		q.Filter = append(q.Filter, search.TermQuery("gender", req.Gender))
	}

	opts := scroll.Options[search.Hit[postgres.Person]]{
		PageSize:    req.PageSize,
		IdentityKey: search.HitIdentity[postgres.Person],
		OrderKey: func(hit search.Hit[postgres.Person]) (int64, error) {
			return scroll.TimeKey(
				hit.Source.Created.Truncate(time.Millisecond),
			), nil
		},
	}

	return scroll.Scroll(ctx, opts, q.Fetcher(oss.client),
		func(ctx context.Context, hits []search.Hit[postgres.Person]) error {
			page := make([]postgres.Person, len(hits))

			for i, h := range hits {
				page[i] = h.Source

				if page[i].ID == "" {
					page[i].ID = h.ID
				}
			}

			return handler(ctx, page)
		})
}

// PersonRow converts a person to a CSV row.
func PersonRow(p postgres.Person) []any {
	return []any{p.ID, p.Name, p.City, p.Phone, p.Created}
}

// ExportPeople streams people from the source to the sink as CSV, one chunk
// per page.
func ExportPeople(
	ctx context.Context,
	sink csvexport.ResponseSink,
	source Source,
	req PeopleRequest,
	format csvexport.FormatOptions,
) (scroll.Stats, error) {
	var stats scroll.Stats

	err := csvexport.StreamCSV(ctx, sink, req.FileName(), PeopleHeader,
		func(ctx context.Context, emit csvexport.EmitFunc) error {
			s, err := source.ScrollPeople(ctx, req,
				func(ctx context.Context, page []postgres.Person) error {
					rows := make([][]any, len(page))

					for i := range page {
						rows[i] = PersonRow(page[i])
					}

					return emit(ctx, rows)
				})

			stats = s

			if err != nil {
				return fmt.Errorf("scroll people: %w", err)
			}

			return nil
		}, format)
	if err != nil {
		return stats, fmt.Errorf("stream people CSV: %w", err)
	}

	return stats, nil
}
