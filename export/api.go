package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/ttab/elephant-export/csvexport"
	"github.com/ttab/elephant-export/scroll"
	"github.com/ttab/elephantine"
	"github.com/twitchtv/twirp"
)

// Source names.
const (
	SourcePostgres   = "postgres"
	SourceOpenSearch = "opensearch"
)

type APIOptions struct {
	Logger  *slog.Logger
	Metrics *Metrics
	// Sources by name, must contain the default source.
	Sources       map[string]Source
	DefaultSource string
	// AuthInfoParser is optional, anonymous access is allowed without
	// it.
	AuthInfoParser *elephantine.AuthInfoParser
	Format         csvexport.FormatOptions
}

// API serves CSV exports.
type API struct {
	logger        *slog.Logger
	metrics       *Metrics
	sources       map[string]Source
	defaultSource string
	auth          *elephantine.AuthInfoParser
	format        csvexport.FormatOptions
}

func NewAPI(opts APIOptions) (*API, error) {
	if opts.DefaultSource == "" {
		opts.DefaultSource = SourcePostgres
	}

	if opts.Metrics == nil {
		m, err := NewMetrics(prometheus.NewRegistry())
		if err != nil {
			return nil, fmt.Errorf("set up private metrics: %w", err)
		}

		opts.Metrics = m
	}

	_, ok := opts.Sources[opts.DefaultSource]
	if !ok {
		return nil, fmt.Errorf("the default source %q has not been configured",
			opts.DefaultSource)
	}

	return &API{
		logger:        opts.Logger,
		metrics:       opts.Metrics,
		sources:       opts.Sources,
		defaultSource: opts.DefaultSource,
		auth:          opts.AuthInfoParser,
		format:        opts.Format,
	}, nil
}

func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/csv/people", http.HandlerFunc(a.peopleHandler))
}

func (a *API) peopleHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.logger.With(elephantine.LogKeyRoute, r.URL.Path)

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(logger, w, r, twirp.NewError(twirp.BadRoute,
			"only GET is supported"))

		return
	}

	_, err := requireScope(a.auth, r, ScopeExportRead)
	if err != nil {
		writeError(logger, w, r, err)

		return
	}

	sourceName, req, err := a.parsePeopleRequest(r)
	if err != nil {
		writeError(logger, w, r, err)

		return
	}

	source, ok := a.sources[sourceName]
	if !ok {
		writeError(logger, w, r, twirp.NotFoundError(
			fmt.Sprintf("unknown source %q", sourceName)))

		return
	}

	start := time.Now()

	stats, err := ExportPeople(ctx, csvexport.NewHTTPSink(w),
		source, req, a.format)

	a.metrics.duration.WithLabelValues(sourceName).Observe(
		time.Since(start).Seconds())
	a.metrics.pages.WithLabelValues(sourceName).Add(float64(stats.Pages))
	a.metrics.rows.WithLabelValues(sourceName).Add(float64(stats.Records))

	if err != nil {
		// The status has already been sent, all we can do is to
		// truncate the response and log the failure.
		a.metrics.requests.WithLabelValues(sourceName, failureLabel(err)).Inc()

		logger.ErrorContext(ctx, "people export failed",
			elephantine.LogKeyError, err,
			"source", sourceName,
			"pages", stats.Pages,
			"rows", stats.Records)

		abortResponse()

		return
	}

	a.metrics.requests.WithLabelValues(sourceName, "ok").Inc()

	logger.DebugContext(ctx, "people export finished",
		"source", sourceName,
		"pages", stats.Pages,
		"rows", stats.Records,
		"duration", time.Since(start))
}

func (a *API) parsePeopleRequest(r *http.Request) (string, PeopleRequest, error) {
	query := r.URL.Query()

	req := PeopleRequest{
		Gender:   query.Get("gender"),
		PageSize: scroll.DefaultPageSize,
	}

	dir, ok := scroll.ParseDirection(query.Get("direction"))
	if !ok {
		return "", req, twirp.InvalidArgumentError("direction",
			"must be asc or desc")
	}

	req.Direction = dir

	if ps := query.Get("page-size"); ps != "" {
		n, err := strconv.Atoi(ps)
		if err != nil {
			return "", req, twirp.InvalidArgumentError("page-size",
				pageSizeRule)
		}

		req.PageSize = n
	}

	err := req.Validate()
	if err != nil {
		return "", req, err
	}

	source := query.Get("source")
	if source == "" {
		source = a.defaultSource
	}

	return source, req, nil
}

func failureLabel(err error) string {
	var (
		confErr      scroll.ConfigurationError
		transportErr *csvexport.TransportError
	)

	switch {
	case errors.As(err, &confErr):
		return "configuration_error"
	case errors.As(err, &transportErr):
		return "transport_error"
	case errors.Is(err, context.Canceled):
		// The request context is cancelled when the client goes away.
		return "transport_error"
	}

	return "source_error"
}

// abortResponse makes the HTTP server close the connection without
// terminating the chunked body, so that the client can tell that the export
// is incomplete.
func abortResponse() {
	panic(http.ErrAbortHandler)
}

func writeError(
	logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error,
) {
	werr := twirp.WriteError(w, err)
	if werr != nil {
		logger.ErrorContext(r.Context(),
			"failed to write error to client",
			elephantine.LogKeyError, werr)
	}
}
