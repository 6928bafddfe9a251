package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ttab/elephant-export/csvexport"
	"github.com/ttab/elephant-export/search"
	"github.com/ttab/elephantine"
	"golang.org/x/sync/errgroup"
)

type Parameters struct {
	Addr        string
	ProfileAddr string
	Logger      *slog.Logger
	Database    *pgxpool.Pool
	// OpenSearch is optional, the opensearch source is only available if
	// a client is provided.
	OpenSearch      *opensearch.Client
	OpenSearchIndex string
	DefaultSource   string
	Metrics         *Metrics
	AuthInfoParser  *elephantine.AuthInfoParser
	Format          csvexport.FormatOptions
}

func RunExport(ctx context.Context, p Parameters) error {
	logger := p.Logger

	sources := map[string]Source{
		SourcePostgres: NewPostgresSource(p.Database),
	}

	if p.OpenSearch != nil {
		sources[SourceOpenSearch] = NewOpenSearchSource(
			logger.With(elephantine.LogKeyComponent, "opensearch-source"),
			p.OpenSearch, p.OpenSearchIndex)
	}

	api, err := NewAPI(APIOptions{
		Logger: logger.With(
			elephantine.LogKeyComponent, "export-api"),
		Metrics:        p.Metrics,
		Sources:        sources,
		DefaultSource:  p.DefaultSource,
		AuthInfoParser: p.AuthInfoParser,
		Format:         p.Format,
	})
	if err != nil {
		return fmt.Errorf("create export API: %w", err)
	}

	healthServer := elephantine.NewHealthServer(logger, p.ProfileAddr)
	router := http.NewServeMux()
	serverGroup, gCtx := errgroup.WithContext(ctx)

	api.RegisterRoutes(router)

	router.Handle("/metrics", promhttp.Handler())

	router.Handle("/health/alive", http.HandlerFunc(func(
		w http.ResponseWriter, req *http.Request,
	) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)

		_, _ = fmt.Fprintln(w, "I AM ALIVE!")
	}))

	aliveEndpoint := fmt.Sprintf(
		"http://localhost%s/health/alive",
		p.Addr,
	)

	healthServer.AddReadyFunction("api_liveness",
		elephantine.LivenessReadyCheck(aliveEndpoint))

	healthServer.AddReadyFunction("postgres", func(ctx context.Context) error {
		err := p.Database.Ping(ctx)
		if err != nil {
			return fmt.Errorf("ping database: %w", err)
		}

		return nil
	})

	if p.OpenSearch != nil {
		healthServer.AddReadyFunction("opensearch", func(ctx context.Context) error {
			return search.Ping(ctx, p.OpenSearch, p.OpenSearchIndex)
		})
	}

	serverGroup.Go(func() error {
		logger.Debug("starting health server")

		err := healthServer.ListenAndServe(gCtx)
		if err != nil {
			return fmt.Errorf("health server error: %w", err)
		}

		return nil
	})

	serverGroup.Go(func() error {
		// No write timeout, exports are streamed for as long as it
		// takes.
		server := http.Server{
			Addr:              p.Addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		}

		err := elephantine.ListenAndServeContext(gCtx, &server)
		if err != nil {
			return fmt.Errorf("API server error: %w", err)
		}

		return nil
	})

	err = serverGroup.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	} else if err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}
