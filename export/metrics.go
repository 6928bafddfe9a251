package export

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	requests *prometheus.CounterVec
	rows     *prometheus.CounterVec
	pages    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elephant_export_requests_total",
			Help: "Counts CSV export requests by source and result.",
		},
		[]string{"source", "result"},
	)
	if err := reg.Register(requests); err != nil {
		return nil, fmt.Errorf("register export requests metric: %w", err)
	}

	rows := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elephant_export_rows_total",
			Help: "Number of rows written to CSV exports.",
		},
		[]string{"source"},
	)
	if err := reg.Register(rows); err != nil {
		return nil, fmt.Errorf("register export rows metric: %w", err)
	}

	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elephant_export_pages_total",
			Help: "Number of pages fetched for CSV exports.",
		},
		[]string{"source"},
	)
	if err := reg.Register(pages); err != nil {
		return nil, fmt.Errorf("register export pages metric: %w", err)
	}

	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "elephant_export_duration_seconds",
			Help:    "Time taken to stream a CSV export.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
		},
		[]string{"source"},
	)
	if err := reg.Register(duration); err != nil {
		return nil, fmt.Errorf("register export duration metric: %w", err)
	}

	m := Metrics{
		requests: requests,
		rows:     rows,
		pages:    pages,
		duration: duration,
	}

	return &m, nil
}
