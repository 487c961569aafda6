// Package metrics exposes the Prometheus instruments for the ingest
// pipeline and dataset store.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UploadsTotal counts dataset uploads by source format and outcome.
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricedash_uploads_total",
		Help: "Number of dataset uploads by format and status.",
	}, []string{"format", "status"})

	// RowsKeptTotal counts rows that survived cleaning.
	RowsKeptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricedash_rows_kept_total",
		Help: "Number of rows kept after cleaning.",
	})

	// RowsDroppedTotal counts rows dropped during cleaning, by reason.
	RowsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricedash_rows_dropped_total",
		Help: "Number of rows dropped during cleaning, by reason.",
	}, []string{"reason"})

	// DatasetsActive tracks the number of datasets currently held in
	// memory.
	DatasetsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pricedash_datasets_active",
		Help: "Number of datasets currently held in memory.",
	})
)
