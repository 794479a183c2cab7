package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for paginated streams.
var (
	paginationInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cbpro_pagination_in_flight",
		Help: "Page requests currently owned by pagination streams",
	})

	paginationPagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cbpro_pagination_pages_total",
		Help: "Pages yielded by pagination streams by endpoint",
	}, []string{"endpoint"})

	paginationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cbpro_pagination_errors_total",
		Help: "Pagination stream errors by kind (transport, decode)",
	}, []string{"kind"})

	paginationStreamsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cbpro_pagination_streams_total",
		Help: "Pagination streams finished by outcome (complete, failed, closed)",
	}, []string{"outcome"})
)
