package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_catalog_requests_total",
		Help: "Catalog API requests by HTTP status",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_catalog_request_duration_seconds",
		Help:    "Catalog API request duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_catalog_errors_total",
		Help: "Failed catalog fetches by error class",
	}, []string{"class"})
)
