package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_http_requests_total",
		Help: "HTTP requests by route pattern and status",
	}, []string{"route", "code"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_http_request_duration_seconds",
		Help:    "HTTP request duration by route pattern",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	wsSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_ws_sessions",
		Help: "Open hydration websocket sessions",
	})

	wsNavigations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_ws_navigations_total",
		Help: "Navigate messages received over hydration sessions",
	})
)
