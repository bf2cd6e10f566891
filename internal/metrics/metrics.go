// Package metrics holds the Prometheus collectors shared by the server and the price feed.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "petrolprices"

type Metrics struct {
	HTTPRequests *prometheus.CounterVec   // labels: route, method, status
	HTTPDuration *prometheus.HistogramVec // labels: route

	PriceUpdates *prometheus.CounterVec // labels: outcome={stored,unchanged,invalid,error}
	StationCache *prometheus.CounterVec // labels: result={hit,miss}
	DataReloads  *prometheus.CounterVec // labels: outcome={ok,error}

	GeocodeRequests *prometheus.CounterVec // labels: provider, outcome={success,error,empty,cached}

	FeedPolls     *prometheus.CounterVec // labels: source, outcome={ok,error}
	FeedPublished prometheus.Counter
}

// NewMetrics registers every collector with reg. Pass prometheus.NewRegistry()
// in tests to avoid duplicate registration panics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by route pattern.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route"}),
		PriceUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_updates_total",
			Help:      "Price update messages received over MQTT by outcome.",
		}, []string{"outcome"}),
		StationCache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "station_cache_total",
			Help:      "Station snapshot cache lookups by result.",
		}, []string{"result"}),
		DataReloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "station_data_reloads_total",
			Help:      "Station data file imports by outcome.",
		}, []string{"outcome"}),
		GeocodeRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding lookups by provider and outcome.",
		}, []string{"provider", "outcome"}),
		FeedPolls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_polls_total",
			Help:      "Upstream price source polls by source and outcome.",
		}, []string{"source", "outcome"}),
		FeedPublished: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_published_total",
			Help:      "Price updates published to the broker.",
		}),
	}
}

// NewNop returns metrics registered on a throwaway registry.
func NewNop() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
