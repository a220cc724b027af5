package httpserver

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the Prometheus collectors exposed on /metrics.
// request/cacheResult are observed once per dispatched request; there is
// no per-component histogram beyond that, since the dispatcher itself
// (not this package) owns transform/route timing.
type metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	transformCache  *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devserver_requests_total",
			Help: "Total dispatched requests, labeled by status class.",
		}, []string{"status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "devserver_request_duration_seconds",
			Help:    "Time spent in Dispatcher.HandleStreamingRequest.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		transformCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devserver_transform_cache_total",
			Help: "Module transform cache outcomes.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.requestsTotal, m.requestDuration, m.transformCache)
	return m
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
