package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sells-group/addrmap/pkg/geocode"
)

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	results  *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer, cache *geocode.LRUCache) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "addrmap_http_requests_total",
			Help: "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "addrmap_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "addrmap_geocode_results_total",
			Help: "Geocode outcomes: matched, unmatched or error.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.requests, m.duration, m.results)

	if cache != nil {
		reg.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "addrmap_cache_entries",
				Help: "Entries in the in-memory result cache.",
			}, func() float64 { return float64(cache.Stats().Entries) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "addrmap_cache_hit_rate",
				Help: "Hit rate of the in-memory result cache.",
			}, func() float64 { return cache.Stats().HitRate }),
		)
	}
	return m
}

// instrument records request counts and latency under the matched route
// pattern, so query strings never become label values.
func (m *metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (m *metrics) observe(r *geocode.Result, err error) {
	switch {
	case err != nil, r != nil && r.Error != "":
		m.results.WithLabelValues("error").Inc()
	case r != nil && r.Matched:
		m.results.WithLabelValues("matched").Inc()
	default:
		m.results.WithLabelValues("unmatched").Inc()
	}
}
