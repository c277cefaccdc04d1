// Package middleware contains the Gin middleware of the tablet gateway.
//
// This file exposes Prometheus instrumentation for gateway traffic. Labels are
// the method, the registered Gin route (raw path when nothing matched) and the
// status code, which keeps cardinality bounded even though order and table
// ids appear in URLs.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// httpReqs counts requests by method, route path, and status code.
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restaurant_gateway_requests_total",
			Help: "Total number of gateway HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// httpLat records request duration by method and route path. Most of it is
	// time spent waiting for the dispatcher's reply.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "restaurant_gateway_request_duration_seconds",
			Help:    "Duration of gateway HTTP requests in seconds.",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "path"},
	)

	// httpInflight gauges requests currently being served.
	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "restaurant_gateway_requests_inflight",
			Help: "Current number of in-flight gateway requests.",
		},
	)

	// httpRespSize captures response sizes in bytes by method and route path.
	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "restaurant_gateway_response_size_bytes",
			Help:    "Size of gateway HTTP responses in bytes.",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8), // 64B..1MiB
		},
		[]string{"method", "path"},
	)

	// rateLimited counts requests rejected by the rate limiter, by key kind.
	rateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restaurant_gateway_rate_limited_total",
			Help: "Requests rejected by the gateway rate limiter.",
		},
		[]string{"key_kind"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize, rateLimited)
}

// Metrics returns a Gin middleware that instruments requests with Prometheus.
// Responses that report no size (-1) are left out of the size histogram.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method

		httpReqs.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}
