package sqlview

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	RouteLabel     = "route"
	CodeLabel      = "code"
	MethodLabel    = "method"
	OperationLabel = "operation"
)

var (
	requestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlview_http_requests_total",
			Help: "Count of HTTP requests by route, status code and method",
		},
		[]string{RouteLabel, CodeLabel, MethodLabel},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlview_http_request_duration_seconds",
			Help:    "Latency of HTTP requests by route and method",
			Buckets: prometheus.DefBuckets,
		},
		[]string{RouteLabel, MethodLabel},
	)

	rowsReturned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlview_rows_returned_total",
			Help: "Rows sent to clients by operation",
		},
		[]string{OperationLabel},
	)

	statementsRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlview_statements_rejected_total",
			Help: "Statements refused by the read-only check",
		},
	)

	registerOnce sync.Once
)

// RegisterMetrics adds the collectors to the default registry. Safe to
// call more than once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(requestCount)
		prometheus.MustRegister(requestDuration)
		prometheus.MustRegister(rowsReturned)
		prometheus.MustRegister(statementsRejected)
	})
}

func instrument(route string, h http.Handler) http.Handler {
	labels := prometheus.Labels{RouteLabel: route}
	return promhttp.InstrumentHandlerDuration(
		requestDuration.MustCurryWith(labels),
		promhttp.InstrumentHandlerCounter(requestCount.MustCurryWith(labels), h),
	)
}

func countRows(operation string, n int) {
	rowsReturned.WithLabelValues(operation).Add(float64(n))
}
