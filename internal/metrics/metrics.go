// Package metrics provides Prometheus instrumentation for the custody server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DepositsTotal counts accepted deposits by namespace.
	DepositsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "custody_deposits_total",
		Help: "Total number of accepted deposits",
	}, []string{"namespace"})

	// PositionsAdded counts positions added to capital allocations.
	PositionsAdded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "custody_positions_added_total",
		Help: "Total number of positions added to capital allocations",
	})

	// AllocationsCreated counts created capital allocations.
	AllocationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "custody_allocations_created_total",
		Help: "Total number of capital allocations created",
	})

	// SettlementsTotal counts settled allocations by outcome (profit or loss).
	SettlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "custody_settlements_total",
		Help: "Total number of settled capital allocations",
	}, []string{"outcome"})

	// TransfersTotal counts outbound transfers by kind and result.
	TransfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "custody_transfers_total",
		Help: "Total outbound transfers",
	}, []string{"kind", "result"})

	// TransferQueueDepth tracks transfers waiting for dispatch.
	TransferQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "custody_transfer_queue_depth",
		Help: "Number of outbound transfers waiting for dispatch",
	})

	// NotificationsTotal counts queued notifications by delivery result.
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "custody_notifications_total",
		Help: "Total notifications by delivery result",
	}, []string{"result"})

	// NotificationQueueDepth tracks notifications waiting for delivery.
	NotificationQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "custody_notification_queue_depth",
		Help: "Number of notifications waiting for delivery",
	})

	// MaturedAllocations tracks active allocations past their exit time.
	MaturedAllocations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "custody_matured_allocations",
		Help: "Number of active capital allocations past their exit timestamp",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "custody_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "custody_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := routePattern(r)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// routePattern keeps path label cardinality bounded by ids in the URL.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
