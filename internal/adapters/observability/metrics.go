package observability

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "voyago", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "voyago", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	GatewayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "voyago", Name: "gateway_requests_total", Help: "Booking gateway calls."},
		[]string{"operation", "status"},
	)
	GatewayLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "voyago", Name: "gateway_request_duration_seconds",
			Help:    "Booking gateway call duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	WorkflowTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "voyago", Name: "workflow_transitions_total", Help: "Booking workflow state transitions."},
		[]string{"from", "to"},
	)
	SessionEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "voyago", Name: "session_store_events_total", Help: "Session store hits/misses/saves/dels."},
		[]string{"event"}, // event: hit|miss|save|del
	)
)

func Serve() {
	addr := os.Getenv("METRICS_ADDR")
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, GatewayRequests, GatewayLatency, WorkflowTransitions, SessionEvents)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveGateway(operation string, status int, dur time.Duration) {
	GatewayRequests.WithLabelValues(operation, strconv.Itoa(status)).Inc()
	GatewayLatency.WithLabelValues(operation).Observe(dur.Seconds())
}

func ObserveTransition(from, to string) {
	WorkflowTransitions.WithLabelValues(from, to).Inc()
}

func ObserveSession(event string) { // event: hit|miss|save|del
	SessionEvents.WithLabelValues(event).Inc()
}

func LabelErr(err error) string {
	if err == nil {
		return "none"
	}
	return fmt.Sprintf("%T", err)
}
