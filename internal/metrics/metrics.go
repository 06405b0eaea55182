// Package metrics exposes Prometheus counters for the pipelines and the
// HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Image outcomes.
const (
	ImageParsed   = "parsed"
	ImageFallback = "fallback"
	ImageFailed   = "failed"
)

// Reasons a lead is skipped during generation.
const (
	SkipUpstream = "upstream"
	SkipUpdate   = "update"
	SkipClaimed  = "claimed"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outreach_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	imagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_images_processed_total",
			Help: "Images processed by extraction, by outcome",
		},
		[]string{"outcome"},
	)

	leadsInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outreach_leads_inserted_total",
			Help: "Leads created by extraction",
		},
	)

	leadInsertErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outreach_lead_insert_errors_total",
			Help: "Failed lead inserts during extraction",
		},
	)

	messagesGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outreach_messages_generated_total",
			Help: "Leads that received a message and deep link",
		},
	)

	generationSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_generation_skipped_total",
			Help: "Leads skipped during generation, by reason",
		},
		[]string{"reason"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency labelled by chi route
// pattern, so path parameters do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// RecordImage counts one processed image.
func RecordImage(outcome string) {
	imagesProcessed.WithLabelValues(outcome).Inc()
}

// RecordLeadInserted counts one created lead.
func RecordLeadInserted() {
	leadsInserted.Inc()
}

// RecordLeadInsertError counts one failed insert.
func RecordLeadInsertError() {
	leadInsertErrors.Inc()
}

// RecordMessageGenerated counts one lead updated with a message.
func RecordMessageGenerated() {
	messagesGenerated.Inc()
}

// RecordGenerationSkipped counts one lead left untouched.
func RecordGenerationSkipped(reason string) {
	generationSkipped.WithLabelValues(reason).Inc()
}
