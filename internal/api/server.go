// Package api serves the extraction and generation pipelines and the lead
// dashboard endpoints over HTTP.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/extract"
	"github.com/sells-group/outreach-cli/internal/generate"
	"github.com/sells-group/outreach-cli/internal/metrics"
	"github.com/sells-group/outreach-cli/internal/store"
)

// maxBodyBytes bounds a request body. Extraction batches carry base64
// screenshots, so the limit is generous.
const maxBodyBytes = 64 << 20

// Extractor runs an extraction batch.
type Extractor interface {
	Run(ctx context.Context, req extract.Request) (*extract.Result, error)
}

// Generator runs a generation pass.
type Generator interface {
	Run(ctx context.Context, req generate.Request) (*generate.Result, error)
}

// Server holds the HTTP handlers' dependencies.
type Server struct {
	store          store.Store
	extractor      Extractor
	generator      Generator
	allowedOrigins []string
}

// Option configures a Server.
type Option func(*Server)

// WithAllowedOrigins sets the CORS allowed origins. Default is any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.allowedOrigins = origins
		}
	}
}

// NewServer creates a Server.
func NewServer(st store.Store, ex Extractor, gen Generator, opts ...Option) *Server {
	s := &Server{
		store:          st,
		extractor:      ex,
		generator:      gen,
		allowedOrigins: []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))
	r.Use(s.bareOptions)

	r.Post("/extract-numbers", s.handleExtract)
	r.Post("/generate-messages", s.handleGenerate)

	r.Get("/leads", s.handleListLeads)
	r.Get("/leads/stats", s.handleLeadStats)
	r.Get("/leads/export", s.handleExport)
	r.Post("/leads/{id}/sent", s.handleMarkSent)

	r.Get("/templates", s.handleTemplates)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// bareOptions answers OPTIONS requests that are not CORS preflights, such as
// those without an Origin or Access-Control-Request-Method header. The cors
// middleware has already answered real preflights.
func (s *Server) bareOptions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		h := w.Header()
		if origin := s.allowOrigin(r.Header.Get("Origin")); origin != "" {
			h.Set("Access-Control-Allow-Origin", origin)
			if origin != "*" {
				h.Add("Vary", "Origin")
			}
		}
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
		w.WriteHeader(http.StatusNoContent)
	})
}

func (s *Server) allowOrigin(origin string) string {
	for _, o := range s.allowedOrigins {
		switch {
		case o == "*":
			return "*"
		case origin != "" && strings.EqualFold(o, origin):
			return origin
		}
	}
	return ""
}

// requestLogger logs one line per request through the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		zap.L().Info("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
