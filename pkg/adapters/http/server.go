// Package http exposes an engine as a JSON API.
//
//	GET  /health     liveness check
//	GET  /info       application and library version
//	GET  /operators  operator names
//	GET  /backends   registered backends and their dependencies
//	POST /explain    compile an invocation and return its explanation
//	POST /call       compile and execute an invocation
//	GET  /metrics    Prometheus exposition, when a gatherer is configured
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/semop"
	"github.com/aretw0/semop/pkg/domain"
	"github.com/aretw0/semop/pkg/ops"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxBodyBytes bounds the size of request bodies.
const MaxBodyBytes = 1 << 20

const tracerName = "github.com/aretw0/semop/pkg/adapters/http"

// Engine is the part of semop.Engine served over HTTP.
type Engine interface {
	Call(ctx context.Context, req *domain.Request) (any, error)
	Explain(ctx context.Context, req *domain.Request) (*semop.Explanation, error)
	Backends() []semop.BackendInfo
}

var _ Engine = (*semop.Engine)(nil)

// Server holds the handlers of the API.
type Server struct {
	Engine   Engine
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	tracer   trace.Tracer
}

// Option configures the server.
type Option func(*Server)

// WithGatherer serves g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracerProvider starts a span per request with tp instead of the
// global provider. Dispatch hooks find the span in the request context.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
	}
}

// CallResponse is the body returned by POST /call.
type CallResponse struct {
	Result any `json:"result"`
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	server := &Server{
		Engine: engine,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(server.traceRequests)

	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Get("/operators", server.GetOperators)
	r.Get("/backends", server.GetBackends)
	r.Post("/explain", server.Explain)
	r.Post("/call", server.Call)
	if server.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(server.gatherer, promhttp.HandlerOpts{}))
	}

	return enableCORS(r)
}

func (s *Server) traceRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := s.tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
			),
		)
		defer span.End()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, map[string]string{
		"app":     "semop-http",
		"version": strings.TrimSpace(semop.Version),
	})
}

// GetOperators handles the GET /operators request.
func (s *Server) GetOperators(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, ops.Names())
}

// GetBackends handles the GET /backends request.
func (s *Server) GetBackends(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, s.Engine.Backends())
}

// Explain handles the POST /explain request.
func (s *Server) Explain(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	x, err := s.Engine.Explain(r.Context(), req)
	if err != nil {
		s.fail(w, r, "Explain", err)
		return
	}
	s.writeJSON(w, r, x)
}

// Call handles the POST /call request.
func (s *Server) Call(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	out, err := s.Engine.Call(r.Context(), req)
	if err != nil {
		s.fail(w, r, "Call", err)
		return
	}
	s.writeJSON(w, r, CallResponse{Result: out})
}

func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request) (*domain.Request, bool) {
	var body semop.Invocation
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(&body); err != nil {
		s.logger.WarnContext(r.Context(), "invalid request body", "path", r.URL.Path, "err", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return nil, false
	}

	req, err := body.Request()
	if err != nil {
		s.logger.WarnContext(r.Context(), "invocation rejected", "operator", body.Operator, "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return req, true
}

// fail maps dispatch errors to status codes.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidCall):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnimplemented):
		status = http.StatusNotImplemented
	case errors.Is(err, domain.ErrGuardViolation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), action+" failed", "err", err)
	} else {
		s.logger.WarnContext(r.Context(), action+" failed", "status", status, "err", err)
	}
	http.Error(w, err.Error(), status)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.ErrorContext(r.Context(), "response encode failed", "path", r.URL.Path, "err", err)
	}
}
