// Package http exposes the chat service as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"aidance/internal/aggregate"
	"aidance/internal/core"
	applog "aidance/internal/log"
	"aidance/internal/middleware/ratelimit"
	"aidance/internal/middleware/security"
	"aidance/internal/middleware/trace"
	"aidance/internal/services"
)

// DefaultMaxBodyBytes bounds request bodies; chat turns carry images as
// data URIs.
const DefaultMaxBodyBytes = 16 << 20

// ChatAPI is the service surface the handlers need. Implemented by
// services.ChatService.
type ChatAPI interface {
	Send(ctx context.Context, text string, images []string) (*services.SendResult, error)
	Sending() bool
	Messages() []core.Message
	Records(ctx context.Context, tab aggregate.Tab, category string) []core.Record
	DeleteRecord(ctx context.Context, id string) error
	Dashboard(ctx context.Context, year int, month time.Month, tab aggregate.Tab, category string) services.Dashboard
	Budget(ctx context.Context) core.BudgetConfig
	SaveBudget(ctx context.Context, b core.BudgetConfig) error
	Todos(ctx context.Context) core.TodoList
	AddTodo(ctx context.Context, text string) (core.TodoItem, error)
	ToggleTodo(ctx context.Context, id string) (core.TodoItem, error)
	DeleteTodo(ctx context.Context, id string) error
	ClearAll(ctx context.Context) error
}

type Server struct {
	http.Server
	svc          ChatAPI
	logger       *applog.Logger
	limiter      *ratelimit.Limiter
	events       *eventHub
	ready        func(context.Context) error
	maxBodyBytes int64
	shutdownOnce sync.Once
}

type Option func(*Server, *options)

type options struct {
	rateLimit ratelimit.Config
	headers   security.HeadersConfig
}

func WithLogger(l *applog.Logger) Option {
	return func(s *Server, _ *options) { s.logger = l }
}

// WithReadiness sets the check behind /readyz, typically a storage ping.
func WithReadiness(check func(context.Context) error) Option {
	return func(s *Server, _ *options) { s.ready = check }
}

func WithRateLimit(cfg ratelimit.Config) Option {
	return func(_ *Server, o *options) { o.rateLimit = cfg }
}

func WithHeaders(cfg security.HeadersConfig) Option {
	return func(_ *Server, o *options) { o.headers = cfg }
}

func WithMaxBodyBytes(n int64) Option {
	return func(s *Server, _ *options) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, svc ChatAPI, opts ...Option) *Server {
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		svc:          svc,
		logger:       applog.Default(applog.ComponentHTTP),
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	o := &options{
		rateLimit: ratelimit.DefaultConfig(),
		headers:   security.DefaultHeadersConfig(),
	}
	for _, opt := range opts {
		opt(s, o)
	}
	s.events = newEventHub(s.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/messages", s.handleMessages)
	mux.HandleFunc("POST /api/chat", s.handleChat)

	mux.HandleFunc("GET /api/records", s.handleRecords)
	mux.HandleFunc("DELETE /api/records/{id}", s.handleDeleteRecord)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)

	mux.HandleFunc("GET /api/budget", s.handleGetBudget)
	mux.HandleFunc("PUT /api/budget", s.handlePutBudget)

	mux.HandleFunc("GET /api/todos", s.handleTodos)
	mux.HandleFunc("POST /api/todos", s.handleCreateTodo)
	mux.HandleFunc("POST /api/todos/{id}/toggle", s.handleToggleTodo)
	mux.HandleFunc("DELETE /api/todos/{id}", s.handleDeleteTodo)

	mux.HandleFunc("POST /api/clear", s.handleClear)

	mux.HandleFunc("GET /api/events", s.handleEvents)

	ips := security.NewClientIPResolver()
	s.limiter = ratelimit.NewLimiter(o.rateLimit)
	tracer := trace.NewMiddleware(ips.ClientIP, s.logger)
	headers := security.NewHeadersMiddleware(o.headers)

	var h http.Handler = mux
	h = s.limiter.Middleware(ips.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	})(h)
	h = headers.Middleware(h)
	h = applog.RequestIDMiddleware(trace.RequestID)(h)
	h = applog.Middleware(s.logger)(h)
	h = tracer.Middleware(h)
	s.Handler = h

	return s
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
