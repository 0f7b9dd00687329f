package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
	"finanzas/internal/ledger"
	"finanzas/internal/log"
	"finanzas/internal/middleware/ratelimit"
	"finanzas/internal/middleware/trace"
)

// Ledger is satisfied by *services.LedgerService.
type Ledger interface {
	RegisterIncome(ctx context.Context, userID int64, income decimal.Decimal, savings ledger.Savings) (core.IncomeRecord, error)
	AddExpense(ctx context.Context, userID int64, description string, amount decimal.Decimal) (core.ExpenseRecord, error)
	Summary(ctx context.Context, userID int64) (ledger.Summary, error)
	DeleteUser(ctx context.Context, userID int64) error
	Ping(ctx context.Context) error
}

// CommandHandler is satisfied by *commands.Handler.
type CommandHandler interface {
	Handle(ctx context.Context, userID int64, text string) string
}

type Options struct {
	// Timeout bounds each ledger call made by a request.
	Timeout time.Duration
	// Limiter throttles writes per user; nil disables throttling.
	Limiter *ratelimit.Limiter
	Logger  *log.Logger
}

type Server struct {
	http.Server
	ledger   Ledger
	commands CommandHandler
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	timeout  time.Duration

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, l Ledger, cmds CommandHandler, opts Options) *Server {
	mux := http.NewServeMux()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}

	s := &Server{
		ledger:   l,
		commands: cmds,
		limiter:  opts.Limiter,
		tracer:   trace.NewMiddleware(clientIP),
		timeout:  timeout,
	}

	perUser := s.perUserLimit()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("POST /v1/users/{id}/income", perUser(http.HandlerFunc(s.handleRegisterIncome)))
	mux.Handle("POST /v1/users/{id}/expenses", perUser(http.HandlerFunc(s.handleAddExpense)))
	mux.HandleFunc("GET /v1/users/{id}/summary", s.handleSummary)
	mux.Handle("DELETE /v1/users/{id}", perUser(http.HandlerFunc(s.handleDeleteUser)))
	mux.HandleFunc("POST /v1/commands", s.handleCommand)

	var handler http.Handler = mux
	handler = log.RequestIDMiddleware(trace.RequestIDFromRequest)(handler)
	handler = s.tracer.Middleware(handler)
	handler = log.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      timeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// perUserLimit throttles by the {id} path wildcard.
func (s *Server) perUserLimit() func(http.Handler) http.Handler {
	if s.limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return s.limiter.Middleware(
		func(r *http.Request) string {
			if id := r.PathValue("id"); id != "" {
				return "user:" + id
			}
			return ""
		},
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "60")
			writeErrorStatus(w, http.StatusTooManyRequests, "rate_limited", "too many requests for this user")
		},
	)
}

// Metrics returns request counters collected by the trace middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

// Shutdown stops the limiter and gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
		if errors.Is(shutdownErr, http.ErrServerClosed) {
			shutdownErr = nil
		}
	})
	return shutdownErr
}

// clientIP prefers the first X-Forwarded-For hop, then the remote address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
