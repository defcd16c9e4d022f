package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"envelopes/internal/core"
	applog "envelopes/internal/log"
	"envelopes/internal/middleware/ratelimit"
	"envelopes/internal/middleware/security"
	"envelopes/internal/middleware/trace"
	"envelopes/internal/services"
)

// Ledger is the set of ledger operations the API exposes.
type Ledger interface {
	GetSchedule(ctx context.Context, date time.Time) (core.BudgetSchedule, error)
	PopulateMonth(ctx context.Context, date time.Time) (core.PeriodReport, error)
	GetBudgets(ctx context.Context, date time.Time, intent core.FilterIntent) ([]core.Budget, error)
	SaveBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	TransferBudget(ctx context.Context, date time.Time, from, to uuid.UUID, amount decimal.Decimal) error

	GetAccounts(ctx context.Context, date time.Time, intent core.FilterIntent) ([]core.Account, error)
	CreateAccount(ctx context.Context, account core.Account, startingBalance decimal.Decimal, date time.Time) (core.Account, error)
	UpdateAccount(ctx context.Context, account core.Account) (core.Account, error)
	DeleteAccount(ctx context.Context, id uuid.UUID) error
	ReconcileAccount(ctx context.Context, id uuid.UUID, date time.Time, statement decimal.Decimal) (core.Account, error)

	GetEnvelopes(ctx context.Context, intent core.FilterIntent, query string) ([]core.Envelope, error)
	GetEnvelope(ctx context.Context, id uuid.UUID) (core.Envelope, error)
	SaveEnvelope(ctx context.Context, e core.Envelope) (core.Envelope, error)
	DeleteEnvelope(ctx context.Context, id uuid.UUID) error
	SetEnvelopeHidden(ctx context.Context, id uuid.UUID, hidden bool) error

	GetEnvelopeGroups(ctx context.Context, intent core.FilterIntent) ([]core.EnvelopeGroup, error)
	GetEnvelopeGroup(ctx context.Context, id uuid.UUID) (core.EnvelopeGroup, error)
	SaveEnvelopeGroup(ctx context.Context, g core.EnvelopeGroup) (core.EnvelopeGroup, error)
	DeleteEnvelopeGroup(ctx context.Context, id uuid.UUID) error

	GetPayees(ctx context.Context, intent core.FilterIntent, query string) ([]core.Payee, error)
	GetPayee(ctx context.Context, id uuid.UUID) (core.Payee, error)
	SavePayee(ctx context.Context, p core.Payee) (core.Payee, error)
	DeletePayee(ctx context.Context, id uuid.UUID) error

	GetTransactions(ctx context.Context, q services.TransactionQuery) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (core.Transaction, error)
	SaveTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	SaveSplitTransaction(ctx context.Context, members []core.Transaction) ([]core.Transaction, error)
	DeleteTransaction(ctx context.Context, id uuid.UUID) error
}

// ServerConfig tunes the API server. Zero values pick defaults.
type ServerConfig struct {
	RequestsPerMinute int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	Logger            *applog.Logger
}

type Server struct {
	http.Server
	ledger Ledger
	now    func() time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	logger   *applog.Logger
	events   *applog.StructuredLogger

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, ledger Ledger, config ServerConfig) *Server {
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = 15 * time.Second
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 30 * time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	limits := ratelimit.DefaultConfig()
	if config.RequestsPerMinute > 0 {
		limits.RequestsPerMinute = config.RequestsPerMinute
	}
	detector := security.NewDetector()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadTimeout:       config.ReadTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      config.WriteTimeout,
			IdleTimeout:       2 * time.Minute,
		},
		ledger:   ledger,
		now:      func() time.Time { return time.Now().UTC() },
		limiter:  ratelimit.NewLimiter(limits),
		detector: detector,
		tracer:   trace.NewMiddleware(detector.ExtractClientIP, logger),
		logger:   logger,
		events:   applog.NewStructuredLogger(logger),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	s.Handler = chain(mux,
		s.tracer.Middleware,
		applog.Middleware(logger),
		applog.RequestIDMiddleware(trace.RequestID),
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		detector.Middleware(func(w http.ResponseWriter, r *http.Request) {
			BadRequestError("request rejected").Write(w)
		}),
		s.limiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
				applog.FieldClientIP, detector.ExtractClientIP(r),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			TooManyRequestsError().Write(w)
		}),
		recoverPanics,
	)
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/schedule", s.handleGetSchedule)
	mux.HandleFunc("GET /api/report", s.handleGetReport)
	mux.HandleFunc("GET /api/budgets", s.handleGetBudgets)
	mux.HandleFunc("PUT /api/budgets", s.handleSaveBudget)
	mux.HandleFunc("POST /api/budgets/transfer", s.handleTransferBudget)

	mux.HandleFunc("GET /api/accounts", s.handleGetAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	mux.HandleFunc("PUT /api/accounts/{id}", s.handleUpdateAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", s.handleDeleteAccount)
	mux.HandleFunc("POST /api/accounts/{id}/reconcile", s.handleReconcileAccount)

	mux.HandleFunc("GET /api/envelopes", s.handleGetEnvelopes)
	mux.HandleFunc("POST /api/envelopes", s.handleCreateEnvelope)
	mux.HandleFunc("PUT /api/envelopes/{id}", s.handleUpdateEnvelope)
	mux.HandleFunc("DELETE /api/envelopes/{id}", s.handleDeleteEnvelope)
	mux.HandleFunc("PUT /api/envelopes/{id}/hidden", s.handleHideEnvelope)

	mux.HandleFunc("GET /api/envelope-groups", s.handleGetEnvelopeGroups)
	mux.HandleFunc("POST /api/envelope-groups", s.handleCreateEnvelopeGroup)
	mux.HandleFunc("PUT /api/envelope-groups/{id}", s.handleUpdateEnvelopeGroup)
	mux.HandleFunc("DELETE /api/envelope-groups/{id}", s.handleDeleteEnvelopeGroup)

	mux.HandleFunc("GET /api/payees", s.handleGetPayees)
	mux.HandleFunc("POST /api/payees", s.handleCreatePayee)
	mux.HandleFunc("PUT /api/payees/{id}", s.handleUpdatePayee)
	mux.HandleFunc("DELETE /api/payees/{id}", s.handleDeletePayee)

	mux.HandleFunc("GET /api/transactions", s.handleGetTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("POST /api/transactions/split", s.handleCreateSplit)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("no route for " + r.Method + " " + r.URL.Path).Write(w)
	})
}

// chain wraps h so that the first middleware is the outermost.
func chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// recoverPanics turns a handler panic into a failed result.
func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				applog.FromContext(r.Context()).ErrorContext(r.Context(), "Handler panic",
					applog.FieldError, fmt.Sprint(rec),
					applog.FieldPath, r.URL.Path,
					"stack", string(debug.Stack()))
				InternalServerError().Write(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the server and the limiter cleanup loop.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	Result(http.StatusOK, "ok").Write(w)
}

// handleReady checks that the ledger store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, err := s.ledger.GetEnvelopeGroups(ctx, core.FilterAll); err != nil {
		slog.WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
		ErrorResponse(http.StatusServiceUnavailable, fmt.Errorf("ledger unavailable")).Write(w)
		return
	}
	Result(http.StatusOK, "ready").Write(w)
}

type serverMetrics struct {
	Requests  trace.Metrics             `json:"requests"`
	RateLimit ratelimit.Metrics         `json:"rateLimit"`
	Security  security.DetectionMetrics `json:"security"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	Result(http.StatusOK, serverMetrics{
		Requests:  s.tracer.GetMetrics(),
		RateLimit: s.limiter.GetMetrics(),
		Security:  s.detector.GetMetrics(),
	}).Write(w)
}
