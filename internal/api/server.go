// Package api exposes the advisor engine over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/MJE43/blackjack-advisor-go/internal/analysis"
	"github.com/MJE43/blackjack-advisor-go/internal/blackjack"
	"github.com/MJE43/blackjack-advisor-go/internal/logging"
	"github.com/MJE43/blackjack-advisor-go/internal/montecarlo"
	"github.com/MJE43/blackjack-advisor-go/internal/store"
)

// Recorder persists analyses and answers the statistics endpoints.
// *store.Store implements it.
type Recorder interface {
	Ping(ctx context.Context) error
	SaveAnalysis(ctx context.Context, handRef string, res analysis.AnalysisResult, remaining blackjack.RemainingCounts) (string, error)
	SetActualAction(ctx context.Context, id, action string) error
	GetRecommendation(ctx context.Context, id string) (store.Recommendation, error)
	ListCalculations(ctx context.Context, handRef string) ([]store.Calculation, error)
	MethodPerformance(ctx context.Context) ([]store.MethodStats, error)
	RecommendationAccuracy(ctx context.Context) ([]store.AccuracyRow, error)
}

// CalculationSink receives single-method runs. *store.Recorder implements it.
type CalculationSink interface {
	Record(calcs ...store.Calculation)
}

// Options wires a Server. Store and Calculations may be nil to disable
// recording.
type Options struct {
	Analyzer             *analysis.Analyzer
	Simulator            *montecarlo.Simulator
	Store                Recorder
	Calculations         CalculationSink
	Logger               *zap.Logger
	SimulationIterations int
	RequestTimeout       time.Duration
}

// Server handles HTTP requests
type Server struct {
	analyzer      *analysis.Analyzer
	simulator     *montecarlo.Simulator
	store         Recorder
	calculations  CalculationSink
	errorHandler  *ErrorHandler
	metrics       *Metrics
	logger        *zap.Logger
	simIterations int
	timeout       time.Duration
	startTime     time.Time
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.SimulationIterations <= 0 {
		opts.SimulationIterations = montecarlo.DefaultIterations
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}

	s := &Server{
		analyzer:      opts.Analyzer,
		simulator:     opts.Simulator,
		store:         opts.Store,
		calculations:  opts.Calculations,
		errorHandler:  NewErrorHandler(logger),
		metrics:       NewMetrics(),
		logger:        logger,
		simIterations: opts.SimulationIterations,
		timeout:       opts.RequestTimeout,
		startTime:     time.Now(),
	}

	logger.Info("server_initialized",
		zap.String("engine_version", EngineVersion),
		zap.Bool("recording_enabled", s.store != nil),
		zap.Int("simulation_iterations", s.simIterations))
	return s
}

// Routes sets up the HTTP routes with proper middleware
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(s.logger))
	r.Use(s.errorHandler.RecoveryHandler)
	r.Use(middleware.Timeout(s.timeout))
	r.Use(corsMiddleware)

	r.Get("/health", s.handleHealthCheck)
	r.Get("/health/ready", s.handleReadiness)
	r.Get("/health/live", s.handleLiveness)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/solve", s.handleSolve)
		r.Post("/interpolate", s.handleInterpolate)
		r.Post("/integrate", s.handleIntegrate)
		r.Post("/simulate", s.handleSimulate)
		r.Post("/count", s.handleCount)
		r.Post("/bet", s.handleBet)
		r.Post("/probabilities", s.handleProbabilities)
		r.Get("/strategy", s.handleStrategy)
		r.Get("/version", s.handleVersion)

		r.Get("/stats/methods", s.handleMethodStats)
		r.Get("/stats/recommendations", s.handleRecommendationStats)
		r.Get("/recommendations/{id}", s.handleGetRecommendation)
		r.Put("/recommendations/{id}/actual", s.handleActualAction)
		r.Get("/calculations", s.handleListCalculations)
	})

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-Id")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes data before any header is sent. Encoding failures are
// answered with a 500 EngineError.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		s.logger.Error("encode response", zap.Error(err))
		s.errorHandler.writeErrorResponse(w, http.StatusInternalServerError,
			NewError(ErrTypeInternal, "Response could not be encoded").WithCause(err).Build())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Debug("write response", zap.Error(err))
	}
}

// decode reads a JSON body, rejecting unknown fields. On failure the error
// response is already written.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON: "+err.Error())
		return false
	}
	return true
}
