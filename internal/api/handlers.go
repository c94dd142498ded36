package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MJE43/blackjack-advisor-go/internal/analysis"
	"github.com/MJE43/blackjack-advisor-go/internal/betscript"
	"github.com/MJE43/blackjack-advisor-go/internal/blackjack"
	"github.com/MJE43/blackjack-advisor-go/internal/counting"
	"github.com/MJE43/blackjack-advisor-go/internal/store"
)

// handleAnalyze runs the full three-method analysis and, when recording is
// enabled, stores the method runs and a pending recommendation.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req HandRequest
	if !s.decode(w, r, &req) {
		return
	}
	if field, msg := req.validate(); field != "" {
		s.errorHandler.HandleValidationError(w, r, field, msg)
		return
	}
	remaining := req.remaining()

	start := time.Now()
	res, err := s.analyzer.AnalyzeHand(r.Context(), req.PlayerTotal, req.DealerUpcard, remaining)
	s.metrics.observe("analyze", start, err)
	if err != nil {
		s.errorHandler.HandleError(w, r, "analyze", err)
		return
	}
	s.metrics.recommendations.WithLabelValues(string(res.Recommendation.Action)).Inc()

	resp := AnalyzeResponse{
		Analysis:      res,
		HandRef:       req.HandRef,
		EngineVersion: EngineVersion,
	}
	if s.store != nil {
		if resp.HandRef == "" {
			resp.HandRef = uuid.NewString()
		}
		id, err := s.store.SaveAnalysis(r.Context(), resp.HandRef, res, remaining)
		if err != nil {
			s.errorHandler.HandleError(w, r, "record_analysis", err)
			return
		}
		resp.RecommendationID = id
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	var req SolveRequest
	if !s.decode(w, r, &req) {
		return
	}
	if field, msg := req.validate(); field != "" {
		s.errorHandler.HandleValidationError(w, r, field, msg)
		return
	}
	opts := s.analyzer.Options()
	if req.Tolerance == 0 {
		req.Tolerance = opts.Tolerance
	}
	if req.MaxIterations == 0 {
		req.MaxIterations = opts.MaxIterations
	}
	remaining := req.remaining()

	start := time.Now()
	res, err := s.analyzer.SolveOptimalProbability(req.PlayerTotal, req.DealerUpcard, remaining, req.Tolerance, req.MaxIterations)
	s.metrics.observe("solve", start, err)
	if err != nil {
		s.errorHandler.HandleError(w, r, "solve", err)
		return
	}

	s.record(analysis.MethodNewtonRaphson, req, res.Steps, res.OptimalProbability, res.Elapsed)
	s.writeJSON(w, http.StatusOK, SolveResponse{Result: res, EngineVersion: EngineVersion})
}

func (s *Server) handleInterpolate(w http.ResponseWriter, r *http.Request) {
	var req InterpolateRequest
	if !s.decode(w, r, &req) {
		return
	}

	start := time.Now()
	res, err := s.analyzer.Interpolate(req.Points, req.Target)
	s.metrics.observe("interpolate", start, err)
	if err != nil {
		s.errorHandler.HandleError(w, r, "interpolate", err)
		return
	}

	s.record(analysis.MethodInterpolation, req, res.Table, res.Value, res.Elapsed)
	s.writeJSON(w, http.StatusOK, InterpolateResponse{Result: res, EngineVersion: EngineVersion})
}

func (s *Server) handleIntegrate(w http.ResponseWriter, r *http.Request) {
	var req IntegrateRequest
	if !s.decode(w, r, &req) {
		return
	}
	lower, upper := 0.0, 1.0
	if req.Lower != nil {
		lower = *req.Lower
	}
	if req.Upper != nil {
		upper = *req.Upper
	}
	if req.Intervals == 0 {
		req.Intervals = s.analyzer.Options().Intervals
	}

	start := time.Now()
	res, err := s.analyzer.IntegrateCumulative(req.PlayerTotal, req.DealerUpcard, lower, upper, req.Intervals)
	s.metrics.observe("integrate", start, err)
	if err != nil {
		s.errorHandler.HandleError(w, r, "integrate", err)
		return
	}

	s.record(analysis.MethodTrapezoidal, req, res, res.CumulativeProbability, res.Elapsed)
	s.writeJSON(w, http.StatusOK, IntegrateResponse{Result: res, EngineVersion: EngineVersion})
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if !s.decode(w, r, &req) {
		return
	}

	start := time.Now()
	res, err := s.simulator.Simulate(r.Context(), req.toEngine(s.simIterations))
	s.metrics.observe("simulate", start, err)
	if err != nil {
		s.errorHandler.HandleError(w, r, "simulate", err)
		return
	}
	s.metrics.simulatedHands.Add(float64(res.Iterations))

	s.writeJSON(w, http.StatusOK, SimulateResponse{Result: res, EngineVersion: EngineVersion, Echo: req})
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	var req CountRequest
	if !s.decode(w, r, &req) {
		return
	}
	system, err := counting.ParseSystem(req.System)
	if err != nil {
		s.errorHandler.HandleValidationError(w, r, "system", err.Error())
		return
	}
	for _, c := range req.Cards {
		if !blackjack.ValidRank(c.Rank) {
			s.errorHandler.HandleValidationError(w, r, "cards", fmt.Sprintf("unknown rank %q", c.Rank))
			return
		}
	}

	start := time.Now()
	res, err := counting.CountWith(system, req.Cards)
	s.metrics.observe("count", start, err)
	if err != nil {
		s.errorHandler.HandleError(w, r, "count", err)
		return
	}
	s.writeJSON(w, http.StatusOK, CountResponse{Result: res, EngineVersion: EngineVersion})
}

func (s *Server) handleBet(w http.ResponseWriter, r *http.Request) {
	var req BetRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Balance < 0 {
		s.errorHandler.HandleValidationError(w, r, "balance", "balance must not be negative")
		return
	}
	if req.BaseBet == 0 {
		req.BaseBet = counting.DefaultBaseBet
	}
	if req.BaseBet < 0 {
		s.errorHandler.HandleValidationError(w, r, "base_bet", "base_bet must be positive")
		return
	}

	start := time.Now()
	resp := BetResponse{
		OptimalBet:    counting.OptimalBet(req.Balance, req.TrueCount, req.BaseBet),
		Amount:        counting.BetAmount(req.Balance, req.TrueCount, req.BaseBet),
		Source:        "kelly",
		EngineVersion: EngineVersion,
	}

	if req.Script != "" {
		script, err := betscript.Compile(req.Script, req.Seed)
		if err == nil {
			resp.Source = "script"
			if len(req.TrueCounts) > 0 {
				var plan betscript.Plan
				plan, err = script.Plan(req.Balance, req.BaseBet, req.TrueCounts)
				resp.Plan = &plan
			} else {
				resp.Amount, err = script.Bet(betscript.State{
					Balance:   req.Balance,
					BaseBet:   req.BaseBet,
					TrueCount: req.TrueCount,
					Round:     1,
				})
			}
		}
		if err != nil {
			s.metrics.observe("bet", start, err)
			s.errorHandler.HandleScriptError(w, r, err)
			return
		}
		resp.Logs = script.Logs()
	}

	s.metrics.observe("bet", start, nil)
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProbabilities(w http.ResponseWriter, r *http.Request) {
	var req HandRequest
	if !s.decode(w, r, &req) {
		return
	}
	if field, msg := req.validate(); field != "" {
		s.errorHandler.HandleValidationError(w, r, field, msg)
		return
	}

	start := time.Now()
	report := s.analyzer.Probabilities(req.PlayerTotal, req.DealerUpcard, req.remaining())
	s.metrics.observe("probabilities", start, nil)
	s.writeJSON(w, http.StatusOK, ProbabilitiesResponse{Report: report, EngineVersion: EngineVersion})
}

// handleStrategy answers GET /strategy?total=16&upcard=10&soft=false.
func (s *Server) handleStrategy(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	total, err := strconv.Atoi(q.Get("total"))
	if err != nil {
		s.errorHandler.HandleValidationError(w, r, "total", "total must be an integer")
		return
	}
	upcard, err := strconv.Atoi(q.Get("upcard"))
	if err != nil || upcard < 2 || upcard > 11 {
		s.errorHandler.HandleValidationError(w, r, "upcard", "upcard must be an integer in 2..11")
		return
	}
	soft := false
	if v := q.Get("soft"); v != "" {
		if soft, err = strconv.ParseBool(v); err != nil {
			s.errorHandler.HandleValidationError(w, r, "soft", "soft must be a boolean")
			return
		}
	}

	s.writeJSON(w, http.StatusOK, StrategyResponse{
		PlayerTotal:   total,
		DealerUpcard:  upcard,
		Soft:          soft,
		Advice:        blackjack.BasicStrategy(total, upcard, soft),
		EngineVersion: EngineVersion,
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, GetVersionInfo())
}

func (s *Server) handleMethodStats(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.errorHandler.HandleUnavailable(w, r, "recording")
		return
	}
	methods, err := s.store.MethodPerformance(r.Context())
	if err != nil {
		s.errorHandler.HandleError(w, r, "method_stats", err)
		return
	}
	if methods == nil {
		methods = []store.MethodStats{}
	}
	s.writeJSON(w, http.StatusOK, MethodStatsResponse{Methods: methods, EngineVersion: EngineVersion})
}

func (s *Server) handleRecommendationStats(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.errorHandler.HandleUnavailable(w, r, "recording")
		return
	}
	rows, err := s.store.RecommendationAccuracy(r.Context())
	if err != nil {
		s.errorHandler.HandleError(w, r, "recommendation_stats", err)
		return
	}
	if rows == nil {
		rows = []store.AccuracyRow{}
	}
	s.writeJSON(w, http.StatusOK, AccuracyResponse{Rows: rows, EngineVersion: EngineVersion})
}

func (s *Server) handleActualAction(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.errorHandler.HandleUnavailable(w, r, "recording")
		return
	}
	var req ActualActionRequest
	if !s.decode(w, r, &req) {
		return
	}
	switch blackjack.Action(req.Action) {
	case blackjack.ActionHit, blackjack.ActionStand, blackjack.ActionDouble:
	default:
		s.errorHandler.HandleValidationError(w, r, "action", fmt.Sprintf("unknown action %q", req.Action))
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.store.SetActualAction(r.Context(), id, req.Action); err != nil {
		s.errorHandler.HandleError(w, r, "set_actual_action", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"id":             id,
		"actual_action":  req.Action,
		"engine_version": EngineVersion,
	})
}

func (s *Server) handleGetRecommendation(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.errorHandler.HandleUnavailable(w, r, "recording")
		return
	}
	rec, err := s.store.GetRecommendation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.errorHandler.HandleError(w, r, "get_recommendation", err)
		return
	}
	s.writeJSON(w, http.StatusOK, RecommendationResponse{Recommendation: rec, EngineVersion: EngineVersion})
}

// handleListCalculations reads the hand reference from ?hand_ref=.
func (s *Server) handleListCalculations(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.errorHandler.HandleUnavailable(w, r, "recording")
		return
	}
	handRef := r.URL.Query().Get("hand_ref")
	if handRef == "" {
		s.errorHandler.HandleValidationError(w, r, "hand_ref", "hand_ref is required")
		return
	}
	calcs, err := s.store.ListCalculations(r.Context(), handRef)
	if err != nil {
		s.errorHandler.HandleError(w, r, "list_calculations", err)
		return
	}
	if calcs == nil {
		calcs = []store.Calculation{}
	}
	s.writeJSON(w, http.StatusOK, CalculationsResponse{HandRef: handRef, Calculations: calcs, EngineVersion: EngineVersion})
}

// record hands a single-method run to the calculation sink, if any.
func (s *Server) record(method string, input, steps interface{}, value float64, elapsed time.Duration) {
	if s.calculations == nil {
		return
	}
	inputJSON, err := json.Marshal(input)
	if err != nil {
		s.logger.Warn("record_calculation_skipped", zap.String("method", method), zap.Error(err))
		return
	}
	stepsJSON, err := json.Marshal(steps)
	if err != nil {
		s.logger.Warn("record_calculation_skipped", zap.String("method", method), zap.Error(err))
		return
	}
	s.calculations.Record(store.Calculation{
		HandRef:         uuid.NewString(),
		Method:          method,
		InputJSON:       string(inputJSON),
		StepsJSON:       string(stepsJSON),
		ResultValue:     value,
		ExecutionTimeMs: float64(elapsed.Microseconds()) / 1000,
	})
}
