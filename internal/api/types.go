package api

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/MJE43/blackjack-advisor-go/internal/analysis"
	"github.com/MJE43/blackjack-advisor-go/internal/betscript"
	"github.com/MJE43/blackjack-advisor-go/internal/blackjack"
	"github.com/MJE43/blackjack-advisor-go/internal/counting"
	"github.com/MJE43/blackjack-advisor-go/internal/engine"
	"github.com/MJE43/blackjack-advisor-go/internal/montecarlo"
	"github.com/MJE43/blackjack-advisor-go/internal/numeric"
	"github.com/MJE43/blackjack-advisor-go/internal/store"
)

// EngineError represents a structured error response with context
type EngineError struct {
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp string                 `json:"timestamp,omitempty"`
}

// Error implements the error interface
func (e EngineError) Error() string {
	return e.Message
}

// Error types with proper categorization
const (
	// Input validation errors
	ErrTypeInvalidParams = "invalid_params"
	ErrTypeValidation    = "validation_error"

	// Numeric method errors
	ErrTypeInsufficientData = "insufficient_data"
	ErrTypeDegenerateInput  = "degenerate_input"
	ErrTypeScript           = "script_error"

	// System errors
	ErrTypeNotFound           = "not_found"
	ErrTypeTimeout            = "timeout"
	ErrTypeInternal           = "internal_error"
	ErrTypeServiceUnavailable = "service_unavailable"
)

// ErrorCategory represents error categories for monitoring
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryNumeric    ErrorCategory = "numeric"
	CategorySystem     ErrorCategory = "system"
	CategoryTimeout    ErrorCategory = "timeout"
)

// GetErrorCategory returns the category for an error type
func GetErrorCategory(errType string) ErrorCategory {
	switch errType {
	case ErrTypeInvalidParams, ErrTypeValidation, ErrTypeNotFound:
		return CategoryValidation
	case ErrTypeInsufficientData, ErrTypeDegenerateInput, ErrTypeScript:
		return CategoryNumeric
	case ErrTypeTimeout:
		return CategoryTimeout
	default:
		return CategorySystem
	}
}

// HandRequest identifies a hand and the shoe it is played from. Remaining
// wins over DealtCards; with neither a fresh shoe of Decks decks is assumed.
type HandRequest struct {
	PlayerTotal  int                       `json:"player_total"`
	DealerUpcard int                       `json:"dealer_upcard"`
	Remaining    blackjack.RemainingCounts `json:"remaining,omitempty"`
	DealtCards   []blackjack.Card          `json:"dealt_cards,omitempty"`
	Decks        int                       `json:"decks,omitempty"`
	HandRef      string                    `json:"hand_ref,omitempty"`
}

func (h HandRequest) validate() (field, message string) {
	if h.PlayerTotal < 1 || h.PlayerTotal > 21 {
		return "player_total", fmt.Sprintf("player_total must be in 1..21, got %d", h.PlayerTotal)
	}
	if h.DealerUpcard < 1 || h.DealerUpcard > 11 {
		return "dealer_upcard", fmt.Sprintf("dealer_upcard must be in 1..11, got %d", h.DealerUpcard)
	}
	if h.Decks < 0 {
		return "decks", "decks must not be negative"
	}
	for _, c := range h.DealtCards {
		if !blackjack.ValidRank(c.Rank) {
			return "dealt_cards", fmt.Sprintf("unknown rank %q", c.Rank)
		}
	}
	return "", ""
}

func (h HandRequest) remaining() blackjack.RemainingCounts {
	switch {
	case h.Remaining != nil:
		return h.Remaining
	case len(h.DealtCards) > 0:
		return blackjack.RemainingFromDealt(h.DealtCards, h.Decks)
	default:
		return blackjack.FullShoe(h.Decks)
	}
}

// AnalyzeResponse wraps a full hand analysis.
type AnalyzeResponse struct {
	Analysis         analysis.AnalysisResult `json:"analysis"`
	HandRef          string                  `json:"hand_ref,omitempty"`
	RecommendationID string                  `json:"recommendation_id,omitempty"`
	EngineVersion    string                  `json:"engine_version"`
}

// SolveRequest runs the root finder alone. Zero tolerance or iteration
// count means the configured default.
type SolveRequest struct {
	HandRequest
	Tolerance     float64 `json:"tolerance,omitempty"`
	MaxIterations int     `json:"max_iterations,omitempty"`
}

type SolveResponse struct {
	Result        analysis.RootFinderResult `json:"result"`
	EngineVersion string                    `json:"engine_version"`
}

// InterpolateRequest evaluates the Newton polynomial through Points at Target.
type InterpolateRequest struct {
	Points []numeric.Point `json:"points"`
	Target float64         `json:"target"`
}

type InterpolateResponse struct {
	Result        analysis.InterpolationResult `json:"result"`
	EngineVersion string                       `json:"engine_version"`
}

// IntegrateRequest integrates the prior-centred density. Bounds default to [0,1].
type IntegrateRequest struct {
	PlayerTotal  int      `json:"player_total"`
	DealerUpcard int      `json:"dealer_upcard"`
	Lower        *float64 `json:"lower,omitempty"`
	Upper        *float64 `json:"upper,omitempty"`
	Intervals    int      `json:"intervals,omitempty"`
}

type IntegrateResponse struct {
	Result        analysis.IntegrationResult `json:"result"`
	EngineVersion string                     `json:"engine_version"`
}

// SimulateRequest runs the Monte Carlo check. Zero iterations means the
// configured default.
type SimulateRequest struct {
	PlayerTotal  int     `json:"player_total"`
	DealerUpcard int     `json:"dealer_upcard"`
	Action       string  `json:"action"`
	Iterations   int     `json:"iterations,omitempty"`
	Seed         *uint64 `json:"seed,omitempty"`
	Generator    string  `json:"generator,omitempty"`
}

type SimulateResponse struct {
	Result        montecarlo.Result `json:"result"`
	EngineVersion string            `json:"engine_version"`
	Echo          SimulateRequest   `json:"echo"`
}

func (r SimulateRequest) toEngine(defaultIterations int) montecarlo.Request {
	iterations := r.Iterations
	if iterations == 0 {
		iterations = defaultIterations
	}
	return montecarlo.Request{
		PlayerTotal: r.PlayerTotal,
		Upcard:      r.DealerUpcard,
		Action:      blackjack.Action(r.Action),
		Iterations:  iterations,
		Seed:        r.Seed,
		Generator:   engine.Generator(r.Generator),
	}
}

// CountRequest counts the dealt cards under System (default hi-lo).
type CountRequest struct {
	Cards  []blackjack.Card `json:"cards"`
	System string           `json:"system,omitempty"`
}

type CountResponse struct {
	Result        counting.Result `json:"result"`
	EngineVersion string          `json:"engine_version"`
}

// BetRequest sizes a wager. With Script set the ramp decides; otherwise the
// Kelly rule does. TrueCounts turns a scripted request into a plan.
type BetRequest struct {
	Balance    float64   `json:"balance"`
	TrueCount  float64   `json:"true_count"`
	BaseBet    float64   `json:"base_bet,omitempty"`
	Script     string    `json:"script,omitempty"`
	Seed       uint32    `json:"seed,omitempty"`
	TrueCounts []float64 `json:"true_counts,omitempty"`
}

type BetResponse struct {
	OptimalBet    float64         `json:"optimal_bet"`
	Amount        decimal.Decimal `json:"amount"`
	Source        string          `json:"source"`
	Plan          *betscript.Plan `json:"plan,omitempty"`
	Logs          []string        `json:"logs,omitempty"`
	EngineVersion string          `json:"engine_version"`
}

type ProbabilitiesResponse struct {
	Report        analysis.ProbabilityReport `json:"report"`
	EngineVersion string                     `json:"engine_version"`
}

type StrategyResponse struct {
	PlayerTotal   int              `json:"player_total"`
	DealerUpcard  int              `json:"dealer_upcard"`
	Soft          bool             `json:"soft"`
	Advice        blackjack.Advice `json:"advice"`
	EngineVersion string           `json:"engine_version"`
}

// ActualActionRequest records what the player did after a recommendation.
type ActualActionRequest struct {
	Action string `json:"action"`
}

type MethodStatsResponse struct {
	Methods       []store.MethodStats `json:"methods"`
	EngineVersion string              `json:"engine_version"`
}

type AccuracyResponse struct {
	Rows          []store.AccuracyRow `json:"rows"`
	EngineVersion string              `json:"engine_version"`
}

type RecommendationResponse struct {
	Recommendation store.Recommendation `json:"recommendation"`
	EngineVersion  string               `json:"engine_version"`
}

// CalculationsResponse lists the numeric runs recorded for one hand.
type CalculationsResponse struct {
	HandRef       string              `json:"hand_ref"`
	Calculations  []store.Calculation `json:"calculations"`
	EngineVersion string              `json:"engine_version"`
}
