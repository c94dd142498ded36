// Package analysis folds the root finder, interpolator and integrator into a
// single hit/stand recommendation for one hand.
package analysis

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/MJE43/blackjack-advisor-go/internal/blackjack"
	"github.com/MJE43/blackjack-advisor-go/internal/numeric"
)

// Method names used when results are recorded.
const (
	MethodNewtonRaphson = "newton_raphson"
	MethodInterpolation = "newton_interpolation"
	MethodTrapezoidal   = "trapezoidal_integration"
)

// Contribution weights of the three signals. Their sum is one.
const (
	weightRootFinder  = 0.5
	weightOptimalProb = 0.3
	weightCumulative  = 0.2
	optimalProbCutoff = 0.6
	cumulativeCutoff  = 0.5
	hitDecisionCutoff = 0.5
	densityVariance   = 0.1
)

// Options are the numeric defaults an Analyzer applies.
type Options struct {
	Tolerance     float64
	MaxIterations int
	Intervals     int
}

// DefaultOptions mirrors the numeric package defaults.
func DefaultOptions() Options {
	return Options{
		Tolerance:     numeric.DefaultTolerance,
		MaxIterations: numeric.DefaultMaxIterations,
		Intervals:     numeric.DefaultIntervals,
	}
}

// Analyzer is safe for concurrent use.
type Analyzer struct {
	tables *blackjack.Tables
	eval   *blackjack.Evaluator
	opts   Options
	logger *zap.Logger
}

// NewAnalyzer binds an analyzer to a table set. A nil logger disables logging.
func NewAnalyzer(tables *blackjack.Tables, opts Options, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		tables: tables,
		eval:   blackjack.NewEvaluator(tables),
		opts:   opts,
		logger: logger,
	}
}

// Evaluator exposes the EV evaluator backing the analyzer.
func (a *Analyzer) Evaluator() *blackjack.Evaluator {
	return a.eval
}

// Options returns the analyzer's numeric defaults.
func (a *Analyzer) Options() Options {
	return a.opts
}

// RootFinderResult is the outcome of the optimal-probability search.
type RootFinderResult struct {
	OptimalProbability float64             `json:"optimal_probability"`
	Recommendation     blackjack.Action    `json:"recommendation"`
	Iterations         int                 `json:"iterations"`
	Termination        numeric.Termination `json:"termination"`
	Steps              []numeric.Step      `json:"steps"`
	StartingPoint      float64             `json:"starting_point"`
	Elapsed            time.Duration       `json:"elapsed_ns"`
}

// SolveOptimalProbability runs Newton–Raphson on the hit-minus-stand EV,
// starting from the basic-strategy prior and bounded to [0,1]. The objective
// does not depend on x, so the derivative is zero and the search stops on its
// first iteration with the prior as its answer.
func (a *Analyzer) SolveOptimalProbability(playerTotal, upcard int, remaining blackjack.RemainingCounts, tolerance float64, maxIterations int) (RootFinderResult, error) {
	x0 := a.tables.HitPropensity(playerTotal, upcard)
	objective := func(float64) float64 {
		return a.eval.EVDifference(playerTotal, upcard, remaining)
	}

	res, err := numeric.NewtonRaphson(objective, x0, numeric.UnitInterval(tolerance, maxIterations))
	if err != nil {
		return RootFinderResult{}, err
	}

	action := blackjack.ActionStand
	if res.Root > 0.5 {
		action = blackjack.ActionHit
	}
	return RootFinderResult{
		OptimalProbability: res.Root,
		Recommendation:     action,
		Iterations:         res.Iterations,
		Termination:        res.Termination,
		Steps:              res.Steps,
		StartingPoint:      x0,
		Elapsed:            res.Elapsed,
	}, nil
}

// InterpolationResult is the interpolated card frequency at the player total.
type InterpolationResult struct {
	Value   float64         `json:"interpolated_value"`
	Target  float64         `json:"target"`
	Points  []numeric.Point `json:"points"`
	Table   [][]float64     `json:"table"`
	Elapsed time.Duration   `json:"elapsed_ns"`
}

// Interpolate evaluates the Newton polynomial through points at target.
func (a *Analyzer) Interpolate(points []numeric.Point, target float64) (InterpolationResult, error) {
	res, err := numeric.Interpolate(points, target)
	if err != nil {
		return InterpolationResult{}, err
	}
	return InterpolationResult{
		Value:   res.Value,
		Target:  target,
		Points:  points,
		Table:   res.Table,
		Elapsed: res.Elapsed,
	}, nil
}

// FrequencyPoints turns remaining counts into (value, share of shoe) nodes in
// ascending value order. An empty shoe gives every node a share of zero.
func FrequencyPoints(remaining blackjack.RemainingCounts) []numeric.Point {
	total := remaining.Total()
	values := remaining.Values()
	points := make([]numeric.Point, 0, len(values))
	for _, v := range values {
		y := 0.0
		if total > 0 {
			y = float64(remaining[v]) / float64(total)
		}
		points = append(points, numeric.Point{X: float64(v), Y: y})
	}
	return points
}

// IntegrationResult is the probability mass of the prior-centred density.
type IntegrationResult struct {
	CumulativeProbability float64       `json:"cumulative_probability"`
	Center                float64       `json:"center"`
	Lower                 float64       `json:"lower"`
	Upper                 float64       `json:"upper"`
	StepSize              float64       `json:"step_size"`
	Intervals             int           `json:"intervals"`
	Elapsed               time.Duration `json:"elapsed_ns"`
}

// IntegrateCumulative integrates a normal density with variance 0.1 centred
// on the basic-strategy prior over [lower, upper]. The result is not clamped.
func (a *Analyzer) IntegrateCumulative(playerTotal, upcard int, lower, upper float64, intervals int) (IntegrationResult, error) {
	center := a.tables.HitPropensity(playerTotal, upcard)
	density := distuv.Normal{Mu: center, Sigma: math.Sqrt(densityVariance)}

	res, err := numeric.Trapezoid(density.Prob, lower, upper, intervals)
	if err != nil {
		return IntegrationResult{}, err
	}
	return IntegrationResult{
		CumulativeProbability: res.Integral,
		Center:                center,
		Lower:                 lower,
		Upper:                 upper,
		StepSize:              res.StepSize,
		Intervals:             res.Intervals,
		Elapsed:               res.Elapsed,
	}, nil
}

// Weights are the per-signal contributions to the hit weight.
type Weights struct {
	RootFinder         float64 `json:"root_finder"`
	OptimalProbability float64 `json:"optimal_probability"`
	Cumulative         float64 `json:"cumulative"`
}

// Reasons echo the signal values behind a recommendation.
type Reasons struct {
	RootFinder            blackjack.Action `json:"newton_raphson"`
	OptimalProbability    float64          `json:"optimal_probability"`
	CumulativeProbability float64          `json:"cumulative_probability"`
}

// Recommendation is the final hit/stand call.
type Recommendation struct {
	Action     blackjack.Action `json:"action"`
	Confidence float64          `json:"confidence"`
	HitWeight  float64          `json:"hit_weight"`
	Weights    Weights          `json:"weights"`
	Reasons    Reasons          `json:"reasons"`
}

// AnalysisResult bundles every intermediate result with the recommendation.
type AnalysisResult struct {
	PlayerTotal    int                 `json:"player_total"`
	Upcard         int                 `json:"dealer_upcard"`
	RootFinder     RootFinderResult    `json:"newton_raphson"`
	Interpolation  InterpolationResult `json:"newton_interpolation"`
	Integration    IntegrationResult   `json:"trapezoidal_integration"`
	Recommendation Recommendation      `json:"final_recommendation"`
	Elapsed        time.Duration       `json:"elapsed_ns"`
}

// Recommend combines the three signals. Hit wins when the weighted vote
// exceeds one half; confidence is the vote's distance from one half, scaled
// to [0,1] and rounded to three decimals.
func Recommend(root RootFinderResult, cumulative float64) Recommendation {
	var w Weights
	if root.Recommendation == blackjack.ActionHit {
		w.RootFinder = weightRootFinder
	}
	if root.OptimalProbability > optimalProbCutoff {
		w.OptimalProbability = weightOptimalProb
	}
	if cumulative > cumulativeCutoff {
		w.Cumulative = weightCumulative
	}
	hitWeight := w.RootFinder + w.OptimalProbability + w.Cumulative

	action := blackjack.ActionStand
	if hitWeight > hitDecisionCutoff {
		action = blackjack.ActionHit
	}
	return Recommendation{
		Action:     action,
		Confidence: round(math.Abs(hitWeight-hitDecisionCutoff)*2, 3),
		HitWeight:  hitWeight,
		Weights:    w,
		Reasons: Reasons{
			RootFinder:            root.Recommendation,
			OptimalProbability:    root.OptimalProbability,
			CumulativeProbability: cumulative,
		},
	}
}

// AnalyzeHand runs the three methods concurrently with the analyzer defaults
// and folds them into one recommendation.
func (a *Analyzer) AnalyzeHand(ctx context.Context, playerTotal, upcard int, remaining blackjack.RemainingCounts) (AnalysisResult, error) {
	start := time.Now()
	if err := remaining.Validate(); err != nil {
		return AnalysisResult{}, fmt.Errorf("%w: %v", numeric.ErrInvalidArgument, err)
	}

	out := AnalysisResult{PlayerTotal: playerTotal, Upcard: upcard}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := a.SolveOptimalProbability(playerTotal, upcard, remaining, a.opts.Tolerance, a.opts.MaxIterations)
		if err != nil {
			return fmt.Errorf("root finder: %w", err)
		}
		out.RootFinder = res
		return ctx.Err()
	})
	g.Go(func() error {
		res, err := a.Interpolate(FrequencyPoints(remaining), float64(playerTotal))
		if err != nil {
			return fmt.Errorf("interpolation: %w", err)
		}
		out.Interpolation = res
		return ctx.Err()
	})
	g.Go(func() error {
		res, err := a.IntegrateCumulative(playerTotal, upcard, 0, 1, a.opts.Intervals)
		if err != nil {
			return fmt.Errorf("integration: %w", err)
		}
		out.Integration = res
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		a.logger.Warn("analysis_failed",
			zap.Int("player_total", playerTotal),
			zap.Int("dealer_upcard", upcard),
			zap.Error(err))
		return AnalysisResult{}, err
	}

	out.Recommendation = Recommend(out.RootFinder, out.Integration.CumulativeProbability)
	out.Elapsed = time.Since(start)

	a.logger.Debug("analysis_completed",
		zap.Int("player_total", playerTotal),
		zap.Int("dealer_upcard", upcard),
		zap.String("action", string(out.Recommendation.Action)),
		zap.Float64("confidence", out.Recommendation.Confidence),
		zap.String("termination", string(out.RootFinder.Termination)),
		zap.Duration("elapsed", out.Elapsed))
	return out, nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
