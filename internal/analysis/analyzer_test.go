package analysis

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/blackjack-advisor-go/internal/blackjack"
	"github.com/MJE43/blackjack-advisor-go/internal/numeric"
)

func newTestAnalyzer() *Analyzer {
	return NewAnalyzer(blackjack.DefaultTables(), DefaultOptions(), nil)
}

func TestAnalyzeHandFifteenAgainstSeven(t *testing.T) {
	a := newTestAnalyzer()
	res, err := a.AnalyzeHand(context.Background(), 15, 7, blackjack.FullShoe(1))
	require.NoError(t, err)

	// The objective is flat in x, so the search stops immediately at the prior.
	assert.Equal(t, 1.0, res.RootFinder.StartingPoint)
	assert.Equal(t, 1.0, res.RootFinder.OptimalProbability)
	assert.Equal(t, numeric.TerminationDerivativeVanished, res.RootFinder.Termination)
	assert.Equal(t, 1, res.RootFinder.Iterations)
	assert.Empty(t, res.RootFinder.Steps)
	assert.Equal(t, blackjack.ActionHit, res.RootFinder.Recommendation)

	assert.InDelta(t, 0.4992, res.Integration.CumulativeProbability, 1e-4)
	assert.Equal(t, 1.0, res.Integration.Center)
	assert.Equal(t, 100, res.Integration.Intervals)

	assert.Len(t, res.Interpolation.Points, 11)
	assert.Equal(t, 15.0, res.Interpolation.Target)
	assert.False(t, math.IsNaN(res.Interpolation.Value))

	rec := res.Recommendation
	assert.Equal(t, blackjack.ActionHit, rec.Action)
	assert.InDelta(t, 0.8, rec.HitWeight, 1e-12)
	assert.Equal(t, 0.6, rec.Confidence)
	assert.Equal(t, Weights{RootFinder: 0.5, OptimalProbability: 0.3}, rec.Weights)
	assert.Equal(t, blackjack.ActionHit, rec.Reasons.RootFinder)
}

func TestAnalyzeHandTwelveAgainstFive(t *testing.T) {
	a := newTestAnalyzer()
	res, err := a.AnalyzeHand(context.Background(), 12, 5, blackjack.FullShoe(1))
	require.NoError(t, err)
	assert.Equal(t, blackjack.ActionStand, res.Recommendation.Action)
	assert.Equal(t, 0.0, res.Recommendation.HitWeight)
	assert.Equal(t, 1.0, res.Recommendation.Confidence)
}

func TestAnalyzeHandUnknownTotalUsesNeutralPrior(t *testing.T) {
	a := newTestAnalyzer()
	res, err := a.AnalyzeHand(context.Background(), 4, 5, blackjack.FullShoe(1))
	require.NoError(t, err)
	assert.Equal(t, 0.5, res.RootFinder.OptimalProbability)
	assert.Equal(t, blackjack.ActionStand, res.RootFinder.Recommendation)
	assert.InDelta(t, 0.8861, res.Integration.CumulativeProbability, 1e-4)
	assert.InDelta(t, 0.2, res.Recommendation.HitWeight, 1e-12)
	assert.Equal(t, blackjack.ActionStand, res.Recommendation.Action)
	assert.Equal(t, 0.6, res.Recommendation.Confidence)
}

func TestAnalyzeHandInsufficientData(t *testing.T) {
	a := newTestAnalyzer()
	_, err := a.AnalyzeHand(context.Background(), 15, 7, blackjack.RemainingCounts{10: 5})
	assert.ErrorIs(t, err, numeric.ErrInsufficientData)
}

func TestAnalyzeHandRejectsNegativeCounts(t *testing.T) {
	a := newTestAnalyzer()
	_, err := a.AnalyzeHand(context.Background(), 15, 7, blackjack.RemainingCounts{10: -1, 5: 2})
	assert.ErrorIs(t, err, numeric.ErrInvalidArgument)
}

func TestAnalyzeHandEmptyShoe(t *testing.T) {
	a := newTestAnalyzer()
	empty := blackjack.RemainingCounts{2: 0, 10: 0}
	res, err := a.AnalyzeHand(context.Background(), 15, 7, empty)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Interpolation.Value)
}

func TestAnalyzeHandCancelled(t *testing.T) {
	a := newTestAnalyzer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.AnalyzeHand(ctx, 15, 7, blackjack.FullShoe(1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecommendWeights(t *testing.T) {
	tests := []struct {
		name       string
		root       RootFinderResult
		cumulative float64
		action     blackjack.Action
		hitWeight  float64
		confidence float64
	}{
		{"all signals hit", RootFinderResult{Recommendation: blackjack.ActionHit, OptimalProbability: 0.9}, 0.7, blackjack.ActionHit, 1.0, 1.0},
		{"root finder alone ties", RootFinderResult{Recommendation: blackjack.ActionHit, OptimalProbability: 0.55}, 0.1, blackjack.ActionStand, 0.5, 0.0},
		{"root finder and cumulative", RootFinderResult{Recommendation: blackjack.ActionHit, OptimalProbability: 0.55}, 0.6, blackjack.ActionHit, 0.7, 0.4},
		{"no signals", RootFinderResult{Recommendation: blackjack.ActionStand, OptimalProbability: 0.2}, 0.4, blackjack.ActionStand, 0.0, 1.0},
		{"cutoffs are strict", RootFinderResult{Recommendation: blackjack.ActionStand, OptimalProbability: 0.6}, 0.5, blackjack.ActionStand, 0.0, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Recommend(tt.root, tt.cumulative)
			assert.Equal(t, tt.action, rec.Action)
			assert.InDelta(t, tt.hitWeight, rec.HitWeight, 1e-12)
			assert.Equal(t, tt.confidence, rec.Confidence)
			assert.GreaterOrEqual(t, rec.Confidence, 0.0)
			assert.LessOrEqual(t, rec.Confidence, 1.0)
		})
	}
}

func TestSolveOptimalProbabilityInvalid(t *testing.T) {
	a := newTestAnalyzer()
	_, err := a.SolveOptimalProbability(15, 7, blackjack.FullShoe(1), numeric.DefaultTolerance, 0)
	assert.ErrorIs(t, err, numeric.ErrInvalidArgument)
}

func TestIntegrateCumulative(t *testing.T) {
	a := newTestAnalyzer()

	wide, err := a.IntegrateCumulative(12, 2, -5, 5, 1000)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, wide.CumulativeProbability, 1e-6)

	_, err = a.IntegrateCumulative(12, 2, 0, 1, 0)
	assert.ErrorIs(t, err, numeric.ErrInvalidArgument)
}

func TestFrequencyPoints(t *testing.T) {
	points := FrequencyPoints(blackjack.RemainingCounts{10: 6, 2: 2})
	require.Len(t, points, 2)
	assert.Equal(t, numeric.Point{X: 2, Y: 0.25}, points[0])
	assert.Equal(t, numeric.Point{X: 10, Y: 0.75}, points[1])
}

func TestProbabilities(t *testing.T) {
	a := newTestAnalyzer()
	report := a.Probabilities(20, 6, blackjack.FullShoe(1))

	assert.Equal(t, 56, report.CardsRemaining)
	assert.Equal(t, 0.9286, report.BustIfHit)
	assert.Equal(t, 0.81, report.WinIfStand)
	assert.Equal(t, 0.42, report.DealerBust)
	assert.Equal(t, 0.2857, report.NextCard[10])
	assert.Equal(t, 0.0714, report.NextCard[5])
	assert.Len(t, report.NextCard, 11)
	assert.Greater(t, report.StandExpected, report.HitExpectedValue)
}

func TestProbabilitiesEmptyShoe(t *testing.T) {
	a := newTestAnalyzer()
	report := a.Probabilities(12, 6, blackjack.RemainingCounts{})
	assert.Equal(t, 0, report.CardsRemaining)
	assert.Equal(t, 0.0, report.BustIfHit)
	assert.Equal(t, -1.0, report.HitExpectedValue)
	assert.Empty(t, report.NextCard)
}
