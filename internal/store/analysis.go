package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/MJE43/blackjack-advisor-go/internal/analysis"
	"github.com/MJE43/blackjack-advisor-go/internal/blackjack"
)

type handInput struct {
	PlayerTotal int                       `json:"player_total"`
	Upcard      int                       `json:"dealer_upcard"`
	Remaining   blackjack.RemainingCounts `json:"remaining,omitempty"`
}

// CalculationsFor flattens the three method results of res into rows.
func CalculationsFor(handRef string, res analysis.AnalysisResult, remaining blackjack.RemainingCounts) ([]Calculation, error) {
	input, err := json.Marshal(handInput{PlayerTotal: res.PlayerTotal, Upcard: res.Upcard, Remaining: remaining})
	if err != nil {
		return nil, fmt.Errorf("encode input: %w", err)
	}
	rootSteps, err := json.Marshal(res.RootFinder.Steps)
	if err != nil {
		return nil, fmt.Errorf("encode newton steps: %w", err)
	}
	table, err := json.Marshal(res.Interpolation.Table)
	if err != nil {
		return nil, fmt.Errorf("encode divided differences: %w", err)
	}
	quad, err := json.Marshal(res.Integration)
	if err != nil {
		return nil, fmt.Errorf("encode integration: %w", err)
	}

	return []Calculation{
		{
			HandRef:         handRef,
			Method:          analysis.MethodNewtonRaphson,
			InputJSON:       string(input),
			StepsJSON:       string(rootSteps),
			ResultValue:     res.RootFinder.OptimalProbability,
			ExecutionTimeMs: float64(res.RootFinder.Elapsed.Microseconds()) / 1000,
		},
		{
			HandRef:         handRef,
			Method:          analysis.MethodInterpolation,
			InputJSON:       string(input),
			StepsJSON:       string(table),
			ResultValue:     res.Interpolation.Value,
			ExecutionTimeMs: float64(res.Interpolation.Elapsed.Microseconds()) / 1000,
		},
		{
			HandRef:         handRef,
			Method:          analysis.MethodTrapezoidal,
			InputJSON:       string(input),
			StepsJSON:       string(quad),
			ResultValue:     res.Integration.CumulativeProbability,
			ExecutionTimeMs: float64(res.Integration.Elapsed.Microseconds()) / 1000,
		},
	}, nil
}

// SaveAnalysis stores the method runs and final recommendation of one
// analysed hand in a single transaction and returns the new recommendation id.
func (s *Store) SaveAnalysis(ctx context.Context, handRef string, res analysis.AnalysisResult, remaining blackjack.RemainingCounts) (string, error) {
	calcs, err := CalculationsFor(handRef, res, remaining)
	if err != nil {
		return "", err
	}
	fillCalculations(calcs)
	rec := RecommendationFor(handRef, res)
	fillRecommendation(&rec)

	err = s.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := insertCalculations(ctx, tx, calcs); err != nil {
			return err
		}
		return insertRecommendation(ctx, tx, &rec)
	})
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

// RecommendationFor builds a pending recommendation row from res.
func RecommendationFor(handRef string, res analysis.AnalysisResult) Recommendation {
	return Recommendation{
		HandRef:           handRef,
		PlayerTotal:       res.PlayerTotal,
		DealerUpcard:      res.Upcard,
		RecommendedAction: string(res.Recommendation.Action),
		ActualAction:      ActionPending,
		Confidence:        res.Recommendation.Confidence,
		HitWeight:         res.Recommendation.HitWeight,
	}
}
