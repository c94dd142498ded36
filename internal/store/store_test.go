package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/blackjack-advisor-go/internal/analysis"
	"github.com/MJE43/blackjack-advisor-go/internal/blackjack"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "advisor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func analyse(t *testing.T, total, up int) (analysis.AnalysisResult, blackjack.RemainingCounts) {
	t.Helper()
	a := analysis.NewAnalyzer(blackjack.DefaultTables(), analysis.DefaultOptions(), nil)
	remaining := blackjack.FullShoe(1)
	res, err := a.AnalyzeHand(context.Background(), total, up, remaining)
	require.NoError(t, err)
	return res, remaining
}

func TestNewInMemory(t *testing.T) {
	s, err := New(":memory:")
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Ping(context.Background()))
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "advisor.db")
	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = New(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestSaveAnalysis(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	res, remaining := analyse(t, 15, 7)

	id, err := s.SaveAnalysis(ctx, "hand-1", res, remaining)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	calcs, err := s.ListCalculations(ctx, "hand-1")
	require.NoError(t, err)
	require.Len(t, calcs, 3)

	byMethod := map[string]Calculation{}
	for _, c := range calcs {
		byMethod[c.Method] = c
	}
	assert.Equal(t, res.RootFinder.OptimalProbability, byMethod[analysis.MethodNewtonRaphson].ResultValue)
	assert.Equal(t, res.Interpolation.Value, byMethod[analysis.MethodInterpolation].ResultValue)
	assert.Equal(t, res.Integration.CumulativeProbability, byMethod[analysis.MethodTrapezoidal].ResultValue)

	var input handInput
	require.NoError(t, json.Unmarshal([]byte(byMethod[analysis.MethodNewtonRaphson].InputJSON), &input))
	assert.Equal(t, 15, input.PlayerTotal)
	assert.Equal(t, 7, input.Upcard)
	assert.Equal(t, 16, input.Remaining[10])

	rec, err := s.GetRecommendation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "hand-1", rec.HandRef)
	assert.Equal(t, string(res.Recommendation.Action), rec.RecommendedAction)
	assert.Equal(t, ActionPending, rec.ActualAction)
	assert.InDelta(t, res.Recommendation.Confidence, rec.Confidence, 1e-12)
}

func TestSaveAnalysisIsAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.db.ExecContext(ctx, `
		CREATE TRIGGER reject_recommendations BEFORE INSERT ON recommendations
		BEGIN SELECT RAISE(ABORT, 'recommendations rejected'); END`)
	require.NoError(t, err)

	res, remaining := analyse(t, 15, 7)
	_, err = s.SaveAnalysis(ctx, "hand-atomic", res, remaining)
	require.Error(t, err)

	calcs, err := s.ListCalculations(ctx, "hand-atomic")
	require.NoError(t, err)
	assert.Empty(t, calcs)
}

func TestSetActualAction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := Recommendation{HandRef: "h", PlayerTotal: 16, DealerUpcard: 10, RecommendedAction: "hit", Confidence: 0.6, HitWeight: 0.8}
	require.NoError(t, s.SaveRecommendation(ctx, &rec))
	require.NotEmpty(t, rec.ID)

	require.NoError(t, s.SetActualAction(ctx, rec.ID, "stand"))
	got, err := s.GetRecommendation(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "stand", got.ActualAction)

	assert.ErrorIs(t, s.SetActualAction(ctx, "missing", "hit"), ErrNotFound)
	_, err = s.GetRecommendation(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMethodPerformance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveCalculations(ctx, []Calculation{
		{HandRef: "a", Method: analysis.MethodNewtonRaphson, ResultValue: 0.4, ExecutionTimeMs: 1},
		{HandRef: "b", Method: analysis.MethodNewtonRaphson, ResultValue: 0.6, ExecutionTimeMs: 3},
		{HandRef: "a", Method: analysis.MethodTrapezoidal, ResultValue: 0.5, ExecutionTimeMs: 2},
	}))

	stats, err := s.MethodPerformance(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	nr := stats[0]
	assert.Equal(t, analysis.MethodNewtonRaphson, nr.Method)
	assert.EqualValues(t, 2, nr.UsageCount)
	assert.InDelta(t, 0.5, nr.AvgResult, 1e-12)
	assert.InDelta(t, 2.0, nr.AvgTimeMs, 1e-12)
	assert.InDelta(t, 1.0, nr.MinTimeMs, 1e-12)
	assert.InDelta(t, 3.0, nr.MaxTimeMs, 1e-12)

	assert.Equal(t, analysis.MethodTrapezoidal, stats[1].Method)
	assert.EqualValues(t, 1, stats[1].UsageCount)
}

func TestRecommendationAccuracySkipsPending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	save := func(advised, actual string, conf float64) {
		r := Recommendation{HandRef: "h", PlayerTotal: 12, DealerUpcard: 3, RecommendedAction: advised, ActualAction: actual, Confidence: conf}
		require.NoError(t, s.SaveRecommendation(ctx, &r))
	}
	save("hit", "hit", 0.6)
	save("hit", "hit", 0.8)
	save("hit", "stand", 1.0)
	save("stand", "", 0.9)

	rows, err := s.RecommendationAccuracy(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, AccuracyRow{RecommendedAction: "hit", ActualAction: "hit", Frequency: 2, AvgConfidence: rows[0].AvgConfidence}, rows[0])
	assert.InDelta(t, 0.7, rows[0].AvgConfidence, 1e-12)
	assert.Equal(t, "stand", rows[1].ActualAction)
	assert.EqualValues(t, 1, rows[1].Frequency)
}

func TestSaveCalculationsEmpty(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveCalculations(context.Background(), nil))
}

func TestRecorderFlushesOnClose(t *testing.T) {
	s := newTestStore(t)
	r := NewRecorder(s, 10, nil)

	for i := 0; i < 3; i++ {
		r.Record(Calculation{HandRef: "batch", Method: analysis.MethodInterpolation, ResultValue: float64(i)})
	}
	r.Close()

	calcs, err := s.ListCalculations(context.Background(), "batch")
	require.NoError(t, err)
	assert.Len(t, calcs, 3)
}

func TestRecorderFlushesWhenFull(t *testing.T) {
	s := newTestStore(t)
	r := NewRecorder(s, 2, nil)
	r.Record(
		Calculation{HandRef: "full", Method: analysis.MethodTrapezoidal, ResultValue: 1},
		Calculation{HandRef: "full", Method: analysis.MethodTrapezoidal, ResultValue: 2},
	)

	assert.Eventually(t, func() bool {
		calcs, err := s.ListCalculations(context.Background(), "full")
		return err == nil && len(calcs) == 2
	}, 2*time.Second, 10*time.Millisecond)
	r.Close()
}

func TestIsBusy(t *testing.T) {
	assert.True(t, isBusy(errString("database is locked (5) (SQLITE_BUSY)")))
	assert.False(t, isBusy(errString("no such table")))
}

type errString string

func (e errString) Error() string { return string(e) }
