package montecarlo

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/blackjack-advisor-go/internal/blackjack"
	"github.com/MJE43/blackjack-advisor-go/internal/engine"
	"github.com/MJE43/blackjack-advisor-go/internal/numeric"
)

func seed(v uint64) *uint64 { return &v }

// fixedCard returns a source that always draws the given card value.
func fixedCard(value int) engine.Source {
	for i, v := range drawTable {
		if v == value {
			f := (float64(i) + 0.5) / float64(len(drawTable))
			return engine.SourceFunc(func() float64 { return f })
		}
	}
	panic("no such card")
}

func TestDrawTable(t *testing.T) {
	require.Len(t, drawTable, 56)
	counts := map[int]int{}
	for _, v := range drawTable {
		counts[v]++
	}
	assert.Equal(t, 16, counts[10])
	for _, v := range []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 11} {
		assert.Equal(t, 4, counts[v], "value %d", v)
	}
	assert.Equal(t, 1, drawCard(engine.SourceFunc(func() float64 { return 0 })))
	assert.Equal(t, 11, drawCard(engine.SourceFunc(func() float64 { return 0.9999 })))
	assert.Equal(t, 11, drawCard(engine.SourceFunc(func() float64 { return 1 })))
}

func TestPlayHand(t *testing.T) {
	tests := []struct {
		name   string
		src    engine.Source
		player int
		upcard int
		action blackjack.Action
		win    bool
	}{
		{"hit into bust loses", fixedCard(11), 20, 6, blackjack.ActionHit, false},
		{"dealer busts on sixes", fixedCard(6), 12, 10, blackjack.ActionStand, true},
		{"dealer creeps to 17 with aces low", fixedCard(1), 13, 10, blackjack.ActionHit, false},
		{"tie is not a win", fixedCard(10), 20, 10, blackjack.ActionStand, false},
		{"strictly greater wins", fixedCard(8), 19, 10, blackjack.ActionStand, true},
		{"hit to 21 beats 20", fixedCard(10), 11, 10, blackjack.ActionHit, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.win, playHand(tt.src, tt.player, tt.upcard, tt.action))
		})
	}
}

func TestSimulateSeededIsDeterministicAcrossWorkers(t *testing.T) {
	req := Request{PlayerTotal: 16, Upcard: 10, Action: blackjack.ActionHit, Iterations: 5000, Seed: seed(42)}

	single, err := NewSimulator(Config{Workers: 1, BatchSize: 256}, nil).Simulate(context.Background(), req)
	require.NoError(t, err)
	parallel, err := NewSimulator(Config{Workers: 8, BatchSize: 256}, nil).Simulate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, single.Wins, parallel.Wins)
	assert.Equal(t, single.WinProbability, parallel.WinProbability)
	assert.Equal(t, uint64(42), parallel.Seed)
	assert.Equal(t, engine.GeneratorHMAC, parallel.Generator)
	assert.Equal(t, 20, parallel.Batches)
}

func TestSimulateMulberryGenerator(t *testing.T) {
	sim := NewSimulator(Config{Workers: 4, BatchSize: 100}, nil)
	req := Request{PlayerTotal: 18, Upcard: 7, Action: blackjack.ActionStand, Iterations: 2000, Seed: seed(7), Generator: engine.GeneratorMulberry32}
	a, err := sim.Simulate(context.Background(), req)
	require.NoError(t, err)
	b, err := sim.Simulate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, a.Wins, b.Wins)
	assert.Equal(t, engine.GeneratorMulberry32, a.Generator)
}

func TestSimulateUnseededReportsReplayableSeed(t *testing.T) {
	sim := NewSimulator(Config{Workers: 2}, nil)
	req := Request{PlayerTotal: 17, Upcard: 9, Action: blackjack.ActionStand, Iterations: 3000}
	first, err := sim.Simulate(context.Background(), req)
	require.NoError(t, err)

	req.Seed = seed(first.Seed)
	replay, err := sim.Simulate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.Wins, replay.Wins)
}

func TestSimulateProbabilityAndInterval(t *testing.T) {
	sim := NewSimulator(Config{}, nil)
	res, err := sim.Simulate(context.Background(), Request{
		PlayerTotal: 20, Upcard: 6, Action: blackjack.ActionStand, Iterations: 20000, Seed: seed(1),
	})
	require.NoError(t, err)

	// Exact value under the draw model is 0.8154.
	assert.InDelta(t, 0.815, res.WinProbability, 0.02)
	assert.LessOrEqual(t, res.ConfidenceInterval.Lower, res.WinProbability)
	assert.GreaterOrEqual(t, res.ConfidenceInterval.Upper, res.WinProbability)
	assert.GreaterOrEqual(t, res.ConfidenceInterval.Lower, 0.0)
	assert.LessOrEqual(t, res.ConfidenceInterval.Upper, 1.0)
	assert.Equal(t, int64(float64(res.Iterations)*res.WinProbability+0.5), res.Wins)
}

func TestSimulateIntervalNarrowsWithTrials(t *testing.T) {
	sim := NewSimulator(Config{}, nil)
	base := Request{PlayerTotal: 15, Upcard: 10, Action: blackjack.ActionHit, Seed: seed(3)}

	small := base
	small.Iterations = 1000
	large := base
	large.Iterations = 100000

	rs, err := sim.Simulate(context.Background(), small)
	require.NoError(t, err)
	rl, err := sim.Simulate(context.Background(), large)
	require.NoError(t, err)

	widthSmall := rs.ConfidenceInterval.Upper - rs.ConfidenceInterval.Lower
	widthLarge := rl.ConfidenceInterval.Upper - rl.ConfidenceInterval.Lower
	assert.Less(t, widthLarge, widthSmall)
}

func TestSimulateInvalidRequests(t *testing.T) {
	sim := NewSimulator(Config{}, nil)
	tests := []struct {
		name string
		req  Request
	}{
		{"zero iterations", Request{PlayerTotal: 15, Upcard: 7, Action: blackjack.ActionHit}},
		{"negative iterations", Request{PlayerTotal: 15, Upcard: 7, Action: blackjack.ActionHit, Iterations: -1}},
		{"iterations above the limit", Request{PlayerTotal: 15, Upcard: 7, Action: blackjack.ActionHit, Iterations: math.MaxInt}},
		{"double is not simulated", Request{PlayerTotal: 11, Upcard: 7, Action: blackjack.ActionDouble, Iterations: 10}},
		{"unknown action", Request{PlayerTotal: 15, Upcard: 7, Action: "split", Iterations: 10}},
		{"player total too high", Request{PlayerTotal: 22, Upcard: 7, Action: blackjack.ActionStand, Iterations: 10}},
		{"up-card out of range", Request{PlayerTotal: 15, Upcard: 12, Action: blackjack.ActionStand, Iterations: 10}},
		{"unknown generator", Request{PlayerTotal: 15, Upcard: 7, Action: blackjack.ActionStand, Iterations: 10, Generator: "pcg"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sim.Simulate(context.Background(), tt.req)
			assert.ErrorIs(t, err, numeric.ErrInvalidArgument)
		})
	}
}

func TestBatchCount(t *testing.T) {
	tests := []struct {
		iterations, size, want int
	}{
		{1, 1024, 1},
		{1024, 1024, 1},
		{1025, 1024, 2},
		{10000, 256, 40},
		{math.MaxInt, 1024, math.MaxInt/1024 + 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, batchCount(tt.iterations, tt.size), "%d/%d", tt.iterations, tt.size)
	}
}

func TestSimulateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSimulator(Config{}, nil).Simulate(ctx, Request{
		PlayerTotal: 15, Upcard: 7, Action: blackjack.ActionHit, Iterations: 10000, Seed: seed(1),
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaldInterval(t *testing.T) {
	assert.Equal(t, ConfidenceInterval{Lower: 0, Upper: 0}, WaldInterval(0, 100))
	assert.Equal(t, ConfidenceInterval{Lower: 1, Upper: 1}, WaldInterval(1, 100))

	ci := WaldInterval(0.5, 100)
	assert.InDelta(t, 0.402, ci.Lower, 1e-9)
	assert.InDelta(t, 0.598, ci.Upper, 1e-9)

	ci = WaldInterval(0.01, 10)
	assert.Equal(t, 0.0, ci.Lower)
}
