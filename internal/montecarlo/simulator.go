// Package montecarlo estimates win probabilities by simulating single
// decisions against a dealer who draws to 17.
package montecarlo

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MJE43/blackjack-advisor-go/internal/blackjack"
	"github.com/MJE43/blackjack-advisor-go/internal/engine"
	"github.com/MJE43/blackjack-advisor-go/internal/numeric"
)

const (
	// DefaultIterations is used by callers that leave the trial count open.
	DefaultIterations = 10000
	// MaxIterations bounds a single request.
	MaxIterations = 100_000_000
	// DefaultBatchSize is the number of trials handed to a worker at once.
	DefaultBatchSize = 1024

	dealerStandsOn = 17
	z95            = 1.96
)

// cardWeights is the fixed draw model: four of each value 1..9 and 11,
// sixteen tens. Draws never deplete it.
var cardWeights = [...]struct {
	value  int
	weight int
}{
	{1, 4}, {2, 4}, {3, 4}, {4, 4}, {5, 4}, {6, 4}, {7, 4}, {8, 4}, {9, 4}, {10, 16}, {11, 4},
}

// drawTable maps floor(f*56) to a card value.
var drawTable = func() []int {
	var table []int
	for _, cw := range cardWeights {
		for i := 0; i < cw.weight; i++ {
			table = append(table, cw.value)
		}
	}
	return table
}()

// Request describes one simulation. A nil Seed asks for a fresh seed, which
// is reported back in the Result.
type Request struct {
	PlayerTotal int              `json:"player_total"`
	Upcard      int              `json:"dealer_upcard"`
	Action      blackjack.Action `json:"action"`
	Iterations  int              `json:"iterations"`
	Seed        *uint64          `json:"seed,omitempty"`
	Generator   engine.Generator `json:"generator,omitempty"`
}

// ConfidenceInterval is a 95% Wald interval clamped to [0,1].
type ConfidenceInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Result is the outcome of a simulation.
type Result struct {
	WinProbability     float64            `json:"win_probability"`
	Wins               int64              `json:"wins"`
	Iterations         int                `json:"iterations"`
	ConfidenceInterval ConfidenceInterval `json:"confidence_interval"`
	Seed               uint64             `json:"seed"`
	Generator          engine.Generator   `json:"generator"`
	Batches            int                `json:"batches"`
	Elapsed            time.Duration      `json:"elapsed_ns"`
}

// Config sizes the worker pool. Zero values pick GOMAXPROCS workers and the
// default batch size.
type Config struct {
	Workers   int
	BatchSize int
}

// Simulator runs trials across a bounded pool of goroutines.
type Simulator struct {
	workerCount int
	batchSize   int
	logger      *zap.Logger
}

// NewSimulator creates a simulator. A nil logger disables logging.
func NewSimulator(cfg Config, logger *zap.Logger) *Simulator {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		workerCount: cfg.Workers,
		batchSize:   cfg.BatchSize,
		logger:      logger,
	}
}

// Validate checks a request without running it.
func (req Request) Validate() error {
	if err := checkIterations(req.Iterations); err != nil {
		return err
	}
	if req.Action != blackjack.ActionHit && req.Action != blackjack.ActionStand {
		return fmt.Errorf("%w: action %q", numeric.ErrInvalidArgument, req.Action)
	}
	if req.PlayerTotal < 1 || req.PlayerTotal > 21 {
		return fmt.Errorf("%w: player total %d outside 1..21", numeric.ErrInvalidArgument, req.PlayerTotal)
	}
	if req.Upcard < 1 || req.Upcard > 11 {
		return fmt.Errorf("%w: dealer up-card %d outside 1..11", numeric.ErrInvalidArgument, req.Upcard)
	}
	if _, err := engine.ParseGenerator(string(req.Generator)); err != nil {
		return fmt.Errorf("%w: %v", numeric.ErrInvalidArgument, err)
	}
	return nil
}

// Simulate plays req.Iterations independent trials. Each batch of trials
// draws from its own (seed, batch) stream, so a seeded run gives the same
// answer for any worker count.
func (s *Simulator) Simulate(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	gen, _ := engine.ParseGenerator(string(req.Generator))

	seed, err := resolveSeed(req.Seed)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	var wins int64
	batches, err := s.runBatches(ctx, req.Iterations, gen, seed, func(src engine.Source, n int) {
		var local int64
		for i := 0; i < n; i++ {
			if playHand(src, req.PlayerTotal, req.Upcard, req.Action) {
				local++
			}
		}
		atomic.AddInt64(&wins, local)
	})
	if err != nil {
		return Result{}, err
	}

	p := float64(wins) / float64(req.Iterations)
	res := Result{
		WinProbability:     p,
		Wins:               wins,
		Iterations:         req.Iterations,
		ConfidenceInterval: WaldInterval(p, req.Iterations),
		Seed:               seed,
		Generator:          gen,
		Batches:            batches,
		Elapsed:            time.Since(start),
	}

	s.logger.Debug("simulation_completed",
		zap.Int("player_total", req.PlayerTotal),
		zap.Int("dealer_upcard", req.Upcard),
		zap.String("action", string(req.Action)),
		zap.Int("iterations", req.Iterations),
		zap.Int("batches", batches),
		zap.Float64("win_probability", p),
		zap.Uint64("seed", seed),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

func checkIterations(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: iterations must be positive, got %d", numeric.ErrInvalidArgument, n)
	}
	if n > MaxIterations {
		return fmt.Errorf("%w: iterations %d above the limit of %d", numeric.ErrInvalidArgument, n, MaxIterations)
	}
	return nil
}

// batchCount is ceil(iterations/size) for positive iterations.
func batchCount(iterations, size int) int {
	return (iterations-1)/size + 1
}

func resolveSeed(seed *uint64) (uint64, error) {
	if seed != nil {
		return *seed, nil
	}
	return engine.EntropySeed()
}

// runBatches splits iterations into batches of s.batchSize and runs fn on
// each from a bounded pool. Batch b always draws from stream (seed, b).
func (s *Simulator) runBatches(ctx context.Context, iterations int, gen engine.Generator, seed uint64, fn func(src engine.Source, n int)) (int, error) {
	batches := batchCount(iterations, s.batchSize)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workerCount)
	for b := 0; b < batches; b++ {
		if gctx.Err() != nil {
			break
		}
		lo := b * s.batchSize
		hi := min(lo+s.batchSize, iterations)
		batch := uint64(b)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(gen.Stream(seed, batch), hi-lo)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	// The derived context is always done after Wait; only the caller's counts.
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return batches, nil
}

// WaldInterval is p ± 1.96·sqrt(p(1-p)/n), clamped to [0,1].
func WaldInterval(p float64, n int) ConfidenceInterval {
	if n <= 0 {
		return ConfidenceInterval{Lower: 0, Upper: 1}
	}
	margin := z95 * math.Sqrt(p*(1-p)/float64(n))
	return ConfidenceInterval{
		Lower: math.Max(0, p-margin),
		Upper: math.Min(1, p+margin),
	}
}

// playHand reports whether the player wins one trial.
func playHand(src engine.Source, player, upcard int, action blackjack.Action) bool {
	if action == blackjack.ActionHit {
		player += drawCard(src)
		if player > 21 {
			return false
		}
	}
	dealer := dealerFinal(src, upcard)
	if dealer > 21 {
		return true
	}
	return player > dealer
}

// dealerFinal draws for the dealer until the total reaches 17.
func dealerFinal(src engine.Source, upcard int) int {
	dealer := upcard
	for dealer < dealerStandsOn {
		dealer += drawCard(src)
	}
	return dealer
}

func drawCard(src engine.Source) int {
	idx := int(src.Float64() * float64(len(drawTable)))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(drawTable) {
		idx = len(drawTable) - 1
	}
	return drawTable[idx]
}
