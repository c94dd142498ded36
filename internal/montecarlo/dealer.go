package montecarlo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MJE43/blackjack-advisor-go/internal/blackjack"
	"github.com/MJE43/blackjack-advisor-go/internal/engine"
	"github.com/MJE43/blackjack-advisor-go/internal/numeric"
)

// DealerRequest asks for the empirical final-total distribution of a dealer
// showing Upcard under the fixed draw model.
type DealerRequest struct {
	Upcard     int              `json:"dealer_upcard"`
	Iterations int              `json:"iterations"`
	Seed       *uint64          `json:"seed,omitempty"`
	Generator  engine.Generator `json:"generator,omitempty"`
}

// DealerResult is a simulated blackjack.DealerOutcome plus run metadata.
type DealerResult struct {
	Upcard     int                     `json:"dealer_upcard"`
	Outcome    blackjack.DealerOutcome `json:"outcome"`
	Iterations int                     `json:"iterations"`
	Seed       uint64                  `json:"seed"`
	Elapsed    time.Duration           `json:"elapsed_ns"`
}

// DealerOutcomes plays the dealer's hand req.Iterations times and reports
// how often it busts or finishes on each of 17..21.
func (s *Simulator) DealerOutcomes(ctx context.Context, req DealerRequest) (DealerResult, error) {
	if err := checkIterations(req.Iterations); err != nil {
		return DealerResult{}, err
	}
	if req.Upcard < 1 || req.Upcard > 11 {
		return DealerResult{}, fmt.Errorf("%w: dealer up-card %d outside 1..11", numeric.ErrInvalidArgument, req.Upcard)
	}
	gen, err := engine.ParseGenerator(string(req.Generator))
	if err != nil {
		return DealerResult{}, fmt.Errorf("%w: %v", numeric.ErrInvalidArgument, err)
	}
	seed, err := resolveSeed(req.Seed)
	if err != nil {
		return DealerResult{}, err
	}

	start := time.Now()
	var (
		mu     sync.Mutex
		busts  int
		finals [5]int
	)
	_, err = s.runBatches(ctx, req.Iterations, gen, seed, func(src engine.Source, n int) {
		var localBust int
		var local [5]int
		for i := 0; i < n; i++ {
			total := dealerFinal(src, req.Upcard)
			if total > 21 {
				localBust++
				continue
			}
			local[total-dealerStandsOn]++
		}
		mu.Lock()
		busts += localBust
		for i := range finals {
			finals[i] += local[i]
		}
		mu.Unlock()
	})
	if err != nil {
		return DealerResult{}, err
	}

	n := float64(req.Iterations)
	outcome := blackjack.DealerOutcome{
		Bust:   float64(busts) / n,
		Totals: make(map[int]float64, len(finals)),
	}
	for i, c := range finals {
		outcome.Totals[dealerStandsOn+i] = float64(c) / n
	}

	res := DealerResult{
		Upcard:     req.Upcard,
		Outcome:    outcome,
		Iterations: req.Iterations,
		Seed:       seed,
		Elapsed:    time.Since(start),
	}
	s.logger.Debug("dealer_simulation_completed",
		zap.Int("dealer_upcard", req.Upcard),
		zap.Int("iterations", req.Iterations),
		zap.Float64("bust", outcome.Bust),
		zap.Uint64("seed", seed))
	return res, nil
}
