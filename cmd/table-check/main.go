// Command table-check compares the dealer outcome tables with a Monte Carlo
// run of the dealer's draw-to-17 rule and prints the deviation per up-card.
package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/MJE43/blackjack-advisor-go/internal/blackjack"
	"github.com/MJE43/blackjack-advisor-go/internal/engine"
	"github.com/MJE43/blackjack-advisor-go/internal/logging"
	"github.com/MJE43/blackjack-advisor-go/internal/montecarlo"
)

type options struct {
	tablesPath string
	iterations int
	seed       uint64
	generator  string
	workers    int
	failAbove  float64
	logLevel   string
}

// row is the comparison for one up-card.
type row struct {
	upcard       int
	tableBust    float64
	simBust      float64
	maxDeviation float64
}

func main() {
	var opts options
	fs := pflag.NewFlagSet("table-check", pflag.ExitOnError)
	fs.StringVar(&opts.tablesPath, "tables", "", "YAML tables file (default: built-in tables)")
	fs.IntVar(&opts.iterations, "iterations", 200000, "dealer hands per up-card")
	fs.Uint64Var(&opts.seed, "seed", 1, "simulation seed")
	fs.StringVar(&opts.generator, "generator", string(engine.GeneratorHMAC), "random stream: hmac or mulberry32")
	fs.IntVar(&opts.workers, "workers", 0, "worker goroutines (default GOMAXPROCS)")
	fs.Float64Var(&opts.failAbove, "fail-above", 0, "exit 1 when any deviation exceeds this (0 disables)")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level")
	_ = fs.Parse(os.Args[1:])

	logger, err := logging.New(opts.logLevel, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	rows, err := check(context.Background(), opts, logger)
	if err != nil {
		logger.Error("table check failed", zap.Error(err))
		os.Exit(2)
	}
	worst := report(os.Stdout, rows)

	if opts.failAbove > 0 && worst > opts.failAbove {
		fmt.Printf("\nFAIL: worst deviation %.4f exceeds %.4f\n", worst, opts.failAbove)
		os.Exit(1)
	}
}

func check(ctx context.Context, opts options, logger *zap.Logger) ([]row, error) {
	tables := blackjack.DefaultTables()
	if opts.tablesPath != "" {
		var err error
		if tables, err = blackjack.LoadTables(opts.tablesPath); err != nil {
			return nil, err
		}
	}

	sim := montecarlo.NewSimulator(montecarlo.Config{Workers: opts.workers}, logger)
	seed := opts.seed
	rows := make([]row, 0, 10)
	for up := 2; up <= 11; up++ {
		res, err := sim.DealerOutcomes(ctx, montecarlo.DealerRequest{
			Upcard:     up,
			Iterations: opts.iterations,
			Seed:       &seed,
			Generator:  engine.Generator(opts.generator),
		})
		if err != nil {
			return nil, fmt.Errorf("up-card %d: %w", up, err)
		}
		rows = append(rows, compare(up, tables, res.Outcome))
	}
	return rows, nil
}

func compare(upcard int, tables *blackjack.Tables, sim blackjack.DealerOutcome) row {
	r := row{
		upcard:    upcard,
		tableBust: tables.BustProbability(upcard),
		simBust:   sim.Bust,
	}
	r.maxDeviation = math.Abs(r.tableBust - r.simBust)
	dist := tables.TotalDistribution(upcard)
	for total := 17; total <= 21; total++ {
		r.maxDeviation = math.Max(r.maxDeviation, math.Abs(dist[total]-sim.Totals[total]))
	}
	return r
}

// report prints the rows and returns the worst deviation.
func report(w io.Writer, rows []row) float64 {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UPCARD\tTABLE BUST\tSIM BUST\tMAX DEVIATION")
	worst := 0.0
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%.4f\t%.4f\t%.4f\n", r.upcard, r.tableBust, r.simBust, r.maxDeviation)
		worst = math.Max(worst, r.maxDeviation)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\nworst deviation: %.4f\n", worst)
	return worst
}
