package main

import (
	"github.com/spf13/cobra"

	"github.com/MJE43/blackjack-advisor-go/internal/blackjack"
	"github.com/MJE43/blackjack-advisor-go/internal/engine"
	"github.com/MJE43/blackjack-advisor-go/internal/montecarlo"
)

func newSimulateCmd(a *app) *cobra.Command {
	var (
		total      int
		upcard     int
		action     string
		iterations int
		seed       uint64
		generator  string
	)
	cmd := &cobra.Command{
		Use:     "simulate",
		Short:   "Estimate the win probability of hitting or standing by Monte Carlo",
		Example: `  advisor simulate --total 16 --upcard 10 --action hit --iterations 50000 --seed 1`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			act, err := blackjack.ParseAction(action)
			if err != nil {
				return err
			}
			if iterations == 0 {
				iterations = a.cfg.Engine.SimulationIterations
			}
			req := montecarlo.Request{
				PlayerTotal: total,
				Upcard:      upcard,
				Action:      act,
				Iterations:  iterations,
				Generator:   engine.Generator(generator),
			}
			if cmd.Flags().Changed("seed") {
				req.Seed = &seed
			}

			res, err := a.simulator().Simulate(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&total, "total", 0, "player hand total")
	flags.IntVar(&upcard, "upcard", 0, "dealer up-card value (1-11)")
	flags.StringVar(&action, "action", "stand", "hit or stand")
	flags.IntVar(&iterations, "iterations", 0, "trials to play (default from config)")
	flags.Uint64Var(&seed, "seed", 0, "seed for a replayable run (default: random)")
	flags.StringVar(&generator, "generator", string(engine.GeneratorHMAC), "random stream: hmac or mulberry32")
	_ = cmd.MarkFlagRequired("total")
	_ = cmd.MarkFlagRequired("upcard")
	return cmd
}
