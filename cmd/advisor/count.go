package main

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MJE43/blackjack-advisor-go/internal/betscript"
	"github.com/MJE43/blackjack-advisor-go/internal/counting"
)

type countOutput struct {
	Count  counting.Result `json:"count"`
	Bet    decimal.Decimal `json:"bet"`
	Source string          `json:"bet_source"`
	Logs   []string        `json:"script_logs,omitempty"`
}

func newCountCmd(a *app) *cobra.Command {
	var (
		system     string
		balance    float64
		baseBet    float64
		scriptPath string
		scriptSeed uint32
	)
	cmd := &cobra.Command{
		Use:   "count [rank...]",
		Short: "Count dealt cards and size the next bet",
		Example: `  advisor count 2 5 K 6 7 --balance 1000
  advisor count 2 3 4 --balance 1000 --script ramp.js`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := counting.ParseSystem(system)
			if err != nil {
				return err
			}
			cards, err := parseCards(args)
			if err != nil {
				return err
			}
			res, err := counting.CountWith(sys, cards)
			if err != nil {
				return err
			}

			out := countOutput{
				Count:  res,
				Bet:    counting.BetAmount(balance, res.TrueCount, baseBet),
				Source: "kelly",
			}
			if scriptPath != "" {
				src, err := os.ReadFile(scriptPath)
				if err != nil {
					return fmt.Errorf("read script: %w", err)
				}
				script, err := betscript.Compile(string(src), scriptSeed)
				if err != nil {
					return err
				}
				out.Bet, err = script.Bet(betscript.State{
					Balance:      balance,
					BaseBet:      baseBet,
					TrueCount:    res.TrueCount,
					RunningCount: res.RunningCount,
					Round:        1,
				})
				if err != nil {
					return err
				}
				out.Source = "script"
				out.Logs = script.Logs()
			}
			a.logger.Debug("bet_sized",
				zap.String("source", out.Source),
				zap.String("bet", out.Bet.String()),
				zap.Float64("true_count", res.TrueCount))
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&system, "system", string(counting.HiLo), "counting system: hi-lo or ko")
	flags.Float64Var(&balance, "balance", 1000, "bankroll")
	flags.Float64Var(&baseBet, "base-bet", counting.DefaultBaseBet, "table minimum")
	flags.StringVar(&scriptPath, "script", "", "JavaScript bet ramp defining bet(state)")
	flags.Uint32Var(&scriptSeed, "script-seed", 1, "seed for the script's random()")
	return cmd
}
