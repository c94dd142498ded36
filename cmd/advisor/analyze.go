package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MJE43/blackjack-advisor-go/internal/analysis"
	"github.com/MJE43/blackjack-advisor-go/internal/blackjack"
)

type analyzeOutput struct {
	PlayerTotal   int                        `json:"player_total"`
	Soft          bool                       `json:"soft"`
	Analysis      analysis.AnalysisResult    `json:"analysis"`
	Probabilities analysis.ProbabilityReport `json:"probabilities"`
	BasicStrategy blackjack.Advice           `json:"basic_strategy"`
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		total  int
		upcard int
		hand   []string
		dealt  []string
		decks  int
		soft   bool
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyse one hand and print the recommendation as JSON",
		Example: `  advisor analyze --total 15 --upcard 7
  advisor analyze --total 12 --upcard 5 --dealt K,2,5,A --decks 6
  advisor analyze --hand A,7 --upcard 9`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cards, err := parseCards(dealt)
			if err != nil {
				return err
			}
			if len(hand) > 0 {
				held, err := parseCards(hand)
				if err != nil {
					return err
				}
				total, soft = blackjack.HandValue(held)
				if total > 21 {
					return fmt.Errorf("hand %v is bust at %d", hand, total)
				}
				cards = append(cards, held...)
			} else if !cmd.Flags().Changed("total") {
				return fmt.Errorf("one of --total or --hand is required")
			}
			remaining := blackjack.RemainingFromDealt(cards, decks)

			analyzer, err := a.analyzer()
			if err != nil {
				return err
			}
			res, err := analyzer.AnalyzeHand(cmd.Context(), total, upcard, remaining)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), analyzeOutput{
				PlayerTotal:   total,
				Soft:          soft,
				Analysis:      res,
				Probabilities: analyzer.Probabilities(total, upcard, remaining),
				BasicStrategy: blackjack.BasicStrategy(total, upcard, soft),
			})
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&total, "total", 0, "player hand total")
	flags.StringSliceVar(&hand, "hand", nil, "player cards, e.g. A,7; sets --total and --soft and removes the cards from the shoe")
	flags.IntVar(&upcard, "upcard", 0, "dealer up-card value (2-11, ace = 11)")
	flags.StringSliceVar(&dealt, "dealt", nil, "ranks already dealt from the shoe, e.g. K,2,A")
	flags.IntVar(&decks, "decks", 1, "decks in the shoe")
	flags.BoolVar(&soft, "soft", false, "hand counts an ace as 11")
	_ = cmd.MarkFlagRequired("upcard")
	return cmd
}

// parseCards turns rank strings into cards, rejecting unknown ranks.
func parseCards(ranks []string) ([]blackjack.Card, error) {
	cards := make([]blackjack.Card, 0, len(ranks))
	for _, r := range ranks {
		if !blackjack.ValidRank(r) {
			return nil, fmt.Errorf("unknown rank %q", r)
		}
		cards = append(cards, blackjack.Card{Rank: r})
	}
	return cards, nil
}
