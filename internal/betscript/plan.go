package betscript

import (
	"github.com/shopspring/decimal"
)

// PlanStats summarise the wagers a ramp proposes over a sequence of counts.
type PlanStats struct {
	Bets       int             `json:"bets"`
	Wagered    decimal.Decimal `json:"wagered"`
	HighestBet decimal.Decimal `json:"highest_bet"`
	LowestBet  decimal.Decimal `json:"lowest_bet"`
	AverageBet decimal.Decimal `json:"average_bet"`
}

// Plan is the per-round wager schedule and its summary.
type Plan struct {
	Bets  []decimal.Decimal `json:"bets"`
	Stats PlanStats         `json:"stats"`
}

// Plan asks the script for a wager at each true count in turn. The balance is
// held fixed; the plan shows how the ramp reacts to the count, not outcomes.
func (s *Script) Plan(balance, baseBet float64, trueCounts []float64) (Plan, error) {
	plan := Plan{Bets: make([]decimal.Decimal, 0, len(trueCounts))}
	for i, tc := range trueCounts {
		bet, err := s.Bet(State{
			Balance:      balance,
			BaseBet:      baseBet,
			TrueCount:    tc,
			RunningCount: int(tc),
			Round:        i + 1,
		})
		if err != nil {
			return Plan{}, err
		}
		plan.Bets = append(plan.Bets, bet)
	}
	plan.Stats = summarise(plan.Bets)
	return plan, nil
}

func summarise(bets []decimal.Decimal) PlanStats {
	stats := PlanStats{Bets: len(bets)}
	if len(bets) == 0 {
		return stats
	}
	stats.HighestBet = bets[0]
	stats.LowestBet = bets[0]
	for _, b := range bets {
		stats.Wagered = stats.Wagered.Add(b)
		if b.GreaterThan(stats.HighestBet) {
			stats.HighestBet = b
		}
		if b.LessThan(stats.LowestBet) {
			stats.LowestBet = b
		}
	}
	stats.AverageBet = stats.Wagered.Div(decimal.NewFromInt(int64(len(bets)))).Round(2)
	return stats
}
