package analysis

import (
	"github.com/MJE43/blackjack-advisor-go/internal/blackjack"
)

// ProbabilityReport summarises the immediate odds of a hand. Probabilities
// are rounded to four decimals.
type ProbabilityReport struct {
	PlayerTotal      int                             `json:"player_total"`
	Upcard           int                             `json:"dealer_upcard"`
	CardsRemaining   int                             `json:"cards_remaining"`
	WinIfHit         float64                         `json:"win_if_hit"`
	WinIfStand       float64                         `json:"win_if_stand"`
	BustIfHit        float64                         `json:"bust_if_hit"`
	DealerBust       float64                         `json:"dealer_bust"`
	NextCard         map[blackjack.CardValue]float64 `json:"card_probabilities"`
	HitExpectedValue float64                         `json:"hit_expected_value"`
	StandExpected    float64                         `json:"stand_expected_value"`
}

// Probabilities reports win, bust and next-card odds alongside both EVs.
func (a *Analyzer) Probabilities(playerTotal, upcard int, remaining blackjack.RemainingCounts) ProbabilityReport {
	total := remaining.Total()
	report := ProbabilityReport{
		PlayerTotal:      playerTotal,
		Upcard:           upcard,
		CardsRemaining:   total,
		WinIfStand:       round(a.winIfStand(playerTotal, upcard), 4),
		DealerBust:       a.tables.BustProbability(upcard),
		NextCard:         make(map[blackjack.CardValue]float64),
		HitExpectedValue: a.eval.HitValue(playerTotal, upcard, remaining),
		StandExpected:    a.eval.StandValue(playerTotal, upcard),
	}
	if total == 0 {
		return report
	}

	win, bust := 0.0, 0
	for _, v := range remaining.Values() {
		count := remaining[v]
		if count <= 0 {
			continue
		}
		p := float64(count) / float64(total)
		report.NextCard[v] = round(p, 4)
		next := playerTotal + int(v)
		if next > 21 {
			bust += count
			continue
		}
		win += p * round(a.winIfStand(next, upcard), 4)
	}
	report.WinIfHit = round(win, 4)
	report.BustIfHit = round(float64(bust)/float64(total), 4)
	return report
}

// winIfStand counts only outright wins: dealer busts plus dealer finals below
// the player's total.
func (a *Analyzer) winIfStand(playerTotal, upcard int) float64 {
	p := a.tables.BustProbability(upcard)
	dist := a.tables.TotalDistribution(upcard)
	for total := 17; total <= 21 && total < playerTotal; total++ {
		p += dist[total]
	}
	return p
}
