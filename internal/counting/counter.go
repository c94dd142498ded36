// Package counting tracks card counts over dealt cards and sizes bets from
// the resulting true count.
package counting

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/MJE43/blackjack-advisor-go/internal/blackjack"
)

// System selects the tag values applied to each rank.
type System string

const (
	// HiLo is balanced: 2-6 count +1, 7-9 count 0, tens and aces -1.
	HiLo System = "hi-lo"
	// KO is unbalanced: 7 also counts +1.
	KO System = "ko"
)

const deckSize = 52

// Advantage names who the count favours.
type Advantage string

const (
	AdvantagePlayer Advantage = "player"
	AdvantageHouse  Advantage = "house"
)

// ParseSystem accepts "" as Hi-Lo.
func ParseSystem(name string) (System, error) {
	switch System(name) {
	case "", HiLo:
		return HiLo, nil
	case KO:
		return KO, nil
	default:
		return "", fmt.Errorf("unknown counting system %q", name)
	}
}

// Tag returns the count contribution of rank under system.
func (s System) Tag(rank string) (int, error) {
	switch rank {
	case "2", "3", "4", "5", "6":
		return 1, nil
	case "7":
		if s == KO {
			return 1, nil
		}
		return 0, nil
	case "8", "9":
		return 0, nil
	case "10", "J", "Q", "K", "A":
		return -1, nil
	default:
		return 0, fmt.Errorf("unknown rank %q", rank)
	}
}

// Result is the state of the count after a set of dealt cards.
type Result struct {
	System          System    `json:"system"`
	RunningCount    int       `json:"running_count"`
	TrueCount       float64   `json:"true_count"`
	CardsDealt      int       `json:"cards_dealt"`
	DecksRemaining  float64   `json:"decks_remaining"`
	DeckPenetration float64   `json:"deck_penetration"`
	Advantage       Advantage `json:"advantage"`
}

// Count applies the Hi-Lo system.
func Count(dealt []blackjack.Card) (Result, error) {
	return CountWith(HiLo, dealt)
}

// CountWith tallies dealt under system. The true count divides the running
// count by max(1, (52-dealt)/52) and, like penetration, is rounded to two
// decimals. The result does not depend on the order of dealt.
func CountWith(system System, dealt []blackjack.Card) (Result, error) {
	running := 0
	for _, c := range dealt {
		tag, err := system.Tag(c.Rank)
		if err != nil {
			return Result{}, err
		}
		running += tag
	}

	n := len(dealt)
	decksRemaining := math.Max(1, float64(deckSize-n)/deckSize)
	trueCount := float64(running) / decksRemaining

	advantage := AdvantageHouse
	if trueCount > 0 {
		advantage = AdvantagePlayer
	}
	return Result{
		System:          system,
		RunningCount:    running,
		TrueCount:       round2(trueCount),
		CardsDealt:      n,
		DecksRemaining:  decksRemaining,
		DeckPenetration: round2(float64(n) / deckSize),
		Advantage:       advantage,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// DefaultBaseBet is the table minimum used when callers give none.
const DefaultBaseBet = 10.0

const (
	baseWinProbability = 0.49
	edgePerTrueCount   = 0.005
	maxKellyFraction   = 0.25
	maxBankrollShare   = 0.1
)

// OptimalBet sizes a wager with a capped Kelly fraction. Non-positive true
// counts bet the base. Otherwise the bet is balance × k, where k is the
// even-money Kelly fraction of p = 0.49 + 0.005·(trueCount-1) clamped to
// [0, 0.25], and the bet is then held between baseBet and 10% of balance.
func OptimalBet(balance, trueCount, baseBet float64) float64 {
	if trueCount <= 0 {
		return baseBet
	}
	p := baseWinProbability + (trueCount-1)*edgePerTrueCount
	kelly := math.Max(0, math.Min(2*p-1, maxKellyFraction))
	return math.Max(baseBet, math.Min(balance*kelly, balance*maxBankrollShare))
}

// BetAmount is OptimalBet rounded to cents.
func BetAmount(balance, trueCount, baseBet float64) decimal.Decimal {
	return decimal.NewFromFloat(OptimalBet(balance, trueCount, baseBet)).Round(2)
}
