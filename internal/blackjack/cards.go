package blackjack

import (
	"fmt"
	"sort"
)

// Card represents a playing card with rank and suit.
type Card struct {
	Rank string `json:"rank"`
	Suit string `json:"suit,omitempty"`
}

// String returns a human-readable card representation like "♦2" or "♠A".
func (c Card) String() string {
	return c.Suit + c.Rank
}

// Ranks in order: 2-10, J, Q, K, A
var cardRanks = []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}

// ValidRank reports whether rank is one of 2-10, J, Q, K, A.
func ValidRank(rank string) bool {
	for _, r := range cardRanks {
		if r == rank {
			return true
		}
	}
	return false
}

// CardValue is a point value 1..11 used by the probability model. Aces are 11,
// faces are 10. Value 1 is a separate low-ace slot in the modeled shoe.
type CardValue int

const (
	MinCardValue CardValue = 1
	MaxCardValue CardValue = 11
)

// Value returns the blackjack point value of a card.
// 2-10: face value, J/Q/K: 10, A: 11 (soft)
func (c Card) Value() CardValue {
	switch c.Rank {
	case "A":
		return 11
	case "J", "Q", "K", "10":
		return 10
	case "2", "3", "4", "5", "6", "7", "8", "9":
		return CardValue(c.Rank[0] - '0')
	default:
		return 0
	}
}

// HandValue calculates the best blackjack hand value and whether it is soft.
func HandValue(cards []Card) (total int, soft bool) {
	aces := 0
	for _, c := range cards {
		total += int(c.Value())
		if c.Rank == "A" {
			aces++
		}
	}
	// Reduce aces from 11 to 1 if over 21
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total, aces > 0
}

// RemainingCounts maps card values to the number of undealt cards of that
// value. Counts are never negative.
type RemainingCounts map[CardValue]int

// FullShoe returns the per-value counts of a fresh modeled shoe:
// 4 of each value 1..9 and 11, and 16 tens, per deck.
func FullShoe(decks int) RemainingCounts {
	if decks < 1 {
		decks = 1
	}
	rc := make(RemainingCounts, 11)
	for v := MinCardValue; v <= MaxCardValue; v++ {
		rc[v] = 4 * decks
	}
	rc[10] = 16 * decks
	return rc
}

// RemainingFromDealt removes each dealt card from a fresh shoe of the given
// size, clamping every count at zero.
func RemainingFromDealt(dealt []Card, decks int) RemainingCounts {
	rc := FullShoe(decks)
	for _, c := range dealt {
		rc.Remove(c.Value())
	}
	return rc
}

// Remove takes one card of value v out of the counts.
func (rc RemainingCounts) Remove(v CardValue) {
	if rc[v] > 0 {
		rc[v]--
	}
}

// Total is the number of undealt cards.
func (rc RemainingCounts) Total() int {
	n := 0
	for _, c := range rc {
		if c > 0 {
			n += c
		}
	}
	return n
}

// Values returns the keys in ascending order. All probability sums iterate in
// this order so results do not depend on map iteration.
func (rc RemainingCounts) Values() []CardValue {
	out := make([]CardValue, 0, len(rc))
	for v := range rc {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Validate rejects negative counts and values outside 1..11.
func (rc RemainingCounts) Validate() error {
	for v, c := range rc {
		if v < MinCardValue || v > MaxCardValue {
			return fmt.Errorf("card value %d out of range", v)
		}
		if c < 0 {
			return fmt.Errorf("negative count %d for card value %d", c, v)
		}
	}
	return nil
}
