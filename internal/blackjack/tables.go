package blackjack

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultBustProbability applies to up-cards missing from the dealer table.
	DefaultBustProbability = 0.25
	// DefaultHitPropensity applies to (total, up-card) pairs missing from the prior.
	DefaultHitPropensity = 0.5

	minDealerFinal = 17
	maxDealerFinal = 21
)

// DealerOutcome is the empirical result distribution for one dealer up-card.
// Totals maps a final dealer total (17..21) to its probability; Bust plus the
// totals need not sum to one.
type DealerOutcome struct {
	Bust   float64         `yaml:"bust" json:"bust"`
	Totals map[int]float64 `yaml:"totals" json:"totals"`
}

// Tables holds the dealer outcome model and the basic-strategy prior. A Tables
// value is built once at startup and never mutated, so it can be shared by
// every evaluator and request goroutine.
type Tables struct {
	dealer map[int]dealerRow
	prior  map[int]map[int]float64
}

type dealerRow struct {
	bust   float64
	finals [maxDealerFinal - minDealerFinal + 1]float64
}

type tablesFile struct {
	Dealer   map[int]DealerOutcome   `yaml:"dealer"`
	HitPrior map[int]map[int]float64 `yaml:"hit_prior"`
}

var defaultDealer = map[int]DealerOutcome{
	2:  {Bust: 0.35, Totals: finals(0.14, 0.13, 0.13, 0.13, 0.12)},
	3:  {Bust: 0.37, Totals: finals(0.14, 0.13, 0.13, 0.12, 0.11)},
	4:  {Bust: 0.40, Totals: finals(0.14, 0.13, 0.12, 0.12, 0.09)},
	5:  {Bust: 0.42, Totals: finals(0.14, 0.12, 0.12, 0.11, 0.09)},
	6:  {Bust: 0.42, Totals: finals(0.17, 0.11, 0.11, 0.10, 0.09)},
	7:  {Bust: 0.26, Totals: finals(0.37, 0.14, 0.08, 0.08, 0.07)},
	8:  {Bust: 0.24, Totals: finals(0.13, 0.36, 0.13, 0.07, 0.07)},
	9:  {Bust: 0.23, Totals: finals(0.12, 0.12, 0.35, 0.12, 0.06)},
	10: {Bust: 0.21, Totals: finals(0.12, 0.12, 0.12, 0.34, 0.09)},
	11: {Bust: 0.11, Totals: finals(0.13, 0.12, 0.12, 0.12, 0.40)},
}

func finals(p17, p18, p19, p20, p21 float64) map[int]float64 {
	return map[int]float64{17: p17, 18: p18, 19: p19, 20: p20, 21: p21}
}

// defaultPrior encodes basic strategy as hit propensities: always hit 5-11,
// hit 12 except against 4-6, hit 13-16 only against 7-11, never hit 17+.
func defaultPrior() map[int]map[int]float64 {
	prior := make(map[int]map[int]float64)
	for total := 5; total <= 21; total++ {
		row := make(map[int]float64, 10)
		for up := 2; up <= 11; up++ {
			switch {
			case total <= 11:
				row[up] = 1
			case total == 12:
				if up >= 4 && up <= 6 {
					row[up] = 0
				} else {
					row[up] = 1
				}
			case total <= 16:
				if up <= 6 {
					row[up] = 0
				} else {
					row[up] = 1
				}
			default:
				row[up] = 0
			}
		}
		prior[total] = row
	}
	return prior
}

// DefaultTables returns the built-in empirical tables.
func DefaultTables() *Tables {
	t, err := newTables(defaultDealer, defaultPrior())
	if err != nil {
		panic(err)
	}
	return t
}

// LoadTables reads a YAML override file. Sections present in the file replace
// the corresponding built-in section wholesale; missing sections keep the
// defaults.
func LoadTables(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tables file: %w", err)
	}
	var f tablesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse tables file: %w", err)
	}

	dealer := defaultDealer
	if len(f.Dealer) > 0 {
		dealer = f.Dealer
	}
	prior := defaultPrior()
	if len(f.HitPrior) > 0 {
		prior = f.HitPrior
	}
	return newTables(dealer, prior)
}

func newTables(dealer map[int]DealerOutcome, prior map[int]map[int]float64) (*Tables, error) {
	t := &Tables{
		dealer: make(map[int]dealerRow, len(dealer)),
		prior:  make(map[int]map[int]float64, len(prior)),
	}
	for up, o := range dealer {
		if !isProbability(o.Bust) {
			return nil, fmt.Errorf("dealer up-card %d: bust probability %v outside [0,1]", up, o.Bust)
		}
		row := dealerRow{bust: o.Bust}
		for total, p := range o.Totals {
			if total < minDealerFinal || total > maxDealerFinal {
				return nil, fmt.Errorf("dealer up-card %d: final total %d outside 17..21", up, total)
			}
			if !isProbability(p) {
				return nil, fmt.Errorf("dealer up-card %d: probability %v for %d outside [0,1]", up, p, total)
			}
			row.finals[total-minDealerFinal] = p
		}
		t.dealer[up] = row
	}
	for total, row := range prior {
		cp := make(map[int]float64, len(row))
		for up, p := range row {
			if !isProbability(p) {
				return nil, fmt.Errorf("hit prior %d vs %d: %v outside [0,1]", total, up, p)
			}
			cp[up] = p
		}
		t.prior[total] = cp
	}
	return t, nil
}

func isProbability(p float64) bool {
	return p >= 0 && p <= 1
}

// BustProbability returns the chance the dealer busts showing upcard.
func (t *Tables) BustProbability(upcard int) float64 {
	row, ok := t.dealer[upcard]
	if !ok {
		return DefaultBustProbability
	}
	return row.bust
}

// TotalDistribution returns a fresh map of final total to probability for
// upcard. Unknown up-cards yield an empty map.
func (t *Tables) TotalDistribution(upcard int) map[int]float64 {
	row, ok := t.dealer[upcard]
	if !ok {
		return map[int]float64{}
	}
	out := make(map[int]float64, len(row.finals))
	for i, p := range row.finals {
		out[minDealerFinal+i] = p
	}
	return out
}

// eachFinal walks the final-total distribution in ascending total order.
func (t *Tables) eachFinal(upcard int, fn func(total int, p float64)) {
	row, ok := t.dealer[upcard]
	if !ok {
		return
	}
	for i, p := range row.finals {
		fn(minDealerFinal+i, p)
	}
}

// HitPropensity returns the basic-strategy prior in [0,1] for hitting
// playerTotal against upcard.
func (t *Tables) HitPropensity(playerTotal, upcard int) float64 {
	row, ok := t.prior[playerTotal]
	if !ok {
		return DefaultHitPropensity
	}
	p, ok := row[upcard]
	if !ok {
		return DefaultHitPropensity
	}
	return p
}
