package blackjack

// Evaluator computes single-decision expected values against the dealer
// outcome model. It holds no mutable state.
type Evaluator struct {
	tables *Tables
}

// NewEvaluator binds an evaluator to a table set.
func NewEvaluator(tables *Tables) *Evaluator {
	return &Evaluator{tables: tables}
}

// Tables exposes the table set the evaluator reads.
func (e *Evaluator) Tables() *Tables {
	return e.tables
}

// StandValue is the expected value in [-1, 1] of standing on playerTotal.
// A dealer bust pays +1; otherwise each final dealer total contributes
// +1, 0 or -1 weighted by its probability.
func (e *Evaluator) StandValue(playerTotal, upcard int) float64 {
	ev := e.tables.BustProbability(upcard)
	e.tables.eachFinal(upcard, func(total int, p float64) {
		switch {
		case playerTotal > total:
			ev += p
		case playerTotal < total:
			ev -= p
		}
	})
	return ev
}

// HitValue is the expected value of drawing exactly one card and standing.
// A draw that busts costs -1 weighted by its probability. An empty shoe is
// treated as a certain loss.
func (e *Evaluator) HitValue(playerTotal, upcard int, remaining RemainingCounts) float64 {
	total := remaining.Total()
	if total == 0 {
		return -1
	}
	ev := 0.0
	for _, v := range remaining.Values() {
		count := remaining[v]
		if count <= 0 {
			continue
		}
		p := float64(count) / float64(total)
		next := playerTotal + int(v)
		if next > 21 {
			ev -= p
			continue
		}
		ev += p * e.StandValue(next, upcard)
	}
	return ev
}

// EVDifference is HitValue minus StandValue. Positive means hitting is better.
func (e *Evaluator) EVDifference(playerTotal, upcard int, remaining RemainingCounts) float64 {
	return e.HitValue(playerTotal, upcard, remaining) - e.StandValue(playerTotal, upcard)
}
