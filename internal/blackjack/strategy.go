package blackjack

import "fmt"

// Action is a player decision.
type Action string

const (
	ActionHit    Action = "hit"
	ActionStand  Action = "stand"
	ActionDouble Action = "double"
)

// ParseAction accepts hit and stand. Double is advisory only and cannot be
// simulated.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionHit, ActionStand:
		return Action(s), nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}

// Chart rows list the action against up-cards 2,3,4,5,6,7,8,9,10,A.
var hardChart = map[int]string{
	8:  "HHHHHHHHHH",
	9:  "HDDDDHHHHH",
	10: "DDDDDDDDHH",
	11: "DDDDDDDDDH",
	12: "HHSSSHHHHH",
	13: "SSSSSHHHHH",
	14: "SSSSSHHHHH",
	15: "SSSSSHHHHH",
	16: "SSSSSHHHHH",
	17: "SSSSSSSSSS",
	18: "SSSSSSSSSS",
	19: "SSSSSSSSSS",
	20: "SSSSSSSSSS",
	21: "SSSSSSSSSS",
}

var softChart = map[int]string{
	13: "HHHDDHHHHH",
	14: "HHHDDHHHHH",
	15: "HHDDDHHHHH",
	16: "HHDDDHHHHH",
	17: "HDDDDHHHHH",
	18: "SDDDDSSHHH",
	19: "SSSSSSSSSS",
	20: "SSSSSSSSSS",
	21: "SSSSSSSSSS",
}

// Advice is a chart lookup plus how firmly the chart favours it.
type Advice struct {
	Action     Action  `json:"action"`
	Confidence float64 `json:"confidence"`
}

// BasicStrategy looks the hand up in the hard or soft chart. Hands off the
// chart stand on 17 or more and hit otherwise.
func BasicStrategy(playerTotal, upcard int, soft bool) Advice {
	chart := hardChart
	if soft {
		chart = softChart
	}
	action := fallbackAction(playerTotal)
	if row, ok := chart[playerTotal]; ok && upcard >= 2 && upcard <= 11 {
		switch row[upcard-2] {
		case 'H':
			action = ActionHit
		case 'S':
			action = ActionStand
		case 'D':
			action = ActionDouble
		}
	}
	return Advice{Action: action, Confidence: chartConfidence(playerTotal)}
}

func fallbackAction(playerTotal int) Action {
	if playerTotal >= 17 {
		return ActionStand
	}
	return ActionHit
}

// chartConfidence grades how clear-cut the chart decision is at each total.
func chartConfidence(playerTotal int) float64 {
	switch {
	case playerTotal <= 8:
		return 1.0
	case playerTotal == 9:
		return 0.9
	case playerTotal == 10:
		return 0.95
	case playerTotal == 11:
		return 0.98
	case playerTotal == 12:
		return 0.7
	case playerTotal == 13, playerTotal == 14:
		return 0.8
	case playerTotal == 15:
		return 0.75
	case playerTotal == 16:
		return 0.7
	case playerTotal <= 21:
		return 1.0
	default:
		return 0.5
	}
}
