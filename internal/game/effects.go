package game

import "github.com/jason-s-yu/linot/internal/models"

// Effect is what a played card does to the match beyond moving to the discard pile.
type Effect uint8

const (
	EffectNone Effect = iota
	EffectChooseShape
	EffectPlayAgain
	EffectForceDrawTwo
	EffectForceDrawThree
	EffectSkipNext
	EffectAllDrawOne
)

var effectNames = [...]string{"none", "choose_shape", "play_again", "force_draw_two", "force_draw_three", "skip_next", "all_draw_one"}

func (e Effect) String() string {
	if int(e) < len(effectNames) {
		return effectNames[e]
	}
	return "unknown"
}

// Classify maps a card to its effect. Numbered ranks have none.
func Classify(card models.Card) Effect {
	switch card.Value {
	case models.ValueWild:
		return EffectChooseShape
	case models.ValueHoldOn:
		return EffectPlayAgain
	case models.ValueDrawTwo:
		return EffectForceDrawTwo
	case models.ValueDrawThree:
		return EffectForceDrawThree
	case models.ValueSkipOne:
		return EffectSkipNext
	case models.ValueSkipAll:
		return EffectAllDrawOne
	default:
		return EffectNone
	}
}

// applyEffect updates demand and penalty for a resolved effect. Turn movement and the
// general-market distribution belong to the controller.
func (m *Match) applyEffect(effect Effect, chosenSuit *models.Suit) {
	switch effect {
	case EffectChooseShape:
		if chosenSuit != nil {
			s := *chosenSuit
			m.ActiveShapeDemand = &s
		}
	case EffectForceDrawTwo:
		m.PendingPenalty = 2
	case EffectForceDrawThree:
		m.PendingPenalty = 3
	case EffectNone:
		m.ActiveShapeDemand = nil
	case EffectPlayAgain, EffectSkipNext, EffectAllDrawOne:
	}
}

// turnAdvances is how many times the controller moves the turn after a play.
func (e Effect) turnAdvances() int {
	switch e {
	case EffectPlayAgain:
		return 0
	case EffectSkipNext:
		return 2
	default:
		return 1
	}
}
