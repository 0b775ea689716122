// internal/game/rules.go
package game

import "github.com/jason-s-yu/linot/internal/models"

// IsValidPlay reports whether card may be played onto top.
//
// Order matters: a Wild always goes, an outstanding penalty can only be answered with the same
// penalty kind, a shape demand constrains the suit only, and otherwise suit or rank must match.
func IsValidPlay(card, top models.Card, demand *models.Suit, pendingPenalty int) bool {
	if card.IsWild() {
		return true
	}
	if pendingPenalty > 0 {
		return top.Value.Penalty() && card.Value == top.Value
	}
	if demand != nil {
		return card.Suit == *demand
	}
	return card.Suit == top.Suit || card.Value == top.Value
}

// hasValidPlay reports whether any card in hand passes IsValidPlay against the current context.
func (m *Match) hasValidPlay(hand []models.Card) bool {
	top, ok := m.TopCard()
	if !ok {
		return false
	}
	for _, c := range hand {
		if IsValidPlay(c, top, m.ActiveShapeDemand, m.PendingPenalty) {
			return true
		}
	}
	return false
}
