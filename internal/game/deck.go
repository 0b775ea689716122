// internal/game/deck.go
package game

import (
	"github.com/cespare/xxhash/v2"
	"github.com/jason-s-yu/linot/internal/models"
)

const (
	// HandSize is the number of cards dealt to each player at the start.
	HandSize = 6
	// WildCount is the number of Wild cards appended to the numbered cards.
	WildCount = 5
	// DeckSize is len(CreateDeck()).
	DeckSize = len(suitOrder)*models.NumberedRanks + WildCount

	lcgMultiplier uint64 = 6364136223846793005
	lcgIncrement  uint64 = 1442695040888963407
)

var suitOrder = [...]models.Suit{
	models.SuitCircle, models.SuitCross, models.SuitTriangle, models.SuitSquare, models.SuitStar,
}

// CreateDeck returns the standard deck: every suit with ranks 1..14 in suit-major order,
// followed by the Wild cards with suits cycling through the suit order.
func CreateDeck() []models.Card {
	deck := make([]models.Card, 0, DeckSize)
	for _, suit := range suitOrder {
		for v := models.ValueOne; v <= models.ValueFourteen; v++ {
			deck = append(deck, models.Card{Suit: suit, Value: v})
		}
	}
	for i := 0; i < WildCount; i++ {
		deck = append(deck, models.Card{Suit: suitOrder[i%len(suitOrder)], Value: models.ValueWild})
	}
	return deck
}

// Shuffle permutes deck in place. The generator state starts at xxhash64(seed) and takes one
// LCG step before each Fisher-Yates swap, so equal inputs always give the same order.
func Shuffle(deck []models.Card, seed []byte) {
	state := xxhash.Sum64(seed)
	for i := len(deck) - 1; i > 0; i-- {
		state = state*lcgMultiplier + lcgIncrement
		j := int(state % uint64(i+1))
		deck[i], deck[j] = deck[j], deck[i]
	}
}

// DealInitialHands pops HandSize rounds of cards from the tail of deck, one per player per
// round in join order, and returns what is left of the deck.
func DealInitialHands(deck []models.Card, players []models.Player) []models.Card {
	for round := 0; round < HandSize; round++ {
		for i := range players {
			if len(deck) == 0 {
				break
			}
			card := deck[len(deck)-1]
			deck = deck[:len(deck)-1]
			players[i].Cards = append(players[i].Cards, card)
		}
	}
	for i := range players {
		players[i].UpdateCardCount()
	}
	return deck
}

// popCard takes the tail card of the deck.
func (m *Match) popCard() (models.Card, bool) {
	if len(m.Deck) == 0 {
		return models.Card{}, false
	}
	card := m.Deck[len(m.Deck)-1]
	m.Deck = m.Deck[:len(m.Deck)-1]
	return card, true
}

// reshuffle moves every discard except the top card back into the deck and shuffles it with
// a seed derived from the match seed and the new round number. Reports false if the discard
// pile has nothing to give.
func (m *Match) reshuffle() bool {
	if len(m.DiscardPile) <= 1 {
		return false
	}
	top := m.DiscardPile[len(m.DiscardPile)-1]
	m.Deck = append(m.Deck, m.DiscardPile[:len(m.DiscardPile)-1]...)
	m.DiscardPile = []models.Card{top}
	m.RoundNumber++
	Shuffle(m.Deck, m.roundSeed())
	return true
}
