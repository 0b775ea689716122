package models

import "github.com/google/uuid"

// Player is one participant in a match. Turn order is the order players joined.
type Player struct {
	Owner          uuid.UUID `json:"owner"`
	Nickname       string    `json:"nickname"`
	Cards          []Card    `json:"cards"`
	CardCount      int       `json:"card_count"`
	IsActive       bool      `json:"is_active"`
	CalledLastCard bool      `json:"called_last_card"`
}

// NewPlayer returns an active player with an empty hand.
func NewPlayer(owner uuid.UUID, nickname string) Player {
	return Player{
		Owner:    owner,
		Nickname: nickname,
		Cards:    []Card{},
		IsActive: true,
	}
}

// UpdateCardCount re-derives CardCount from the hand. Call after every hand mutation.
func (p *Player) UpdateCardCount() {
	p.CardCount = len(p.Cards)
}

// PublicPlayer is what every participant may see about a player.
type PublicPlayer struct {
	Index          int       `json:"index"`
	Owner          uuid.UUID `json:"owner"`
	Nickname       string    `json:"nickname"`
	CardCount      int       `json:"card_count"`
	IsActive       bool      `json:"is_active"`
	CalledLastCard bool      `json:"called_last_card"`
}

// Public strips the hand from p, the player seated at index.
func (p Player) Public(index int) PublicPlayer {
	return PublicPlayer{
		Index:          index,
		Owner:          p.Owner,
		Nickname:       p.Nickname,
		CardCount:      p.CardCount,
		IsActive:       p.IsActive,
		CalledLastCard: p.CalledLastCard,
	}
}
