// internal/game/view.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/linot/internal/models"
)

// PlayerView is the match as one player may see it: their own hand, and only counts and
// public flags for everyone else.
type PlayerView struct {
	MatchID            uuid.UUID             `json:"match_id"`
	MyIndex            int                   `json:"my_index"`
	MyCards            []models.Card         `json:"my_cards"`
	MyCardCount        int                   `json:"my_card_count"`
	CalledLastCard     bool                  `json:"called_last_card"`
	Opponents          []models.PublicPlayer `json:"opponents"`
	TopCard            *models.Card          `json:"top_card,omitempty"`
	DeckSize           int                   `json:"deck_size"`
	CurrentPlayerIndex int                   `json:"current_player_index"`
	Status             Status                `json:"status"`
	ActiveShapeDemand  *models.Suit          `json:"active_shape_demand,omitempty"`
	PendingPenalty     int                   `json:"pending_penalty"`
	WinnerIndex        *int                  `json:"winner_index,omitempty"`
}

// DebugView exposes every hand. It is meant for operators and finished-match review.
type DebugView struct {
	MatchID            uuid.UUID          `json:"match_id"`
	Config             models.MatchConfig `json:"config"`
	Players            []models.Player    `json:"players"`
	Deck               []models.Card      `json:"deck"`
	DiscardPile        []models.Card      `json:"discard_pile"`
	CurrentPlayerIndex int                `json:"current_player_index"`
	Status             Status             `json:"status"`
	RoundNumber        int                `json:"round_number"`
	ActiveShapeDemand  *models.Suit       `json:"active_shape_demand,omitempty"`
	PendingPenalty     int                `json:"pending_penalty"`
	WinnerIndex        *int               `json:"winner_index,omitempty"`
}

// PlayerView builds the view for owner. ok is false if owner never joined.
func (m *Match) PlayerView(owner uuid.UUID) (view PlayerView, ok bool) {
	idx := m.PlayerIndex(owner)
	if idx < 0 {
		return PlayerView{}, false
	}
	me := m.Players[idx]
	view = PlayerView{
		MatchID:            m.ID,
		MyIndex:            idx,
		MyCards:            append([]models.Card{}, me.Cards...),
		MyCardCount:        me.CardCount,
		CalledLastCard:     me.CalledLastCard,
		Opponents:          make([]models.PublicPlayer, 0, len(m.Players)-1),
		DeckSize:           len(m.Deck),
		CurrentPlayerIndex: m.CurrentPlayerIndex,
		Status:             m.Status,
		ActiveShapeDemand:  copySuit(m.ActiveShapeDemand),
		PendingPenalty:     m.PendingPenalty,
		WinnerIndex:        copyInt(m.WinnerIndex),
	}
	for i, p := range m.Players {
		if i != idx {
			view.Opponents = append(view.Opponents, p.Public(i))
		}
	}
	if top, found := m.TopCard(); found {
		view.TopCard = &top
	}
	return view, true
}

// PublicPlayers lists every player without hands.
func (m *Match) PublicPlayers() []models.PublicPlayer {
	out := make([]models.PublicPlayer, len(m.Players))
	for i, p := range m.Players {
		out[i] = p.Public(i)
	}
	return out
}

func (m *Match) DebugView() DebugView {
	c := m.Clone()
	return DebugView{
		MatchID:            c.ID,
		Config:             c.Config,
		Players:            c.Players,
		Deck:               c.Deck,
		DiscardPile:        c.DiscardPile,
		CurrentPlayerIndex: c.CurrentPlayerIndex,
		Status:             c.Status,
		RoundNumber:        c.RoundNumber,
		ActiveShapeDemand:  c.ActiveShapeDemand,
		PendingPenalty:     c.PendingPenalty,
		WinnerIndex:        c.WinnerIndex,
	}
}

func copySuit(s *models.Suit) *models.Suit {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
