// internal/game/match.go
package game

import (
	"strconv"

	"github.com/google/uuid"
	"github.com/jason-s-yu/linot/internal/models"
)

// Status is the match lifecycle stage. Waiting -> InProgress -> Finished, nothing else.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

// Match is the whole state of one game. It does no locking or I/O; callers must serialize
// operations on a single match.
type Match struct {
	ID     uuid.UUID          `json:"id"`
	Config models.MatchConfig `json:"config"`
	// Seed is the material hashed for the opening shuffle and, suffixed with the round number,
	// for every reshuffle.
	Seed string `json:"seed"`

	Players            []models.Player `json:"players"`
	CurrentPlayerIndex int             `json:"current_player_index"`
	Deck               []models.Card   `json:"deck"`
	DiscardPile        []models.Card   `json:"discard_pile"`
	Status             Status          `json:"status"`
	WinnerIndex        *int            `json:"winner_index,omitempty"`
	RoundNumber        int             `json:"round_number"`
	ActiveShapeDemand  *models.Suit    `json:"active_shape_demand,omitempty"`
	PendingPenalty     int             `json:"pending_penalty"`
	// Ply counts operations accepted through Apply.
	Ply int `json:"ply"`
}

// NewMatch creates an empty match in Waiting. A nil cfg.Host lets the first player to join
// start the match.
func NewMatch(id uuid.UUID, cfg models.MatchConfig, seed string) *Match {
	if cfg.MaxPlayers == 0 {
		cfg.MaxPlayers = models.DefaultMaxPlayers
	}
	return &Match{
		ID:          id,
		Config:      cfg,
		Seed:        seed,
		Players:     []models.Player{},
		Deck:        []models.Card{},
		DiscardPile: []models.Card{},
		Status:      StatusWaiting,
	}
}

func (m *Match) roundSeed() []byte {
	return []byte(m.Seed + strconv.Itoa(m.RoundNumber))
}

// PlayerIndex returns the index of owner in turn order, or -1.
func (m *Match) PlayerIndex(owner uuid.UUID) int {
	for i := range m.Players {
		if m.Players[i].Owner == owner {
			return i
		}
	}
	return -1
}

// TopCard returns the last card of the discard pile.
func (m *Match) TopCard() (models.Card, bool) {
	if len(m.DiscardPile) == 0 {
		return models.Card{}, false
	}
	return m.DiscardPile[len(m.DiscardPile)-1], true
}

// CurrentPlayer returns the player whose turn it is, or nil for an empty roster.
func (m *Match) CurrentPlayer() *models.Player {
	if m.CurrentPlayerIndex < 0 || m.CurrentPlayerIndex >= len(m.Players) {
		return nil
	}
	return &m.Players[m.CurrentPlayerIndex]
}

// Winner returns the winning player once one has been declared.
func (m *Match) Winner() *models.Player {
	if m.WinnerIndex == nil {
		return nil
	}
	return &m.Players[*m.WinnerIndex]
}

func (m *Match) host() (uuid.UUID, bool) {
	if m.Config.Host != nil {
		return *m.Config.Host, true
	}
	if len(m.Players) > 0 {
		return m.Players[0].Owner, true
	}
	return uuid.Nil, false
}

func (m *Match) activeCount() int {
	n := 0
	for _, p := range m.Players {
		if p.IsActive {
			n++
		}
	}
	return n
}

// advanceTurn moves to the next active player in join order, wrapping at the end.
// With every player active this is a plain (i+1) mod N.
func (m *Match) advanceTurn() {
	n := len(m.Players)
	for step := 1; step <= n; step++ {
		next := (m.CurrentPlayerIndex + step) % n
		if m.Players[next].IsActive {
			m.CurrentPlayerIndex = next
			return
		}
	}
}

func (m *Match) finish(winner int) {
	m.Status = StatusFinished
	if winner >= 0 {
		w := winner
		m.WinnerIndex = &w
	}
}

// checkGameEnd runs after every play. An empty active hand wins outright; an exhausted deck
// hands the win to the active player with the fewest cards, lowest index on ties.
func (m *Match) checkGameEnd() {
	for i, p := range m.Players {
		if p.IsActive && len(p.Cards) == 0 {
			m.finish(i)
			return
		}
	}
	if len(m.Deck) > 0 || m.Status != StatusInProgress {
		return
	}
	best := -1
	for i, p := range m.Players {
		if !p.IsActive {
			continue
		}
		if best < 0 || len(p.Cards) < len(m.Players[best].Cards) {
			best = i
		}
	}
	m.finish(best)
}

// JoinMatch appends caller to the roster.
func (m *Match) JoinMatch(caller uuid.UUID, nickname string) error {
	switch m.Status {
	case StatusInProgress:
		return ErrMatchAlreadyStarted
	case StatusFinished:
		return ErrMatchNotInProgress
	}
	if len(m.Players) >= m.Config.MaxPlayers {
		return errMatchFull(m.Config.MaxPlayers)
	}
	if m.PlayerIndex(caller) >= 0 {
		return ErrPlayerAlreadyJoined
	}
	m.Players = append(m.Players, models.NewPlayer(caller, nickname))
	return nil
}

// StartMatch shuffles a fresh deck, deals the opening hands and flips the first discard.
func (m *Match) StartMatch(caller uuid.UUID) error {
	switch m.Status {
	case StatusInProgress:
		return ErrMatchAlreadyStarted
	case StatusFinished:
		return ErrMatchNotInProgress
	}
	if host, ok := m.host(); !ok || host != caller {
		return ErrOnlyHostCanStart
	}
	if m.activeCount() < models.MinPlayers {
		return errNotEnoughPlayers(models.MinPlayers)
	}

	deck := CreateDeck()
	Shuffle(deck, []byte(m.Seed))
	m.Deck = DealInitialHands(deck, m.Players)
	if card, ok := m.popCard(); ok {
		m.DiscardPile = append(m.DiscardPile, card)
	}
	m.Status = StatusInProgress
	m.CurrentPlayerIndex = 0
	if !m.Players[0].IsActive {
		m.advanceTurn()
	}
	return nil
}

// PlayCard moves the card at cardIndex from the current player's hand to the discard pile
// and resolves its effect. chosenSuit is the shape demanded by a Wild.
func (m *Match) PlayCard(caller uuid.UUID, cardIndex int, chosenSuit *models.Suit) error {
	if m.Status != StatusInProgress {
		return ErrMatchNotInProgress
	}
	player := m.CurrentPlayer()
	if player == nil || player.Owner != caller {
		return ErrNotYourTurn
	}
	if cardIndex < 0 || cardIndex >= len(player.Cards) {
		return errInvalidCardIndex(cardIndex)
	}
	top, ok := m.TopCard()
	if !ok {
		return ErrNoCardInDiscardPile
	}
	card := player.Cards[cardIndex]
	if chosenSuit != nil && !chosenSuit.Valid() {
		return ErrInvalidCardPlay
	}
	if m.Config.StrictMode && card.IsWild() && chosenSuit == nil {
		return ErrSuitRequired
	}
	if !IsValidPlay(card, top, m.ActiveShapeDemand, m.PendingPenalty) {
		return ErrInvalidCardPlay
	}

	player.Cards = append(player.Cards[:cardIndex], player.Cards[cardIndex+1:]...)
	player.UpdateCardCount()
	m.DiscardPile = append(m.DiscardPile, card)
	if player.CardCount == 1 && !player.CalledLastCard {
		player.CalledLastCard = true
	}

	effect := Classify(card)
	m.applyEffect(effect, chosenSuit)
	m.checkGameEnd()

	if effect == EffectAllDrawOne {
		m.generalMarket()
	}
	for i := 0; i < effect.turnAdvances(); i++ {
		m.advanceTurn()
	}
	return nil
}

// generalMarket gives one card to every player except the one who played. An empty deck is
// not reshuffled here.
func (m *Match) generalMarket() {
	for i := range m.Players {
		if i == m.CurrentPlayerIndex {
			continue
		}
		card, ok := m.popCard()
		if !ok {
			return
		}
		m.Players[i].Cards = append(m.Players[i].Cards, card)
		m.Players[i].UpdateCardCount()
	}
}

// DrawCard draws the pending penalty, or one card, for the current player and passes the
// turn. The penalty is cleared in full even if the deck could not cover it.
func (m *Match) DrawCard(caller uuid.UUID) error {
	if m.Status != StatusInProgress {
		return ErrMatchNotInProgress
	}
	player := m.CurrentPlayer()
	if player == nil || player.Owner != caller {
		return ErrNotYourTurn
	}
	if m.Config.StrictMode && m.PendingPenalty == 0 && m.hasValidPlay(player.Cards) {
		return ErrPlayableCardHeld
	}

	count := 1
	if m.PendingPenalty > 0 {
		count = m.PendingPenalty
		m.PendingPenalty = 0
	}
	for i := 0; i < count; i++ {
		if len(m.Deck) == 0 && !m.reshuffle() {
			break
		}
		card, _ := m.popCard()
		player.Cards = append(player.Cards, card)
	}
	player.UpdateCardCount()

	m.ActiveShapeDemand = nil
	m.advanceTurn()
	return nil
}

// CallLastCard sets the caller's last-card flag. Strict mode requires a one-card hand.
func (m *Match) CallLastCard(caller uuid.UUID) error {
	if m.Status == StatusFinished {
		return ErrMatchNotInProgress
	}
	idx := m.PlayerIndex(caller)
	if idx < 0 {
		return ErrNotInMatch
	}
	if m.Config.StrictMode && len(m.Players[idx].Cards) != 1 {
		return ErrNotOnLastCard
	}
	m.Players[idx].CalledLastCard = true
	return nil
}

// ChallengeLastCard makes the addressed player draw two cards if they hold one card and never
// called it. An empty deck is not reshuffled for the penalty.
func (m *Match) ChallengeLastCard(playerIndex int) error {
	if m.Status == StatusFinished {
		return ErrMatchNotInProgress
	}
	if playerIndex < 0 || playerIndex >= len(m.Players) {
		return errInvalidPlayerIndex(playerIndex)
	}
	p := &m.Players[playerIndex]
	if p.CardCount != 1 || p.CalledLastCard {
		return nil
	}
	for i := 0; i < 2; i++ {
		card, ok := m.popCard()
		if !ok {
			break
		}
		p.Cards = append(p.Cards, card)
	}
	p.UpdateCardCount()
	return nil
}

// LeaveMatch marks the caller inactive. The last active player left standing wins.
func (m *Match) LeaveMatch(caller uuid.UUID) error {
	if m.Status == StatusFinished {
		return ErrMatchNotInProgress
	}
	idx := m.PlayerIndex(caller)
	if idx < 0 {
		return ErrNotInMatch
	}
	if !m.Players[idx].IsActive {
		return nil
	}
	m.Players[idx].IsActive = false

	if m.activeCount() == 1 {
		for i, p := range m.Players {
			if p.IsActive {
				m.finish(i)
				break
			}
		}
		return nil
	}
	if m.Status == StatusInProgress && m.CurrentPlayerIndex == idx {
		m.advanceTurn()
	}
	return nil
}
