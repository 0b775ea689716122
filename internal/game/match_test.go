// internal/game/match_test.go
package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/linot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newID() uuid.UUID { return uuid.New() }

// setupTestMatch creates a match hosted by the first of numPlayers players, all joined.
func setupTestMatch(t *testing.T, numPlayers int, strict bool) (*Match, []uuid.UUID) {
	t.Helper()
	ids := make([]uuid.UUID, numPlayers)
	for i := range ids {
		ids[i] = newID()
	}
	host := ids[0]
	cfg := models.MatchConfig{MaxPlayers: numPlayers, Host: &host, StrictMode: strict}
	m := NewMatch(newID(), cfg, "test-seed")
	for i, id := range ids {
		require.NoError(t, m.JoinMatch(id, string(rune('a'+i))))
	}
	return m, ids
}

// setupStartedMatch is setupTestMatch followed by StartMatch.
func setupStartedMatch(t *testing.T, numPlayers int, strict bool) (*Match, []uuid.UUID) {
	t.Helper()
	m, ids := setupTestMatch(t, numPlayers, strict)
	require.NoError(t, m.StartMatch(ids[0]))
	return m, ids
}

// rig replaces the discard pile with top and sets the hands of the first len(hands) players.
func rig(m *Match, top models.Card, hands ...[]models.Card) {
	m.DiscardPile = []models.Card{top}
	for i, h := range hands {
		m.Players[i].Cards = h
		m.Players[i].UpdateCardCount()
	}
}

func totalCards(m *Match) int {
	n := len(m.Deck) + len(m.DiscardPile)
	for _, p := range m.Players {
		n += len(p.Cards)
	}
	return n
}

func requireUnchanged(t *testing.T, before, after *Match) {
	t.Helper()
	b, err := before.Digest()
	require.NoError(t, err)
	a, err := after.Digest()
	require.NoError(t, err)
	require.Equal(t, b, a, "rejected operation must not mutate the match")
}

func TestStartMatch(t *testing.T) {
	m, _ := setupStartedMatch(t, 2, false)

	assert.Equal(t, StatusInProgress, m.Status)
	assert.Equal(t, 0, m.CurrentPlayerIndex)
	assert.Len(t, m.DiscardPile, 1)
	assert.Len(t, m.Deck, DeckSize-2*HandSize-1)
	for _, p := range m.Players {
		assert.Len(t, p.Cards, HandSize)
		assert.Equal(t, HandSize, p.CardCount)
	}
	assert.Equal(t, DeckSize, totalCards(m))
}

func TestStartMatchIsDeterministic(t *testing.T) {
	host := newID()
	guest := newID()
	id := newID()
	build := func() *Match {
		m := NewMatch(id, models.MatchConfig{MaxPlayers: 2, Host: &host}, id.String())
		require.NoError(t, m.JoinMatch(host, "host"))
		require.NoError(t, m.JoinMatch(guest, "guest"))
		require.NoError(t, m.StartMatch(host))
		return m
	}
	a, b := build(), build()
	da, err := a.Digest()
	require.NoError(t, err)
	db, err := b.Digest()
	require.NoError(t, err)
	assert.Equal(t, da, db)
	assert.Equal(t, a.Players[0].Cards, b.Players[0].Cards)
}

func TestJoinAndStartBoundaries(t *testing.T) {
	m, ids := setupTestMatch(t, 2, false)

	err := m.JoinMatch(newID(), "late")
	require.ErrorIs(t, err, ErrMatchFull)
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, 2, gerr.Value)

	host := ids[0]
	solo := NewMatch(newID(), models.MatchConfig{MaxPlayers: 4, Host: &host}, "s")
	require.NoError(t, solo.JoinMatch(host, "host"))
	assert.ErrorIs(t, solo.JoinMatch(host, "again"), ErrPlayerAlreadyJoined)

	err = solo.StartMatch(host)
	require.ErrorIs(t, err, ErrNotEnoughPlayers)
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, 2, gerr.Value)

	assert.ErrorIs(t, m.StartMatch(ids[1]), ErrOnlyHostCanStart)
	require.NoError(t, m.StartMatch(ids[0]))
	assert.ErrorIs(t, m.StartMatch(ids[0]), ErrMatchAlreadyStarted)
	assert.ErrorIs(t, m.JoinMatch(newID(), "x"), ErrMatchAlreadyStarted)
}

func TestFirstJoinerHostsWithoutConfiguredHost(t *testing.T) {
	a, b := newID(), newID()
	m := NewMatch(newID(), models.MatchConfig{}, "s")
	assert.Equal(t, models.DefaultMaxPlayers, m.Config.MaxPlayers)
	require.NoError(t, m.JoinMatch(a, "a"))
	require.NoError(t, m.JoinMatch(b, "b"))
	assert.ErrorIs(t, m.StartMatch(b), ErrOnlyHostCanStart)
	assert.NoError(t, m.StartMatch(a))
}

func TestAdvanceTurnCycles(t *testing.T) {
	m, _ := setupStartedMatch(t, 4, false)
	seen := []int{}
	for i := 0; i < 4; i++ {
		m.advanceTurn()
		seen = append(seen, m.CurrentPlayerIndex)
	}
	assert.Equal(t, []int{1, 2, 3, 0}, seen)
}

func TestAdvanceTurnSkipsInactive(t *testing.T) {
	m, _ := setupStartedMatch(t, 4, false)
	m.Players[1].IsActive = false
	m.Players[2].IsActive = false
	m.advanceTurn()
	assert.Equal(t, 3, m.CurrentPlayerIndex)
	m.advanceTurn()
	assert.Equal(t, 0, m.CurrentPlayerIndex)
}

func TestPlayMatchingSuit(t *testing.T) {
	m, ids := setupStartedMatch(t, 2, false)
	rig(m, card(models.SuitCircle, models.ValueThree),
		[]models.Card{card(models.SuitCircle, models.ValueFive), card(models.SuitSquare, models.ValueNine)})

	require.NoError(t, m.PlayCard(ids[0], 0, nil))

	top, ok := m.TopCard()
	require.True(t, ok)
	assert.Equal(t, card(models.SuitCircle, models.ValueFive), top)
	assert.Len(t, m.DiscardPile, 2)
	assert.Equal(t, []models.Card{card(models.SuitSquare, models.ValueNine)}, m.Players[0].Cards)
	assert.Equal(t, 1, m.Players[0].CardCount)
	assert.True(t, m.Players[0].CalledLastCard, "reaching one card calls it automatically")
	assert.Equal(t, 1, m.CurrentPlayerIndex)
	assert.Equal(t, 0, m.PendingPenalty)
	assert.Nil(t, m.ActiveShapeDemand)
}

func TestPlayCardRejections(t *testing.T) {
	m, ids := setupStartedMatch(t, 2, false)
	rig(m, card(models.SuitCircle, models.ValueThree),
		[]models.Card{card(models.SuitStar, models.ValueFive)})
	before := m.Clone()

	assert.ErrorIs(t, m.PlayCard(ids[1], 0, nil), ErrNotYourTurn)
	assert.ErrorIs(t, m.PlayCard(newID(), 0, nil), ErrNotYourTurn)

	err := m.PlayCard(ids[0], 3, nil)
	require.ErrorIs(t, err, ErrInvalidCardIndex)
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, 3, gerr.Value)
	assert.ErrorIs(t, m.PlayCard(ids[0], -1, nil), ErrInvalidCardIndex)

	assert.ErrorIs(t, m.PlayCard(ids[0], 0, nil), ErrInvalidCardPlay)
	requireUnchanged(t, before, m)

	m.DiscardPile = []models.Card{}
	assert.ErrorIs(t, m.PlayCard(ids[0], 0, nil), ErrNoCardInDiscardPile)

	waiting, wids := setupTestMatch(t, 2, false)
	assert.ErrorIs(t, waiting.PlayCard(wids[0], 0, nil), ErrMatchNotInProgress)
}

func TestDrawTwoPenalty(t *testing.T) {
	m, ids := setupStartedMatch(t, 2, false)
	rig(m, card(models.SuitCircle, models.ValueFour),
		[]models.Card{card(models.SuitCircle, models.ValueDrawTwo), card(models.SuitCross, models.ValueSeven)})

	require.NoError(t, m.PlayCard(ids[0], 0, nil))
	assert.Equal(t, 2, m.PendingPenalty)
	assert.Equal(t, 1, m.CurrentPlayerIndex)

	handBefore := m.Players[1].CardCount
	deckBefore := len(m.Deck)
	require.NoError(t, m.DrawCard(ids[1]))
	assert.Equal(t, handBefore+2, m.Players[1].CardCount)
	assert.Len(t, m.Players[1].Cards, handBefore+2)
	assert.Len(t, m.Deck, deckBefore-2)
	assert.Equal(t, 0, m.PendingPenalty)
	assert.Equal(t, 0, m.CurrentPlayerIndex)
}

func TestPenaltyChainsOnlyWithSameKind(t *testing.T) {
	m, ids := setupStartedMatch(t, 2, false)
	rig(m, card(models.SuitCircle, models.ValueDrawTwo),
		[]models.Card{card(models.SuitCircle, models.ValueOne)},
		[]models.Card{card(models.SuitCircle, models.ValueFive), card(models.SuitStar, models.ValueDrawThree), card(models.SuitStar, models.ValueDrawTwo)})
	m.CurrentPlayerIndex = 1
	m.PendingPenalty = 2

	assert.ErrorIs(t, m.PlayCard(ids[1], 0, nil), ErrInvalidCardPlay)
	assert.ErrorIs(t, m.PlayCard(ids[1], 1, nil), ErrInvalidCardPlay)
	require.NoError(t, m.PlayCard(ids[1], 2, nil))
	assert.Equal(t, 2, m.PendingPenalty)
	assert.Equal(t, 0, m.CurrentPlayerIndex)
}

func TestSkipNextSkipsExactlyOnePlayer(t *testing.T) {
	m, ids := setupStartedMatch(t, 3, false)
	rig(m, card(models.SuitCircle, models.ValueTwo),
		[]models.Card{card(models.SuitCircle, models.ValueSkipOne), card(models.SuitCross, models.ValueSeven)})

	require.NoError(t, m.PlayCard(ids[0], 0, nil))
	assert.Equal(t, 2, m.CurrentPlayerIndex)

	two, tids := setupStartedMatch(t, 2, false)
	rig(two, card(models.SuitCircle, models.ValueTwo),
		[]models.Card{card(models.SuitCircle, models.ValueSkipOne), card(models.SuitCross, models.ValueSeven)})
	require.NoError(t, two.PlayCard(tids[0], 0, nil))
	assert.Equal(t, 0, two.CurrentPlayerIndex, "in a two-player match the player goes again")
}

func TestHoldOnPlaysAgain(t *testing.T) {
	m, ids := setupStartedMatch(t, 2, false)
	rig(m, card(models.SuitCircle, models.ValueTwo),
		[]models.Card{card(models.SuitCircle, models.ValueHoldOn), card(models.SuitCross, models.ValueSeven), card(models.SuitCross, models.ValueEight)})

	require.NoError(t, m.PlayCard(ids[0], 0, nil))
	assert.Equal(t, 0, m.CurrentPlayerIndex)
}

func TestGeneralMarket(t *testing.T) {
	m, ids := setupStartedMatch(t, 3, false)
	rig(m, card(models.SuitCircle, models.ValueTwo),
		[]models.Card{card(models.SuitCircle, models.ValueSkipAll), card(models.SuitCross, models.ValueFour)})
	deck := len(m.Deck)

	require.NoError(t, m.PlayCard(ids[0], 0, nil))
	assert.Equal(t, 1, m.Players[0].CardCount)
	assert.Equal(t, HandSize+1, m.Players[1].CardCount)
	assert.Equal(t, HandSize+1, m.Players[2].CardCount)
	assert.Len(t, m.Deck, deck-2)
	assert.Equal(t, 1, m.CurrentPlayerIndex)
}

func TestGeneralMarketShortDeckDoesNotReshuffle(t *testing.T) {
	m, ids := setupStartedMatch(t, 3, false)
	rig(m, card(models.SuitCircle, models.ValueTwo),
		[]models.Card{card(models.SuitCircle, models.ValueSkipAll), card(models.SuitCross, models.ValueFour)})
	m.DiscardPile = []models.Card{
		card(models.SuitStar, models.ValueOne),
		card(models.SuitSquare, models.ValueThree),
		card(models.SuitCircle, models.ValueTwo),
	}
	m.Deck = m.Deck[:1]
	total := totalCards(m)

	require.NoError(t, m.PlayCard(ids[0], 0, nil))
	assert.Equal(t, HandSize+1, m.Players[1].CardCount, "first opponent takes the last card")
	assert.Equal(t, HandSize, m.Players[2].CardCount, "nothing left for the second opponent")
	assert.Empty(t, m.Deck)
	assert.Equal(t, 0, m.RoundNumber)
	assert.Equal(t, []models.Card{
		card(models.SuitStar, models.ValueOne),
		card(models.SuitSquare, models.ValueThree),
		card(models.SuitCircle, models.ValueTwo),
		card(models.SuitCircle, models.ValueSkipAll),
	}, m.DiscardPile)
	assert.Equal(t, total, totalCards(m))
}

func TestWildDemand(t *testing.T) {
	m, ids := setupStartedMatch(t, 2, false)
	rig(m, card(models.SuitSquare, models.ValueNine),
		[]models.Card{card(models.SuitCircle, models.ValueWild), card(models.SuitCross, models.ValueTwo)},
		[]models.Card{card(models.SuitCircle, models.ValueNine), card(models.SuitStar, models.ValueThree), card(models.SuitCross, models.ValueOne)})

	require.NoError(t, m.PlayCard(ids[0], 0, suitPtr(models.SuitStar)))
	require.NotNil(t, m.ActiveShapeDemand)
	assert.Equal(t, models.SuitStar, *m.ActiveShapeDemand)
	assert.Equal(t, 1, m.CurrentPlayerIndex)

	assert.ErrorIs(t, m.PlayCard(ids[1], 0, nil), ErrInvalidCardPlay)
	require.NoError(t, m.PlayCard(ids[1], 1, nil))
	assert.Nil(t, m.ActiveShapeDemand, "a plain card clears the demand")
}

func TestDrawClearsDemand(t *testing.T) {
	m, ids := setupStartedMatch(t, 2, false)
	m.ActiveShapeDemand = suitPtr(models.SuitTriangle)
	require.NoError(t, m.DrawCard(ids[0]))
	assert.Nil(t, m.ActiveShapeDemand)
	assert.Equal(t, HandSize+1, m.Players[0].CardCount)
	assert.Equal(t, 1, m.CurrentPlayerIndex)

	assert.ErrorIs(t, m.DrawCard(ids[0]), ErrNotYourTurn)
}

func TestDrawReshufflesDiscardPile(t *testing.T) {
	m, ids := setupStartedMatch(t, 2, false)
	top := card(models.SuitCircle, models.ValueThree)
	m.Deck = []models.Card{}
	m.DiscardPile = []models.Card{card(models.SuitCircle, models.ValueOne), card(models.SuitCircle, models.ValueTwo), top}

	require.NoError(t, m.DrawCard(ids[0]))
	assert.Equal(t, 1, m.RoundNumber)
	assert.Equal(t, []models.Card{top}, m.DiscardPile)
	assert.Len(t, m.Deck, 1)
	assert.Equal(t, HandSize+1, m.Players[0].CardCount)
}

func TestDrawWithNothingLeftStillPasses(t *testing.T) {
	m, ids := setupStartedMatch(t, 2, false)
	m.Deck = []models.Card{}
	m.DiscardPile = m.DiscardPile[:1]
	m.PendingPenalty = 3

	require.NoError(t, m.DrawCard(ids[0]))
	assert.Equal(t, HandSize, m.Players[0].CardCount)
	assert.Equal(t, 0, m.PendingPenalty, "penalty clears even if nothing could be drawn")
	assert.Equal(t, 1, m.CurrentPlayerIndex)
	assert.Equal(t, 0, m.RoundNumber)
}

func TestEmptyHandWins(t *testing.T) {
	m, ids := setupStartedMatch(t, 2, false)
	rig(m, card(models.SuitCircle, models.ValueThree),
		[]models.Card{card(models.SuitCircle, models.ValueFive)})

	require.NoError(t, m.PlayCard(ids[0], 0, nil))
	assert.Equal(t, StatusFinished, m.Status)
	require.NotNil(t, m.WinnerIndex)
	assert.Equal(t, 0, *m.WinnerIndex)
	assert.Equal(t, ids[0], m.Winner().Owner)

	before := m.Clone()
	for _, id := range ids {
		assert.ErrorIs(t, m.PlayCard(id, 0, nil), ErrMatchNotInProgress)
		assert.ErrorIs(t, m.DrawCard(id), ErrMatchNotInProgress)
		assert.ErrorIs(t, m.LeaveMatch(id), ErrMatchNotInProgress)
		assert.ErrorIs(t, m.CallLastCard(id), ErrMatchNotInProgress)
	}
	assert.ErrorIs(t, m.ChallengeLastCard(1), ErrMatchNotInProgress)
	assert.ErrorIs(t, m.JoinMatch(newID(), "x"), ErrMatchNotInProgress)
	assert.ErrorIs(t, m.StartMatch(ids[0]), ErrMatchNotInProgress)
	requireUnchanged(t, before, m)
}

func TestExhaustedDeckFewestCardsWins(t *testing.T) {
	m, ids := setupStartedMatch(t, 3, false)
	rig(m, card(models.SuitCircle, models.ValueThree),
		[]models.Card{card(models.SuitCircle, models.ValueFive), card(models.SuitCircle, models.ValueSix), card(models.SuitCircle, models.ValueSeven)},
		[]models.Card{card(models.SuitCross, models.ValueOne), card(models.SuitCross, models.ValueTwo)},
		[]models.Card{card(models.SuitStar, models.ValueOne), card(models.SuitStar, models.ValueTwo)})
	m.Deck = []models.Card{}

	require.NoError(t, m.PlayCard(ids[0], 0, nil))
	assert.Equal(t, StatusFinished, m.Status)
	require.NotNil(t, m.WinnerIndex)
	assert.Equal(t, 0, *m.WinnerIndex, "ties go to the lowest index")
}

func TestLeaveMatch(t *testing.T) {
	m, ids := setupStartedMatch(t, 3, false)

	require.NoError(t, m.LeaveMatch(ids[0]))
	assert.False(t, m.Players[0].IsActive)
	assert.Equal(t, StatusInProgress, m.Status)
	assert.Equal(t, 1, m.CurrentPlayerIndex, "turn passes when the current player leaves")
	require.NoError(t, m.LeaveMatch(ids[0]), "leaving twice is a no-op")

	require.NoError(t, m.LeaveMatch(ids[2]))
	assert.Equal(t, StatusFinished, m.Status)
	require.NotNil(t, m.WinnerIndex)
	assert.Equal(t, 1, *m.WinnerIndex)

	other, _ := setupStartedMatch(t, 2, false)
	assert.ErrorIs(t, other.LeaveMatch(newID()), ErrNotInMatch)
}

func TestLeaveWhileWaiting(t *testing.T) {
	m, ids := setupTestMatch(t, 2, false)
	require.NoError(t, m.LeaveMatch(ids[1]))
	assert.Equal(t, StatusFinished, m.Status)
	require.NotNil(t, m.WinnerIndex)
	assert.Equal(t, 0, *m.WinnerIndex)
}

func TestLastCardCallAndChallenge(t *testing.T) {
	m, ids := setupStartedMatch(t, 2, false)
	rig(m, card(models.SuitCircle, models.ValueThree),
		[]models.Card{card(models.SuitCross, models.ValueTen)},
		[]models.Card{card(models.SuitCross, models.ValueEleven)})
	deck := len(m.Deck)

	require.NoError(t, m.ChallengeLastCard(0))
	assert.Equal(t, 3, m.Players[0].CardCount)
	assert.Len(t, m.Deck, deck-2)
	assert.Equal(t, 0, m.CurrentPlayerIndex, "challenge does not move the turn")

	require.NoError(t, m.CallLastCard(ids[1]))
	assert.True(t, m.Players[1].CalledLastCard)
	require.NoError(t, m.ChallengeLastCard(1))
	assert.Equal(t, 1, m.Players[1].CardCount, "called players are safe")

	// The flag can be set on any hand size outside strict mode.
	require.NoError(t, m.CallLastCard(ids[0]))
	assert.True(t, m.Players[0].CalledLastCard)

	err := m.ChallengeLastCard(5)
	require.ErrorIs(t, err, ErrInvalidPlayerIndex)
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, 5, gerr.Value)

	assert.ErrorIs(t, m.CallLastCard(newID()), ErrNotInMatch)
}

func TestChallengeDoesNotReshuffle(t *testing.T) {
	m, _ := setupStartedMatch(t, 2, false)
	rig(m, card(models.SuitCircle, models.ValueThree), []models.Card{card(models.SuitCross, models.ValueTen)})
	m.DiscardPile = append([]models.Card{card(models.SuitStar, models.ValueOne)}, m.DiscardPile...)
	m.Deck = []models.Card{card(models.SuitStar, models.ValueTwo)}

	require.NoError(t, m.ChallengeLastCard(0))
	assert.Equal(t, 2, m.Players[0].CardCount)
	assert.Empty(t, m.Deck)
	assert.Len(t, m.DiscardPile, 2)
	assert.Equal(t, 0, m.RoundNumber)
}

func TestStrictMode(t *testing.T) {
	m, ids := setupStartedMatch(t, 2, true)
	rig(m, card(models.SuitCircle, models.ValueThree),
		[]models.Card{card(models.SuitStar, models.ValueWild), card(models.SuitCircle, models.ValueNine), card(models.SuitCross, models.ValueTen)})
	before := m.Clone()

	assert.ErrorIs(t, m.PlayCard(ids[0], 0, nil), ErrSuitRequired)
	assert.ErrorIs(t, m.CallLastCard(ids[0]), ErrNotOnLastCard)
	assert.ErrorIs(t, m.DrawCard(ids[0]), ErrPlayableCardHeld)
	requireUnchanged(t, before, m)

	require.NoError(t, m.PlayCard(ids[0], 0, suitPtr(models.SuitCross)))
	assert.Equal(t, models.SuitCross, *m.ActiveShapeDemand)

	rig(m, card(models.SuitStar, models.ValueWild), []models.Card{card(models.SuitCross, models.ValueTen)},
		[]models.Card{card(models.SuitCircle, models.ValueOne)})
	require.NoError(t, m.DrawCard(ids[1]), "no legal play, so drawing is allowed")
	require.NoError(t, m.CallLastCard(ids[0]))
}

func TestApplyDispatch(t *testing.T) {
	m, ids := setupTestMatch(t, 3, false)
	assert.ErrorIs(t, m.Apply(nil, StartMatch{}), ErrCallerRequired)

	host := ids[0]
	assert.ErrorIs(t, m.Apply(&host, PlaceBet{Amount: 10}), ErrBettingNotImplemented)

	late := newID()
	assert.ErrorIs(t, m.Apply(&late, JoinMatch{Nickname: "late"}), ErrMatchFull)
	require.NoError(t, m.Apply(&host, StartMatch{}))
	assert.Equal(t, StatusInProgress, m.Status)
	require.NoError(t, m.Apply(&host, DrawCard{}))
	assert.Equal(t, 1, m.CurrentPlayerIndex)
	assert.Equal(t, 2, m.Ply, "only accepted operations count")
}

func TestApplyAcceptsPointerOperations(t *testing.T) {
	m, ids := setupTestMatch(t, 2, false)
	host, guest := ids[0], ids[1]

	require.NoError(t, m.Apply(&host, &StartMatch{}))
	assert.Equal(t, StatusInProgress, m.Status)
	require.NoError(t, m.Apply(&host, &DrawCard{}))
	assert.Equal(t, 1, m.CurrentPlayerIndex)
	assert.ErrorIs(t, m.Apply(&guest, &PlaceBet{Amount: 5}), ErrBettingNotImplemented)

	var nilOp *DrawCard
	before := m.Clone()
	assert.ErrorIs(t, m.Apply(&guest, nilOp), ErrUnknownOperation)
	requireUnchanged(t, before, m)
	assert.Equal(t, 2, m.Ply)
}
