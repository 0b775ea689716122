package match

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/linot/internal/game"
	"github.com/jason-s-yu/linot/internal/models"
	"github.com/sirupsen/logrus"
)

// scheduleTurnTimer restarts the turn clock for the current player. Assumes lock is held.
func (s *Session) scheduleTurnTimer() {
	if s.turnTimer != nil {
		s.turnTimer.Stop()
		s.turnTimer = nil
	}
	if s.opts.TurnTimeout <= 0 || s.closed || s.match.Status != game.StatusInProgress {
		return
	}
	current := s.match.CurrentPlayer()
	if current == nil {
		return
	}

	playerID, ply := current.Owner, s.match.Ply
	s.turnTimer = time.AfterFunc(s.opts.TurnTimeout, func() {
		s.handleTimeout(playerID, ply)
	})
}

// handleTimeout plays the forced move for a player whose clock ran out. A timer that fires
// after anything else was accepted is stale and does nothing.
func (s *Session) handleTimeout(playerID uuid.UUID, ply int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.log.WithFields(logrus.Fields{"user_id": playerID, "ply": ply})
	current := s.match.CurrentPlayer()
	if s.closed || s.match.Status != game.StatusInProgress || s.match.Ply != ply || current == nil || current.Owner != playerID {
		entry.Debug("stale turn timer ignored")
		return
	}

	entry.Info("turn timed out")
	op := forcedMove(s.match)
	err := s.applyLocked(context.Background(), playerID, op, map[string]interface{}{"reason": "turn_timeout"})
	if err != nil {
		entry.WithError(err).Error("forced move failed")
	}
}

// forcedMove is a draw, or in strict mode where drawing is refused, the first legal card.
// A Wild keeps its printed shape as the demand.
func forcedMove(m *game.Match) game.Operation {
	p := m.CurrentPlayer()
	top, ok := m.TopCard()
	if !m.Config.StrictMode || m.PendingPenalty > 0 || p == nil || !ok {
		return game.DrawCard{}
	}
	for i, c := range p.Cards {
		if !game.IsValidPlay(c, top, m.ActiveShapeDemand, m.PendingPenalty) {
			continue
		}
		op := game.PlayCard{CardIndex: i}
		if c.IsWild() {
			suit := c.Suit
			if !suit.Valid() {
				suit = models.SuitCircle
			}
			op.ChosenSuit = &suit
		}
		return op
	}
	return game.DrawCard{}
}
