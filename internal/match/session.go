// internal/match/session.go
package match

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/linot/internal/database"
	"github.com/jason-s-yu/linot/internal/game"
	"github.com/jason-s-yu/linot/internal/models"
	"github.com/jason-s-yu/linot/internal/rating"
	"github.com/sirupsen/logrus"
)

// Publisher ships accepted operations to the action history. *cache.ActionQueue satisfies it.
type Publisher interface {
	Publish(ctx context.Context, record models.MatchAction) error
}

// Options are shared by every session a Store creates.
type Options struct {
	Repo      database.Repository
	Publisher Publisher // nil disables action records
	Logger    *logrus.Logger
	// TurnTimeout draws for a player who sits on their turn. Zero disables the clock.
	TurnTimeout time.Duration
	// PublishTimeout bounds one async publish. Defaults to two seconds.
	PublishTimeout time.Duration
}

// viewBuffer is how many unsent views a subscriber may fall behind before new ones are dropped.
const viewBuffer = 16

// Session serializes all access to one match and commits every accepted operation.
type Session struct {
	mu        sync.Mutex
	match     *game.Match
	opts      *Options
	log       *logrus.Entry
	turnTimer *time.Timer
	closed    bool

	subscribers map[uuid.UUID]map[chan game.PlayerView]struct{}
}

func newSession(m *game.Match, opts *Options) *Session {
	return &Session{
		match:       m,
		opts:        opts,
		log:         opts.Logger.WithField("match_id", m.ID),
		subscribers: make(map[uuid.UUID]map[chan game.PlayerView]struct{}),
	}
}

// ID returns the match id.
func (s *Session) ID() uuid.UUID {
	return s.match.ID
}

// Apply runs op for caller. A rejected operation is returned unchanged and nothing is
// committed. An accepted one is persisted, recorded, and pushed to subscribers.
func (s *Session) Apply(ctx context.Context, caller uuid.UUID, op game.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return s.applyLocked(ctx, caller, op, nil)
}

// applyLocked assumes s.mu is held. extra is merged into the action record payload.
func (s *Session) applyLocked(ctx context.Context, caller uuid.UUID, op game.Operation, extra map[string]interface{}) error {
	before := s.match.Clone()
	wasFinished := s.match.Status == game.StatusFinished

	if err := s.match.Apply(&caller, op); err != nil {
		s.log.WithFields(logrus.Fields{
			"caller":    caller,
			"operation": op.Type(),
		}).WithError(err).Warn("operation rejected")
		return err
	}

	if err := s.opts.Repo.SaveMatch(ctx, s.match); err != nil {
		s.match = before
		s.log.WithError(err).Error("failed to persist match, operation rolled back")
		return fmt.Errorf("persist match: %w", err)
	}

	s.publishAction(caller, op, extra)
	if !wasFinished && s.match.Status == game.StatusFinished {
		s.onFinished(ctx)
	}
	s.broadcastLocked()
	s.scheduleTurnTimer()
	return nil
}

// publishAction sends the action record in the background. Assumes lock is held.
func (s *Session) publishAction(caller uuid.UUID, op game.Operation, extra map[string]interface{}) {
	if s.opts.Publisher == nil {
		return
	}
	payload, err := game.OperationPayload(op)
	if err != nil {
		s.log.WithError(err).Error("failed to encode action payload")
		return
	}
	for k, v := range extra {
		payload[k] = v
	}
	record := models.MatchAction{
		MatchID:       s.match.ID,
		ActionIndex:   s.match.Ply,
		ActorUserID:   caller,
		ActionType:    op.Type(),
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	timeout := s.opts.PublishTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	go func(rec models.MatchAction) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := s.opts.Publisher.Publish(ctx, rec); err != nil {
			s.log.WithError(err).WithField("action_index", rec.ActionIndex).Error("failed to publish action")
		}
	}(record)
}

// finalScores ranks a finished match for rating, lower being better: the winner scores 0,
// remaining players their hand size, and players who left rank below everyone.
func finalScores(m *game.Match) map[uuid.UUID]int {
	scores := make(map[uuid.UUID]int, len(m.Players))
	for _, p := range m.Players {
		if p.IsActive {
			scores[p.Owner] = p.CardCount
		} else {
			scores[p.Owner] = game.DeckSize + 1
		}
	}
	if w := m.Winner(); w != nil {
		scores[w.Owner] = 0
	}
	return scores
}

// onFinished records the result and, for ranked matches, settles ratings. Assumes lock is held.
func (s *Session) onFinished(ctx context.Context) {
	if err := s.opts.Repo.RecordResult(ctx, s.match); err != nil {
		s.log.WithError(err).Error("failed to record match result")
	}
	winner := s.match.Winner()
	fields := logrus.Fields{"ply": s.match.Ply}
	if winner != nil {
		fields["winner"] = winner.Owner
	}
	s.log.WithFields(fields).Info("match finished")

	if !s.match.Config.Ranked || winner == nil {
		return
	}
	users := make([]models.User, 0, len(s.match.Players))
	for _, p := range s.match.Players {
		u, err := s.opts.Repo.GetUserByID(ctx, p.Owner)
		if err != nil {
			s.log.WithError(err).WithField("user_id", p.Owner).Warn("skipping rating update, player not found")
			return
		}
		users = append(users, *u)
	}
	for _, u := range rating.FinalizeRatings(users, finalScores(s.match)) {
		if err := s.opts.Repo.UpdateRating(ctx, u.ID, u.Rating); err != nil {
			s.log.WithError(err).WithField("user_id", u.ID).Error("failed to update rating")
		}
	}
}

// Subscribe returns a channel of views for owner, primed with the current one. Views that do
// not fit in the buffer are dropped; the next view supersedes them anyway.
func (s *Session) Subscribe(owner uuid.UUID) (<-chan game.PlayerView, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan game.PlayerView, viewBuffer)
	if s.subscribers[owner] == nil {
		s.subscribers[owner] = make(map[chan game.PlayerView]struct{})
	}
	s.subscribers[owner][ch] = struct{}{}
	if view, ok := s.match.PlayerView(owner); ok {
		ch <- view
	}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if set, ok := s.subscribers[owner]; ok {
				if _, ok := set[ch]; ok {
					delete(set, ch)
					close(ch)
				}
				if len(set) == 0 {
					delete(s.subscribers, owner)
				}
			}
		})
	}
}

// broadcastLocked sends every subscribed player their own view. Assumes lock is held.
func (s *Session) broadcastLocked() {
	for owner, set := range s.subscribers {
		view, ok := s.match.PlayerView(owner)
		if !ok {
			continue
		}
		for ch := range set {
			select {
			case ch <- view:
			default:
				s.log.WithField("user_id", owner).Warn("subscriber is behind, dropping view")
			}
		}
	}
}

// View returns owner's view of the match.
func (s *Session) View(owner uuid.UUID) (game.PlayerView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.match.PlayerView(owner)
}

// Debug returns the full unmasked state.
func (s *Session) Debug() game.DebugView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.match.DebugView()
}

// Snapshot returns a deep copy of the match.
func (s *Session) Snapshot() *game.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.match.Clone()
}

// Close stops the turn clock and disconnects subscribers. Later operations fail with
// ErrSessionClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.turnTimer != nil {
		s.turnTimer.Stop()
	}
	for owner, set := range s.subscribers {
		for ch := range set {
			close(ch)
		}
		delete(s.subscribers, owner)
	}
}
