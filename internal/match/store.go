// internal/match/store.go
package match

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/linot/internal/database"
	"github.com/jason-s-yu/linot/internal/game"
	"github.com/jason-s-yu/linot/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	// ErrMatchNotFound is returned for an id that is neither live nor persisted.
	ErrMatchNotFound = errors.New("match not found")
	// ErrSessionClosed is returned by operations on a session removed from its store.
	ErrSessionClosed = errors.New("match session closed")
)

// Store holds the live sessions and revives persisted ones on demand.
type Store struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	opts     Options
}

// NewStore creates a store. opts.Repo is required.
func NewStore(opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Store{
		sessions: make(map[uuid.UUID]*Session),
		opts:     opts,
	}
}

// Create opens a new match in Waiting. The creator becomes host unless cfg names one. The
// match id doubles as its shuffle seed.
func (st *Store) Create(ctx context.Context, cfg models.MatchConfig, creator uuid.UUID) (*Session, error) {
	if cfg.MaxPlayers == 0 {
		cfg.MaxPlayers = models.DefaultMaxPlayers
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Host == nil {
		host := creator
		cfg.Host = &host
	}

	id := uuid.New()
	m := game.NewMatch(id, cfg, id.String())
	if err := st.opts.Repo.SaveMatch(ctx, m); err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}

	s := newSession(m, &st.opts)
	st.mu.Lock()
	st.sessions[id] = s
	st.mu.Unlock()

	s.log.WithFields(logrus.Fields{"host": *cfg.Host, "max_players": cfg.MaxPlayers, "ranked": cfg.Ranked}).Info("match created")
	return s, nil
}

// Get returns the live session for id, loading the snapshot from the repository if needed.
func (st *Store) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[id]; ok {
		return s, nil
	}

	m, err := st.opts.Repo.LoadMatch(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load match %s: %w", id, err)
	}
	s := newSession(m, &st.opts)
	st.sessions[id] = s
	s.mu.Lock()
	s.scheduleTurnTimer()
	s.mu.Unlock()
	s.log.WithField("ply", m.Ply).Info("match restored from snapshot")
	return s, nil
}

// List returns persisted match summaries. An empty status lists everything.
func (st *Store) List(ctx context.Context, status game.Status) ([]models.MatchSummary, error) {
	return st.opts.Repo.ListMatches(ctx, status)
}

// Remove closes and forgets a live session. The persisted snapshot stays.
func (st *Store) Remove(id uuid.UUID) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if ok {
		s.Close()
	}
}

// Close closes every live session.
func (st *Store) Close() {
	st.mu.Lock()
	sessions := st.sessions
	st.sessions = make(map[uuid.UUID]*Session)
	st.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
