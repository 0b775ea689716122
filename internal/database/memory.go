package database

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/linot/internal/game"
	"github.com/jason-s-yu/linot/internal/models"
)

// MemoryRepository keeps everything in process. Matches are stored as encoded snapshots so
// callers never share state with the repository.
type MemoryRepository struct {
	mu      sync.Mutex
	users   map[uuid.UUID]models.User
	matches map[uuid.UUID]memoryMatch
	results map[uuid.UUID]models.MatchSummary
	actions map[uuid.UUID]map[int]models.MatchAction
}

type memoryMatch struct {
	status   string
	snapshot []byte
	updated  time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:   make(map[uuid.UUID]models.User),
		matches: make(map[uuid.UUID]memoryMatch),
		results: make(map[uuid.UUID]models.MatchSummary),
		actions: make(map[uuid.UUID]map[int]models.MatchAction),
	}
}

func (r *MemoryRepository) Close() error { return nil }

func (r *MemoryRepository) CreateUser(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return ErrDuplicate
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Rating == 0 {
		user.Rating = DefaultRating
	}
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryRepository) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *MemoryRepository) UpdateRating(_ context.Context, id uuid.UUID, rating int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Rating = rating
	u.RankedGames++
	r.users[id] = u
	return nil
}

func (r *MemoryRepository) SaveMatch(_ context.Context, m *game.Match) error {
	snap, err := encodeSnapshot(m)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches[m.ID] = memoryMatch{status: string(m.Status), snapshot: snap, updated: time.Now().UTC()}
	return nil
}

func (r *MemoryRepository) LoadMatch(_ context.Context, id uuid.UUID) (*game.Match, error) {
	r.mu.Lock()
	row, ok := r.matches[id]
	r.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decodeSnapshot(row.snapshot)
}

func (r *MemoryRepository) ListMatches(_ context.Context, status game.Status) ([]models.MatchSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.MatchSummary
	for _, row := range r.matches {
		if status != "" && row.status != string(status) {
			continue
		}
		m, err := decodeSnapshot(row.snapshot)
		if err != nil {
			return nil, err
		}
		s := summaryOf(m)
		s.Status = row.status
		s.UpdatedAt = row.updated
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *MemoryRepository) RecordResult(_ context.Context, m *game.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, done := r.results[m.ID]; !done {
		r.results[m.ID] = summaryOf(m)
	}
	return nil
}

// Result returns the recorded result for a match.
func (r *MemoryRepository) Result(id uuid.UUID) (models.MatchSummary, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.results[id]
	return s, ok
}

func (r *MemoryRepository) InsertActions(_ context.Context, actions []models.MatchAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range actions {
		byIndex, ok := r.actions[a.MatchID]
		if !ok {
			byIndex = make(map[int]models.MatchAction)
			r.actions[a.MatchID] = byIndex
		}
		if _, dup := byIndex[a.ActionIndex]; !dup {
			byIndex[a.ActionIndex] = a
		}
	}
	return nil
}

func (r *MemoryRepository) ListActions(_ context.Context, matchID uuid.UUID) ([]models.MatchAction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.MatchAction, 0, len(r.actions[matchID]))
	for _, a := range r.actions[matchID] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActionIndex < out[j].ActionIndex })
	return out, nil
}

func (r *MemoryRepository) MarkAbandoned(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.matches[id]
	if !ok || (row.status != string(game.StatusWaiting) && row.status != string(game.StatusInProgress)) {
		return false, nil
	}
	row.status = StatusAbandoned
	row.updated = time.Now().UTC()
	r.matches[id] = row
	return true, nil
}
