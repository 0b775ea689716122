// internal/database/repository.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/linot/internal/game"
	"github.com/jason-s-yu/linot/internal/models"
)

// ErrNotFound is returned when a user or match row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique key (user email) is already taken.
var ErrDuplicate = errors.New("already exists")

// Repository persists users, match snapshots, results and the action history.
type Repository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// UpdateRating stores a new rating and counts one more ranked game.
	UpdateRating(ctx context.Context, id uuid.UUID, rating int) error

	SaveMatch(ctx context.Context, m *game.Match) error
	LoadMatch(ctx context.Context, id uuid.UUID) (*game.Match, error)
	// ListMatches returns summaries, newest first. An empty status lists every match.
	ListMatches(ctx context.Context, status game.Status) ([]models.MatchSummary, error)
	RecordResult(ctx context.Context, m *game.Match) error

	InsertActions(ctx context.Context, actions []models.MatchAction) error
	ListActions(ctx context.Context, matchID uuid.UUID) ([]models.MatchAction, error)
	// MarkAbandoned flags an unfinished match as abandoned and reports whether it did.
	MarkAbandoned(ctx context.Context, id uuid.UUID) (bool, error)

	Close() error
}

// StatusAbandoned is written by the historian for matches that went quiet before finishing.
const StatusAbandoned = "abandoned"

// DefaultRating is assigned to new users.
const DefaultRating = 1200

// Open builds the repository selected by driver.
func Open(ctx context.Context, driver, dsn string) (Repository, error) {
	switch driver {
	case "postgres":
		return NewPostgresRepository(ctx, dsn)
	case "sqlite":
		return NewSQLiteRepository(ctx, dsn)
	case "memory", "":
		return NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

func summaryOf(m *game.Match) models.MatchSummary {
	s := models.MatchSummary{
		ID:          m.ID,
		Status:      string(m.Status),
		Ranked:      m.Config.Ranked,
		PlayerCount: len(m.Players),
		MaxPlayers:  m.Config.MaxPlayers,
		UpdatedAt:   time.Now().UTC(),
	}
	if m.Config.Host != nil {
		s.HostUserID = *m.Config.Host
	}
	if w := m.Winner(); w != nil {
		id := w.Owner
		s.WinnerID = &id
	}
	for _, p := range m.Players {
		s.Players = append(s.Players, p.Owner)
	}
	return s
}

func encodeSnapshot(m *game.Match) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode match %s: %w", m.ID, err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) (*game.Match, error) {
	var m game.Match
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode match snapshot: %w", err)
	}
	return &m, nil
}
