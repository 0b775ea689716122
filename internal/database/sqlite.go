// internal/database/sqlite.go
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/linot/internal/game"
	"github.com/jason-s-yu/linot/internal/models"
	_ "modernc.org/sqlite"
)

// SQLiteRepository is a single-file Repository for local play and tests. Pass ":memory:" for a
// throwaway database.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(ctx context.Context, dbPath string) (*SQLiteRepository, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		if parent := filepath.Dir(dbPath); parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One connection: every statement sees the same :memory: database and writes never contend.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	initCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pragmas := []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(initCtx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(initCtx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Rating == 0 {
		user.Rating = DefaultRating
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password, username, is_ephemeral, rating, ranked_games, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID.String(), user.Email, user.Password, user.Username,
		user.IsEphemeral, user.Rating, user.RankedGames, time.Now().UnixMilli(),
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) getUser(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	var u models.User
	var id string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password, username, is_ephemeral, rating, ranked_games FROM users WHERE `+where+` = ?`, arg,
	).Scan(&id, &u.Email, &u.Password, &u.Username, &u.IsEphemeral, &u.Rating, &u.RankedGames)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if u.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, "email", email)
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.getUser(ctx, "id", id.String())
}

func (r *SQLiteRepository) UpdateRating(ctx context.Context, id uuid.UUID, rating int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET rating = ?, ranked_games = ranked_games + 1 WHERE id = ?`, rating, id.String())
	if err != nil {
		return fmt.Errorf("failed to update rating: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) SaveMatch(ctx context.Context, m *game.Match) error {
	snap, err := encodeSnapshot(m)
	if err != nil {
		return err
	}
	s := summaryOf(m)
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO matches (id, host_user_id, status, is_ranked, snapshot, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id)
		DO UPDATE SET status = excluded.status, snapshot = excluded.snapshot, updated_at = excluded.updated_at`,
		s.ID.String(), s.HostUserID.String(), s.Status, s.Ranked, string(snap), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save match %s: %w", m.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) LoadMatch(ctx context.Context, id uuid.UUID) (*game.Match, error) {
	var snap string
	err := r.db.QueryRowContext(ctx, `SELECT snapshot FROM matches WHERE id = ?`, id.String()).Scan(&snap)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeSnapshot([]byte(snap))
}

func (r *SQLiteRepository) ListMatches(ctx context.Context, status game.Status) ([]models.MatchSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, snapshot, updated_at FROM matches
		WHERE ? = '' OR status = ?
		ORDER BY updated_at DESC`, string(status), string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var out []models.MatchSummary
	for rows.Next() {
		var rowStatus, snap string
		var updated int64
		if err := rows.Scan(&rowStatus, &snap, &updated); err != nil {
			return nil, err
		}
		m, err := decodeSnapshot([]byte(snap))
		if err != nil {
			return nil, err
		}
		s := summaryOf(m)
		s.Status = rowStatus
		s.UpdatedAt = time.UnixMilli(updated).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) RecordResult(ctx context.Context, m *game.Match) error {
	s := summaryOf(m)
	var winner sql.NullString
	if s.WinnerID != nil {
		winner = sql.NullString{String: s.WinnerID.String(), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO match_results (match_id, winner_id, is_ranked, player_count, finished_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (match_id) DO NOTHING`,
		s.ID.String(), winner, s.Ranked, s.PlayerCount, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record result for %s: %w", m.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) InsertActions(ctx context.Context, actions []models.MatchAction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, a := range actions {
		payload, err := json.Marshal(a.ActionPayload)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO match_actions (match_id, action_index, actor_user_id, action_type, action_payload, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (match_id, action_index) DO NOTHING`,
			a.MatchID.String(), a.ActionIndex, a.ActorUserID.String(), a.ActionType, string(payload), a.Timestamp,
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert action %s/%d: %w", a.MatchID, a.ActionIndex, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) ListActions(ctx context.Context, matchID uuid.UUID) ([]models.MatchAction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT action_index, actor_user_id, action_type, action_payload, created_at
		FROM match_actions WHERE match_id = ? ORDER BY action_index`, matchID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}
	defer rows.Close()

	var out []models.MatchAction
	for rows.Next() {
		a := models.MatchAction{MatchID: matchID}
		var actor, payload string
		if err := rows.Scan(&a.ActionIndex, &actor, &a.ActionType, &payload, &a.Timestamp); err != nil {
			return nil, err
		}
		if a.ActorUserID, err = uuid.Parse(actor); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &a.ActionPayload); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkAbandoned(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE matches SET status = ?, updated_at = ?
		WHERE id = ? AND status IN ('waiting', 'in_progress')`,
		StatusAbandoned, time.Now().UnixMilli(), id.String())
	if err != nil {
		return false, fmt.Errorf("failed to mark match %s abandoned: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
