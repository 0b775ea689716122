// internal/database/postgres.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/linot/internal/game"
	"github.com/jason-s-yu/linot/internal/models"
)

// PostgresRepository is the production Repository, backed by a pgx pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository connects, pings and applies the schema.
func NewPostgresRepository(ctx context.Context, connStr string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	r := &PostgresRepository{pool: pool}
	if err := r.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

func (r *PostgresRepository) migrate(ctx context.Context) error {
	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, stmt := range postgresSchema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to apply schema: %w", err)
			}
		}
		return nil
	})
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Rating == 0 {
		user.Rating = DefaultRating
	}
	q := `INSERT INTO users (id, email, password, username, is_ephemeral, rating, ranked_games)
	      VALUES ($1, $2, $3, $4, $5, $6, $7)`
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q,
			user.ID, user.Email, user.Password, user.Username,
			user.IsEphemeral, user.Rating, user.RankedGames,
		)
		return execErr
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

const pgUserColumns = `id, email, password, username, is_ephemeral, rating, ranked_games`

func (r *PostgresRepository) getUser(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `SELECT `+pgUserColumns+` FROM users WHERE `+where+`=$1`, arg).Scan(
		&u.ID, &u.Email, &u.Password, &u.Username,
		&u.IsEphemeral, &u.Rating, &u.RankedGames,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, "email", email)
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.getUser(ctx, "id", id)
}

func (r *PostgresRepository) UpdateRating(ctx context.Context, id uuid.UUID, rating int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET rating = $2, ranked_games = ranked_games + 1 WHERE id = $1`, id, rating)
	if err != nil {
		return fmt.Errorf("failed to update rating: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) SaveMatch(ctx context.Context, m *game.Match) error {
	snap, err := encodeSnapshot(m)
	if err != nil {
		return err
	}
	s := summaryOf(m)
	q := `
		INSERT INTO matches (id, host_user_id, status, is_ranked, snapshot, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id)
		DO UPDATE SET status = EXCLUDED.status, snapshot = EXCLUDED.snapshot, updated_at = NOW()
	`
	if _, err := r.pool.Exec(ctx, q, s.ID, s.HostUserID, s.Status, s.Ranked, snap); err != nil {
		return fmt.Errorf("failed to save match %s: %w", m.ID, err)
	}
	return nil
}

func (r *PostgresRepository) LoadMatch(ctx context.Context, id uuid.UUID) (*game.Match, error) {
	var snap []byte
	err := r.pool.QueryRow(ctx, `SELECT snapshot FROM matches WHERE id = $1`, id).Scan(&snap)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(snap)
}

func (r *PostgresRepository) ListMatches(ctx context.Context, status game.Status) ([]models.MatchSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, snapshot, updated_at FROM matches
		WHERE $1 = '' OR status = $1
		ORDER BY updated_at DESC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var out []models.MatchSummary
	for rows.Next() {
		var rowStatus string
		var snap []byte
		var updated time.Time
		if err := rows.Scan(&rowStatus, &snap, &updated); err != nil {
			return nil, err
		}
		m, err := decodeSnapshot(snap)
		if err != nil {
			return nil, err
		}
		s := summaryOf(m)
		s.Status = rowStatus
		s.UpdatedAt = updated
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) RecordResult(ctx context.Context, m *game.Match) error {
	s := summaryOf(m)
	q := `
		INSERT INTO match_results (match_id, winner_id, is_ranked, player_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (match_id) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, q, s.ID, s.WinnerID, s.Ranked, s.PlayerCount); err != nil {
		return fmt.Errorf("failed to record result for %s: %w", m.ID, err)
	}
	return nil
}

func (r *PostgresRepository) InsertActions(ctx context.Context, actions []models.MatchAction) error {
	q := `
		INSERT INTO match_actions (match_id, action_index, actor_user_id, action_type, action_payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (match_id, action_index) DO NOTHING
	`
	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, a := range actions {
			payload, err := json.Marshal(a.ActionPayload)
			if err != nil {
				return err
			}
			_, err = tx.Exec(ctx, q, a.MatchID, a.ActionIndex, a.ActorUserID, a.ActionType, payload,
				time.UnixMilli(a.Timestamp).UTC())
			if err != nil {
				return fmt.Errorf("insert action %s/%d: %w", a.MatchID, a.ActionIndex, err)
			}
		}
		return nil
	})
}

func (r *PostgresRepository) ListActions(ctx context.Context, matchID uuid.UUID) ([]models.MatchAction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT match_id, action_index, actor_user_id, action_type, action_payload, created_at
		FROM match_actions WHERE match_id = $1 ORDER BY action_index`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}
	defer rows.Close()

	var out []models.MatchAction
	for rows.Next() {
		var a models.MatchAction
		var payload []byte
		var created time.Time
		if err := rows.Scan(&a.MatchID, &a.ActionIndex, &a.ActorUserID, &a.ActionType, &payload, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &a.ActionPayload); err != nil {
			return nil, err
		}
		a.Timestamp = created.UnixMilli()
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) MarkAbandoned(ctx context.Context, id uuid.UUID) (bool, error) {
	var affected int64
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE matches SET status = $2, updated_at = NOW()
			WHERE id = $1 AND status IN ('waiting', 'in_progress')`, id, StatusAbandoned)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to mark match %s abandoned: %w", id, err)
	}
	return affected > 0, nil
}
