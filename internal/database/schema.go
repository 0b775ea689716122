package database

// postgresSchema and sqliteSchema create the same tables. Match state lives in the snapshot
// column as the JSON encoding of game.Match.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		username TEXT NOT NULL,
		is_ephemeral BOOLEAN NOT NULL DEFAULT FALSE,
		rating INTEGER NOT NULL DEFAULT 1200,
		ranked_games INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS matches (
		id UUID PRIMARY KEY,
		host_user_id UUID NOT NULL,
		status TEXT NOT NULL,
		is_ranked BOOLEAN NOT NULL DEFAULT FALSE,
		snapshot JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS match_results (
		match_id UUID PRIMARY KEY REFERENCES matches(id),
		winner_id UUID,
		is_ranked BOOLEAN NOT NULL,
		player_count INTEGER NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS match_actions (
		match_id UUID NOT NULL,
		action_index INTEGER NOT NULL,
		actor_user_id UUID NOT NULL,
		action_type TEXT NOT NULL,
		action_payload JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (match_id, action_index)
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		username TEXT NOT NULL,
		is_ephemeral INTEGER NOT NULL DEFAULT 0,
		rating INTEGER NOT NULL DEFAULT 1200,
		ranked_games INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS matches (
		id TEXT PRIMARY KEY,
		host_user_id TEXT NOT NULL,
		status TEXT NOT NULL,
		is_ranked INTEGER NOT NULL DEFAULT 0,
		snapshot TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS match_results (
		match_id TEXT PRIMARY KEY REFERENCES matches(id),
		winner_id TEXT,
		is_ranked INTEGER NOT NULL,
		player_count INTEGER NOT NULL,
		finished_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS match_actions (
		match_id TEXT NOT NULL,
		action_index INTEGER NOT NULL,
		actor_user_id TEXT NOT NULL,
		action_type TEXT NOT NULL,
		action_payload TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (match_id, action_index)
	)`,
}
