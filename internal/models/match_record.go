package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchSummary is a row of the matches table.
type MatchSummary struct {
	ID          uuid.UUID   `json:"id"`
	HostUserID  uuid.UUID   `json:"host_user_id"`
	Status      string      `json:"status"`
	Ranked      bool        `json:"is_ranked"`
	PlayerCount int         `json:"player_count"`
	MaxPlayers  int         `json:"max_players"`
	WinnerID    *uuid.UUID  `json:"winner_id,omitempty"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Players     []uuid.UUID `json:"players,omitempty"`
}

// MatchAction captures one accepted operation for the historian.
type MatchAction struct {
	MatchID       uuid.UUID              `json:"match_id"`
	ActionIndex   int                    `json:"action_index"`
	ActorUserID   uuid.UUID              `json:"actor_user_id"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}
