package models

import "github.com/google/uuid"

type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Password string    `json:"password,omitempty"`
	Username string    `json:"username"`

	IsEphemeral bool `json:"is_ephemeral"`

	// Rating is only updated by ranked matches.
	Rating      int `json:"rating"`
	RankedGames int `json:"ranked_games"`
}
