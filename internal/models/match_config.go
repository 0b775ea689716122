// internal/models/match_config.go
package models

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

const (
	DefaultMaxPlayers = 2
	MinPlayers        = 2
	// MaxPlayersLimit keeps the opening deal within a 75-card deck.
	MaxPlayersLimit = 12
)

// MatchConfig is fixed at match creation.
type MatchConfig struct {
	MaxPlayers int        `json:"max_players"`
	Host       *uuid.UUID `json:"host,omitempty"`
	Ranked     bool       `json:"is_ranked"`
	StrictMode bool       `json:"strict_mode"`
}

// DefaultMatchConfig returns a two-player casual configuration with no host set.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{MaxPlayers: DefaultMaxPlayers}
}

// Update applies the keys present in raw, typically a decoded JSON request body.
// Missing or null keys keep their current value.
func (c *MatchConfig) Update(raw map[string]interface{}) error {
	assignBool := func(field *bool, key string) error {
		if val, exists := raw[key]; exists && val != nil {
			b, ok := val.(bool)
			if !ok {
				return fmt.Errorf("invalid type for %s", key)
			}
			*field = b
		}
		return nil
	}

	if val, exists := raw["max_players"]; exists && val != nil {
		switch n := val.(type) {
		case float64:
			if n != math.Trunc(n) {
				return fmt.Errorf("max_players must be a whole number, got %v", n)
			}
			c.MaxPlayers = int(n)
		case int:
			c.MaxPlayers = n
		default:
			return fmt.Errorf("invalid type for max_players")
		}
	}
	if val, exists := raw["host"]; exists && val != nil {
		s, ok := val.(string)
		if !ok {
			return fmt.Errorf("invalid type for host")
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return fmt.Errorf("invalid host id: %w", err)
		}
		c.Host = &id
	}
	if err := assignBool(&c.Ranked, "is_ranked"); err != nil {
		return err
	}
	if err := assignBool(&c.StrictMode, "strict_mode"); err != nil {
		return err
	}
	return c.Validate()
}

// Validate checks the player bounds.
func (c MatchConfig) Validate() error {
	if c.MaxPlayers < MinPlayers || c.MaxPlayers > MaxPlayersLimit {
		return fmt.Errorf("max_players must be between %d and %d", MinPlayers, MaxPlayersLimit)
	}
	return nil
}
