package game

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/linot/internal/models"
)

// ReplayEntry is one accepted operation and who issued it.
type ReplayEntry struct {
	Caller    uuid.UUID
	Operation Operation
}

type replayEntryJSON struct {
	Caller    uuid.UUID       `json:"caller"`
	Operation json.RawMessage `json:"operation"`
}

func (e ReplayEntry) MarshalJSON() ([]byte, error) {
	op, err := EncodeOperation(e.Operation)
	if err != nil {
		return nil, err
	}
	return json.Marshal(replayEntryJSON{Caller: e.Caller, Operation: op})
}

func (e *ReplayEntry) UnmarshalJSON(data []byte) error {
	var raw replayEntryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	op, err := DecodeOperation(raw.Operation)
	if err != nil {
		return err
	}
	e.Caller = raw.Caller
	e.Operation = op
	return nil
}

// ReplayLog is everything needed to rebuild a match from scratch.
type ReplayLog struct {
	MatchID uuid.UUID          `json:"match_id"`
	Seed    string             `json:"seed"`
	Config  models.MatchConfig `json:"config"`
	Entries []ReplayEntry      `json:"entries"`
}

// Replay rebuilds a match by applying entries in order. It stops at the first rejected entry.
func Replay(id uuid.UUID, cfg models.MatchConfig, seed string, entries []ReplayEntry) (*Match, error) {
	m := NewMatch(id, cfg, seed)
	for i, e := range entries {
		caller := e.Caller
		if err := m.Apply(&caller, e.Operation); err != nil {
			return m, fmt.Errorf("entry %d (%s by %s): %w", i, e.Operation.Type(), caller, err)
		}
	}
	return m, nil
}

// Run replays the log.
func (l ReplayLog) Run() (*Match, error) {
	return Replay(l.MatchID, l.Config, l.Seed, l.Entries)
}

// Clone returns a deep copy of m.
func (m *Match) Clone() *Match {
	c := *m
	c.Config.Host = nil
	if m.Config.Host != nil {
		h := *m.Config.Host
		c.Config.Host = &h
	}
	c.Players = make([]models.Player, len(m.Players))
	for i, p := range m.Players {
		p.Cards = append([]models.Card{}, p.Cards...)
		c.Players[i] = p
	}
	c.Deck = append([]models.Card{}, m.Deck...)
	c.DiscardPile = append([]models.Card{}, m.DiscardPile...)
	c.WinnerIndex = copyInt(m.WinnerIndex)
	c.ActiveShapeDemand = copySuit(m.ActiveShapeDemand)
	return &c
}

// Digest is the hex SHA-256 of the match's JSON encoding. Two parties that applied the same
// operations from the same seed get the same digest.
func (m *Match) Digest() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
