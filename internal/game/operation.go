// internal/game/operation.go
package game

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/linot/internal/models"
)

// Operation is one of the closed set of requests a match accepts.
type Operation interface {
	// Type is the wire name used in envelopes and action records.
	Type() string
	isOperation()
}

type JoinMatch struct {
	Nickname string `json:"nickname"`
}

type StartMatch struct{}

type PlayCard struct {
	CardIndex  int          `json:"card_index"`
	ChosenSuit *models.Suit `json:"chosen_suit,omitempty"`
}

type DrawCard struct{}

type CallLastCard struct{}

type ChallengeLastCard struct {
	PlayerIndex int `json:"player_index"`
}

type LeaveMatch struct{}

// PlaceBet is reserved. It is always rejected with ErrBettingNotImplemented.
type PlaceBet struct {
	Amount int64 `json:"amount"`
}

func (JoinMatch) Type() string         { return "join_match" }
func (StartMatch) Type() string        { return "start_match" }
func (PlayCard) Type() string          { return "play_card" }
func (DrawCard) Type() string          { return "draw_card" }
func (CallLastCard) Type() string      { return "call_last_card" }
func (ChallengeLastCard) Type() string { return "challenge_last_card" }
func (LeaveMatch) Type() string        { return "leave_match" }
func (PlaceBet) Type() string          { return "place_bet" }

func (JoinMatch) isOperation()         {}
func (StartMatch) isOperation()        {}
func (PlayCard) isOperation()          {}
func (DrawCard) isOperation()          {}
func (CallLastCard) isOperation()      {}
func (ChallengeLastCard) isOperation() {}
func (LeaveMatch) isOperation()        {}
func (PlaceBet) isOperation()          {}

// Apply runs op for an authenticated caller. On error the match is unchanged; on success Ply
// counts one more accepted operation.
func (m *Match) Apply(caller *uuid.UUID, op Operation) error {
	if caller == nil {
		return ErrCallerRequired
	}
	if err := m.dispatch(*caller, op); err != nil {
		return err
	}
	m.Ply++
	return nil
}

func (m *Match) dispatch(caller uuid.UUID, op Operation) error {
	switch o := deref(op).(type) {
	case JoinMatch:
		return m.JoinMatch(caller, o.Nickname)
	case StartMatch:
		return m.StartMatch(caller)
	case PlayCard:
		return m.PlayCard(caller, o.CardIndex, o.ChosenSuit)
	case DrawCard:
		return m.DrawCard(caller)
	case CallLastCard:
		return m.CallLastCard(caller)
	case ChallengeLastCard:
		return m.ChallengeLastCard(o.PlayerIndex)
	case LeaveMatch:
		return m.LeaveMatch(caller)
	case PlaceBet:
		return ErrBettingNotImplemented
	default:
		return ErrUnknownOperation
	}
}

// deref unwraps pointer forms such as &StartMatch{}. A nil pointer yields nil.
func deref(op Operation) Operation {
	switch o := op.(type) {
	case *JoinMatch:
		if o != nil {
			return *o
		}
	case *StartMatch:
		if o != nil {
			return *o
		}
	case *PlayCard:
		if o != nil {
			return *o
		}
	case *DrawCard:
		if o != nil {
			return *o
		}
	case *CallLastCard:
		if o != nil {
			return *o
		}
	case *ChallengeLastCard:
		if o != nil {
			return *o
		}
	case *LeaveMatch:
		if o != nil {
			return *o
		}
	case *PlaceBet:
		if o != nil {
			return *o
		}
	default:
		return op
	}
	return nil
}

// envelope is the JSON form of an operation: {"type": "...", ...fields}.
type envelope struct {
	Type string `json:"type"`
}

// DecodeOperation parses an operation envelope.
func DecodeOperation(data []byte) (Operation, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode operation: %w", err)
	}
	var op Operation
	var err error
	switch env.Type {
	case "join_match":
		var o JoinMatch
		err = json.Unmarshal(data, &o)
		op = o
	case "start_match":
		op = StartMatch{}
	case "play_card":
		var o PlayCard
		err = json.Unmarshal(data, &o)
		op = o
	case "draw_card":
		op = DrawCard{}
	case "call_last_card":
		op = CallLastCard{}
	case "challenge_last_card":
		var o ChallengeLastCard
		err = json.Unmarshal(data, &o)
		op = o
	case "leave_match":
		op = LeaveMatch{}
	case "place_bet":
		var o PlaceBet
		err = json.Unmarshal(data, &o)
		op = o
	default:
		return nil, fmt.Errorf("decode operation: %w: %q", ErrUnknownOperation, env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return op, nil
}

// EncodeOperation is the inverse of DecodeOperation.
func EncodeOperation(op Operation) ([]byte, error) {
	fields, err := OperationPayload(op)
	if err != nil {
		return nil, err
	}
	fields["type"] = op.Type()
	return json.Marshal(fields)
}

// OperationPayload returns the operation's fields as a map, without the type key.
func OperationPayload(op Operation) (map[string]interface{}, error) {
	raw, err := json.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", op.Type(), err)
	}
	fields := map[string]interface{}{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("encode %s: %w", op.Type(), err)
	}
	return fields, nil
}
