// internal/game/errors.go
package game

import "fmt"

// ErrorCode identifies why an operation was rejected. Codes are stable and sent to clients.
type ErrorCode string

const (
	CodeMatchAlreadyStarted   ErrorCode = "match_already_started"
	CodeMatchNotInProgress    ErrorCode = "match_not_in_progress"
	CodeMatchFull             ErrorCode = "match_full"
	CodePlayerAlreadyJoined   ErrorCode = "player_already_joined"
	CodeOnlyHostCanStart      ErrorCode = "only_host_can_start"
	CodeNotEnoughPlayers      ErrorCode = "not_enough_players"
	CodeNotYourTurn           ErrorCode = "not_your_turn"
	CodeInvalidCardIndex      ErrorCode = "invalid_card_index"
	CodeInvalidCardPlay       ErrorCode = "invalid_card_play"
	CodeInvalidPlayerIndex    ErrorCode = "invalid_player_index"
	CodeNoCardInDiscardPile   ErrorCode = "no_card_in_discard_pile"
	CodeCallerRequired        ErrorCode = "caller_required"
	CodeBettingNotImplemented ErrorCode = "betting_not_implemented"

	CodeNotInMatch       ErrorCode = "not_in_match"
	CodeNotOnLastCard    ErrorCode = "not_on_last_card"
	CodeSuitRequired     ErrorCode = "suit_required"
	CodePlayableCardHeld ErrorCode = "playable_card_held"
	CodeUnknownOperation ErrorCode = "unknown_operation"
)

// Error is returned by every rejected operation. The match is left untouched.
// Value carries the capacity, minimum or index for the codes that have one.
type Error struct {
	Code  ErrorCode
	Value int
}

func (e *Error) Error() string {
	switch e.Code {
	case CodeMatchFull:
		return fmt.Sprintf("match is full (capacity %d)", e.Value)
	case CodeNotEnoughPlayers:
		return fmt.Sprintf("not enough players (minimum %d)", e.Value)
	case CodeInvalidCardIndex:
		return fmt.Sprintf("invalid card index %d", e.Value)
	case CodeInvalidPlayerIndex:
		return fmt.Sprintf("invalid player index %d", e.Value)
	}
	return string(e.Code)
}

// Is matches on Code only, so errors.Is(err, ErrMatchFull) holds for any capacity.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrMatchAlreadyStarted   = &Error{Code: CodeMatchAlreadyStarted}
	ErrMatchNotInProgress    = &Error{Code: CodeMatchNotInProgress}
	ErrMatchFull             = &Error{Code: CodeMatchFull}
	ErrPlayerAlreadyJoined   = &Error{Code: CodePlayerAlreadyJoined}
	ErrOnlyHostCanStart      = &Error{Code: CodeOnlyHostCanStart}
	ErrNotEnoughPlayers      = &Error{Code: CodeNotEnoughPlayers}
	ErrNotYourTurn           = &Error{Code: CodeNotYourTurn}
	ErrInvalidCardIndex      = &Error{Code: CodeInvalidCardIndex}
	ErrInvalidCardPlay       = &Error{Code: CodeInvalidCardPlay}
	ErrInvalidPlayerIndex    = &Error{Code: CodeInvalidPlayerIndex}
	ErrNoCardInDiscardPile   = &Error{Code: CodeNoCardInDiscardPile}
	ErrCallerRequired        = &Error{Code: CodeCallerRequired}
	ErrBettingNotImplemented = &Error{Code: CodeBettingNotImplemented}
	ErrNotInMatch            = &Error{Code: CodeNotInMatch}
	ErrNotOnLastCard         = &Error{Code: CodeNotOnLastCard}
	ErrSuitRequired          = &Error{Code: CodeSuitRequired}
	ErrPlayableCardHeld      = &Error{Code: CodePlayableCardHeld}
	ErrUnknownOperation      = &Error{Code: CodeUnknownOperation}
)

func errMatchFull(capacity int) error   { return &Error{Code: CodeMatchFull, Value: capacity} }
func errNotEnoughPlayers(min int) error { return &Error{Code: CodeNotEnoughPlayers, Value: min} }
func errInvalidCardIndex(i int) error   { return &Error{Code: CodeInvalidCardIndex, Value: i} }
func errInvalidPlayerIndex(i int) error { return &Error{Code: CodeInvalidPlayerIndex, Value: i} }
