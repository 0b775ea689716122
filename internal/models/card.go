// internal/models/card.go
package models

import (
	"fmt"
	"strings"
)

// Suit is one of the five Linot shapes.
type Suit uint8

const (
	SuitCircle Suit = iota
	SuitCross
	SuitTriangle
	SuitSquare
	SuitStar
)

// Suits lists every suit in deck construction order.
var Suits = []Suit{SuitCircle, SuitCross, SuitTriangle, SuitSquare, SuitStar}

var suitNames = [...]string{"circle", "cross", "triangle", "square", "star"}

func (s Suit) String() string {
	if int(s) < len(suitNames) {
		return suitNames[s]
	}
	return fmt.Sprintf("suit(%d)", uint8(s))
}

// Valid reports whether s is one of the five known suits.
func (s Suit) Valid() bool {
	return int(s) < len(suitNames)
}

func (s Suit) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid suit %d", uint8(s))
	}
	return []byte(suitNames[s]), nil
}

func (s *Suit) UnmarshalText(text []byte) error {
	parsed, err := ParseSuit(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSuit converts a suit name (case-insensitive) into a Suit.
func ParseSuit(name string) (Suit, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range suitNames {
		if n == name {
			return Suit(i), nil
		}
	}
	return 0, fmt.Errorf("unknown suit %q", name)
}

// Value is a card face: one of the fourteen numbered ranks or a special kind.
type Value uint8

const (
	ValueOne Value = iota + 1
	ValueTwo
	ValueThree
	ValueFour
	ValueFive
	ValueSix
	ValueSeven
	ValueEight
	ValueNine
	ValueTen
	ValueEleven
	ValueTwelve
	ValueThirteen
	ValueFourteen

	ValueWild
	ValueDrawTwo
	ValueDrawThree
	ValueSkipAll // general market: everyone else draws one
	ValueSkipOne // suspension: the next player loses their turn
	ValueHoldOn
)

// NumberedRanks is the count of plain numbered ranks per suit.
const NumberedRanks = 14

var valueNames = map[Value]string{
	ValueWild:      "wild",
	ValueDrawTwo:   "draw_two",
	ValueDrawThree: "draw_three",
	ValueSkipAll:   "skip_all",
	ValueSkipOne:   "skip_one",
	ValueHoldOn:    "hold_on",
}

// Numbered reports whether v is one of the fourteen plain ranks.
func (v Value) Numbered() bool {
	return v >= ValueOne && v <= ValueFourteen
}

// Penalty reports whether v forces the next player to draw.
func (v Value) Penalty() bool {
	return v == ValueDrawTwo || v == ValueDrawThree
}

// Valid reports whether v is a known value.
func (v Value) Valid() bool {
	return v.Numbered() || (v >= ValueWild && v <= ValueHoldOn)
}

func (v Value) String() string {
	if v.Numbered() {
		return fmt.Sprintf("%d", uint8(v))
	}
	if name, ok := valueNames[v]; ok {
		return name
	}
	return fmt.Sprintf("value(%d)", uint8(v))
}

func (v Value) MarshalText() ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("invalid card value %d", uint8(v))
	}
	return []byte(v.String()), nil
}

func (v *Value) UnmarshalText(text []byte) error {
	parsed, err := ParseValue(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseValue accepts "1".."14" or a special kind name.
func ParseValue(s string) (Value, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for v := ValueOne; v <= ValueFourteen; v++ {
		if v.String() == s {
			return v, nil
		}
	}
	for v, name := range valueNames {
		if name == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown card value %q", s)
}

// Card is a plain value; physically identical cards compare equal.
type Card struct {
	Suit  Suit  `json:"suit"`
	Value Value `json:"value"`
}

func (c Card) String() string {
	return fmt.Sprintf("%s %s", c.Value, c.Suit)
}

// IsWild reports whether c is a Wild card.
func (c Card) IsWild() bool {
	return c.Value == ValueWild
}
