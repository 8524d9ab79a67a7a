package price

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Direction is the side a price belongs to.
type Direction uint8

const (
	Invalid Direction = iota
	Buy
	Sell
)

var directionNames = [...]string{"Invalid", "Buy", "Sell"}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

// Opposite returns the matching side (Invalid stays Invalid).
func (d Direction) Opposite() Direction {
	switch d {
	case Buy:
		return Sell
	case Sell:
		return Buy
	default:
		return Invalid
	}
}

// ParseDirection maps "Buy"/"Sell" (case-insensitive) to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	}
	return Invalid, errors.Newf("unknown direction %q", s)
}

// DecodeDirection maps a numeric tag to a Direction, failing on out-of-range tags.
func DecodeDirection(tag uint8) (Direction, error) {
	if int(tag) >= len(directionNames) {
		return Invalid, errors.Newf("unknown direction tag %d", tag)
	}
	return Direction(tag), nil
}

// Mantissa bounds: exactly three significant digits.
const (
	MinMantissa = 100
	MaxMantissa = 999
)

// Exponent bounds before range adjustment.
const (
	MinExponent = -5
	MaxExponent = 6
)

// Price is a decomposed sided price: Direction @ Mantissa × 10^(Exponent-3).
type Price struct {
	Direction Direction
	Mantissa  int
	Exponent  int
}

// InvalidPrice is the sentinel triple returned on any parse failure.
var InvalidPrice = Price{Direction: Invalid}

func (p Price) IsValid() bool { return p.Direction == Buy || p.Direction == Sell }

// Opposite keeps mantissa and exponent and flips the side.
func (p Price) Opposite() Price {
	if !p.IsValid() {
		return InvalidPrice
	}
	return Price{Direction: p.Direction.Opposite(), Mantissa: p.Mantissa, Exponent: p.Exponent}
}

// ParseError is an input rejection carrying an optional replacement value.
type ParseError struct {
	Msg        string
	Suggestion string
}

func (e *ParseError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("price %s (try %s)", e.Msg, e.Suggestion)
	}
	return "price " + e.Msg
}

const (
	MsgBlank          = "is blank"
	MsgNotANumber     = "does not look like a regular number"
	MsgTooSmall       = "is too small"
	MsgTooLarge       = "is too large"
	MsgTooManyFigures = "has too many significant figures"
	MsgUnknown        = "has an unknown problem"
)

const (
	buyPrefix  = "Buy @ "
	sellPrefix = "Sell @ "

	// InvalidText is what MakePrice returns for an unrepresentable triple.
	InvalidText = "Invalid"
)
