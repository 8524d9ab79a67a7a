package price

import (
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
)

// Range adjustment bounds. A book shifts its whole exponent window by adj.
const (
	MinRangeAdjustment = -3
	MaxRangeAdjustment = 0
)

var plainNumber = regexp.MustCompile(`^[0-9]*\.?[0-9]*$`)

// Codec converts between text, triple and packed forms for one book's
// exponent window. The zero value is the unadjusted codec.
type Codec struct {
	adj int
}

// Default is the codec with no range adjustment.
var Default = Codec{}

// NewCodec validates adj before use.
func NewCodec(adj int) (Codec, error) {
	if adj < MinRangeAdjustment || adj > MaxRangeAdjustment {
		return Codec{}, errors.Newf("price range adjustment %d outside [%d,%d]", adj, MinRangeAdjustment, MaxRangeAdjustment)
	}
	return Codec{adj: adj}, nil
}

func (c Codec) RangeAdjustment() int { return c.adj }
func (c Codec) MinExponent() int     { return MinExponent + c.adj }
func (c Codec) MaxExponent() int     { return MaxExponent + c.adj }

// MinValue is 0.1 × 10^minExponent, the smallest representable magnitude.
func (c Codec) MinValue() decimal.Decimal {
	return decimal.New(1, int32(c.MinExponent()-1))
}

// MaxValue is 0.999 × 10^maxExponent, the largest representable magnitude.
func (c Codec) MaxValue() decimal.Decimal {
	return decimal.New(MaxMantissa, int32(c.MaxExponent()-3))
}

// Value returns the unsigned magnitude of p.
func (p Price) Value() decimal.Decimal {
	return decimal.New(int64(p.Mantissa), int32(p.Exponent-3))
}

// ParsePricePart parses the number part of a human price such as "12.3".
// Excess precision is rounded in favour of the order placer (down for a Buy,
// up for a Sell) and reported as a *ParseError whose Suggestion is the
// rounded value.
func (c Codec) ParsePricePart(dir Direction, text string) (Price, error) {
	if dir != Buy && dir != Sell {
		return InvalidPrice, &ParseError{Msg: MsgUnknown}
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return InvalidPrice, &ParseError{Msg: MsgBlank}
	}
	if !plainNumber.MatchString(trimmed) {
		return InvalidPrice, &ParseError{Msg: MsgNotANumber}
	}
	number, err := decimal.NewFromString(trimmed)
	if err != nil {
		return InvalidPrice, &ParseError{Msg: MsgNotANumber}
	}

	minValue, maxValue := c.MinValue(), c.MaxValue()
	if number.LessThan(minValue) {
		return InvalidPrice, &ParseError{Msg: MsgTooSmall, Suggestion: minValue.String()}
	}
	if number.GreaterThan(maxValue) {
		return InvalidPrice, &ParseError{Msg: MsgTooLarge, Suggestion: maxValue.String()}
	}

	for exp := c.MaxExponent(); exp >= c.MinExponent(); exp-- {
		if number.LessThan(decimal.New(1, int32(exp-1))) {
			continue
		}
		mantissa := number.Shift(int32(3 - exp))
		if !mantissa.IsInteger() {
			var rounded decimal.Decimal
			if dir == Buy {
				rounded = mantissa.Truncate(0)
			} else {
				rounded = mantissa.Ceil()
			}
			return InvalidPrice, &ParseError{
				Msg:        MsgTooManyFigures,
				Suggestion: rounded.Shift(int32(exp - 3)).String(),
			}
		}
		m := mantissa.IntPart()
		if m < MinMantissa || m > MaxMantissa {
			return InvalidPrice, &ParseError{Msg: MsgUnknown}
		}
		return Price{Direction: dir, Mantissa: int(m), Exponent: exp}, nil
	}
	return InvalidPrice, &ParseError{Msg: MsgUnknown}
}

// SplitPrice parses "Buy @ X" or "Sell @ X". Any failure yields InvalidPrice.
func (c Codec) SplitPrice(text string) Price {
	var dir Direction
	var part string
	switch {
	case strings.HasPrefix(text, buyPrefix):
		dir, part = Buy, text[len(buyPrefix):]
	case strings.HasPrefix(text, sellPrefix):
		dir, part = Sell, text[len(sellPrefix):]
	default:
		return InvalidPrice
	}
	p, err := c.ParsePricePart(dir, part)
	if err != nil {
		return InvalidPrice
	}
	return p
}

// InRange reports whether mantissa and exponent fit this codec's window.
func (c Codec) InRange(mantissa, exponent int) bool {
	return mantissa >= MinMantissa && mantissa <= MaxMantissa &&
		exponent >= c.MinExponent() && exponent <= c.MaxExponent()
}

// MakePrice formats a triple, e.g. (Buy, 124, 1) -> "Buy @ 1.24".
func (c Codec) MakePrice(dir Direction, mantissa, exponent int) string {
	if !c.InRange(mantissa, exponent) {
		return InvalidText
	}
	return format(dir, mantissa, exponent)
}

func format(dir Direction, mantissa, exponent int) string {
	var prefix string
	switch dir {
	case Buy:
		prefix = buyPrefix
	case Sell:
		prefix = sellPrefix
	default:
		return InvalidText
	}
	places := 3 - exponent
	if places < 0 {
		places = 0
	}
	return prefix + decimal.New(int64(mantissa), int32(exponent-3)).StringFixed(int32(places))
}

// Format is MakePrice for a triple.
func (c Codec) Format(p Price) string {
	return c.MakePrice(p.Direction, p.Mantissa, p.Exponent)
}

// Normalize re-renders text in canonical form, or InvalidText.
func (c Codec) Normalize(text string) string {
	return c.Format(c.SplitPrice(text))
}

// String formats p without checking it against any exponent window.
func (p Price) String() string {
	if p.Mantissa < MinMantissa || p.Mantissa > MaxMantissa {
		return InvalidText
	}
	return format(p.Direction, p.Mantissa, p.Exponent)
}
