// Package amount converts between raw integer token amounts and human
// decimal amounts at a given precision.
package amount

import (
	"math"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
)

// Fixed precisions of the quote and reward assets.
const (
	QuoteDecimals = 18
	RwrdDecimals  = 18
)

// Limit is the exclusive upper bound for any encoded amount (10^30).
var Limit = decimal.New(1, 30)

// ValidationError is an input rejection for a human amount.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

const (
	MsgBlank         = "Amount is blank"
	MsgNotANumber    = "Amount does not look like a regular number"
	MsgTooManyPlaces = "Amount has too many decimal places"
	MsgNegative      = "Amount cannot be negative"
	MsgTooLarge      = "Amount is too large"
)

// Decode scales a raw amount down by 10^decimals.
func Decode(raw decimal.Decimal, decimals int32) decimal.Decimal {
	return raw.Shift(-decimals)
}

// Encode scales a human amount up by 10^decimals.
func Encode(human decimal.Decimal, decimals int32) decimal.Decimal {
	return human.Shift(decimals)
}

// DecodeString renders a raw integer string as a human amount.
func DecodeString(raw string, decimals int32) (string, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return "", errors.Wrapf(err, "decode raw amount %q", raw)
	}
	return Decode(d, decimals).String(), nil
}

// EncodeString parses a human amount and returns it raw. It does not
// validate; use Validate for untrusted input.
func EncodeString(human string, decimals int32) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(human))
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "encode amount %q", human)
	}
	return Encode(d, decimals), nil
}

// Validate checks a human amount and returns its raw encoding. Exponent
// forms are sized from the coefficient and exponent alone, so a short input
// such as "1e1000000000" is rejected without being expanded.
func Validate(human string, decimals int32) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(human)
	if trimmed == "" {
		return decimal.Zero, &ValidationError{Msg: MsgBlank}
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, &ValidationError{Msg: MsgNotANumber}
	}
	if Places(d) > decimals {
		return decimal.Zero, &ValidationError{Msg: MsgTooManyPlaces}
	}
	switch d.Sign() {
	case -1:
		return decimal.Zero, &ValidationError{Msg: MsgNegative}
	case 0:
		return decimal.Zero, nil
	}
	// raw is an integer here, so its digit count decides the 10^30 bound
	if rawDigits(d, decimals) > limitDigits {
		return decimal.Zero, &ValidationError{Msg: MsgTooLarge}
	}
	return Encode(d, decimals), nil
}

// limitDigits is the digit count of Limit minus one.
const limitDigits = 30

// Places counts significant fractional digits, ignoring trailing zeros.
func Places(d decimal.Decimal) int32 {
	exp := int64(d.Exponent())
	if exp >= 0 {
		return 0
	}
	coeff := coefficientDigits(d)
	zeros := int64(len(coeff) - len(strings.TrimRight(coeff, "0")))
	places := -exp - zeros
	switch {
	case places <= 0:
		return 0
	case places > math.MaxInt32:
		return math.MaxInt32
	}
	return int32(places)
}

// rawDigits is the number of integer digits of d scaled up by 10^decimals.
func rawDigits(d decimal.Decimal, decimals int32) int64 {
	return int64(len(coefficientDigits(d))) + int64(d.Exponent()) + int64(decimals)
}

func coefficientDigits(d decimal.Decimal) string {
	return strings.TrimPrefix(d.Coefficient().String(), "-")
}

func DecodeBase(raw decimal.Decimal, baseDecimals int32) decimal.Decimal {
	return Decode(raw, baseDecimals)
}

func EncodeBase(human decimal.Decimal, baseDecimals int32) decimal.Decimal {
	return Encode(human, baseDecimals)
}

func DecodeQuote(raw decimal.Decimal) decimal.Decimal { return Decode(raw, QuoteDecimals) }
func EncodeQuote(human decimal.Decimal) decimal.Decimal { return Encode(human, QuoteDecimals) }
func DecodeRwrd(raw decimal.Decimal) decimal.Decimal { return Decode(raw, RwrdDecimals) }
func EncodeRwrd(human decimal.Decimal) decimal.Decimal { return Encode(human, RwrdDecimals) }
