package price

// Packed is the wire form of a sided price. Lower packed values are better
// prices on both sides, so the buy range is encoded descending.
//
//	0              invalid
//	1..10800       Buy, 1 = highest price
//	10801..21600   Sell, 10801 = lowest price
type Packed uint16

const (
	InvalidPacked Packed = 0
	MaxBuyPacked  Packed = 1
	MinBuyPacked  Packed = 10800
	MinSellPacked Packed = 10801
	MaxSellPacked Packed = 21600

	// PackedLimit sizes arrays and bitmaps indexed by Packed.
	PackedLimit = int(MaxSellPacked) + 1

	mantissaSpan = MaxMantissa - MinMantissa + 1
)

func (p Packed) IsValid() bool { return p >= MaxBuyPacked && p <= MaxSellPacked }
func (p Packed) IsBuy() bool   { return p >= MaxBuyPacked && p <= MinBuyPacked }
func (p Packed) IsSell() bool  { return p >= MinSellPacked && p <= MaxSellPacked }

func (p Packed) Direction() Direction {
	switch {
	case p.IsBuy():
		return Buy
	case p.IsSell():
		return Sell
	}
	return Invalid
}

// Opposite reflects p onto the other side at the same magnitude.
func (p Packed) Opposite() Packed {
	switch {
	case p.IsBuy():
		return MaxSellPacked - (p - MaxBuyPacked)
	case p.IsSell():
		return MaxBuyPacked + (MaxSellPacked - p)
	}
	return InvalidPacked
}

// Worst is the far boundary of p's side: the lowest buy or the highest sell.
func (p Packed) Worst() Packed {
	switch {
	case p.IsBuy():
		return MinBuyPacked
	case p.IsSell():
		return MaxSellPacked
	}
	return InvalidPacked
}

// Best is the near boundary of p's side: the highest buy or the lowest sell.
func (p Packed) Best() Packed {
	switch {
	case p.IsBuy():
		return MaxBuyPacked
	case p.IsSell():
		return MinSellPacked
	}
	return InvalidPacked
}

// Encode packs p, returning InvalidPacked when p is outside the window.
func (c Codec) Encode(p Price) Packed {
	if !p.IsValid() || !c.InRange(p.Mantissa, p.Exponent) {
		return InvalidPacked
	}
	index := Packed((p.Exponent-c.MinExponent())*mantissaSpan + (p.Mantissa - MinMantissa))
	if p.Direction == Buy {
		return MinBuyPacked - index
	}
	return MinSellPacked + index
}

// Decode unpacks p, returning InvalidPrice for the sentinel or out-of-range values.
func (c Codec) Decode(p Packed) Price {
	var dir Direction
	var index int
	switch {
	case p.IsBuy():
		dir, index = Buy, int(MinBuyPacked-p)
	case p.IsSell():
		dir, index = Sell, int(p-MinSellPacked)
	default:
		return InvalidPrice
	}
	return Price{
		Direction: dir,
		Mantissa:  MinMantissa + index%mantissaSpan,
		Exponent:  c.MinExponent() + index/mantissaSpan,
	}
}

// EncodeText packs a "Buy @ X" / "Sell @ X" string.
func (c Codec) EncodeText(text string) Packed {
	return c.Encode(c.SplitPrice(text))
}

// DecodeText renders a packed price as text.
func (c Codec) DecodeText(p Packed) string {
	return c.Format(c.Decode(p))
}
