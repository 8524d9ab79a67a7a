package price

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDirectionCodes(t *testing.T) {
	d, err := ParseDirection("Sell")
	require.NoError(t, err)
	assert.Equal(t, Sell, d)
	_, err = ParseDirection("Short")
	require.Error(t, err)
	assert.NotNil(t, errors.GetReportableStackTrace(err))

	d, err = DecodeDirection(uint8(Buy))
	require.NoError(t, err)
	assert.Equal(t, Buy, d)
	_, err = DecodeDirection(7)
	assert.Error(t, err)

	_, err = NewCodec(1)
	assert.Error(t, err)
}

func mustCodec(t *testing.T, adj int) Codec {
	t.Helper()
	c, err := NewCodec(adj)
	require.NoError(t, err)
	return c
}

func TestDecodeText_KnownPrices(t *testing.T) {
	tests := []struct {
		packed Packed
		want   string
	}{
		{1, "Buy @ 999000"},
		{5376, "Buy @ 1.24"},
		{5400, "Buy @ 1.00"},
		{10800, "Buy @ 0.00000100"},
		{10801, "Sell @ 0.00000100"},
		{16201, "Sell @ 1.00"},
		{21600, "Sell @ 999000"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Default.DecodeText(tt.packed))
			assert.Equal(t, tt.packed, Default.EncodeText(tt.want))
		})
	}
}

func TestDecode_MidBookBuy(t *testing.T) {
	assert.Equal(t, Price{Direction: Buy, Mantissa: 100, Exponent: 1}, Default.Decode(5400))
}

func TestDecode_Invalid(t *testing.T) {
	assert.Equal(t, InvalidPrice, Default.Decode(InvalidPacked))
	assert.Equal(t, InvalidPrice, Default.Decode(MaxSellPacked+1))
	assert.Equal(t, InvalidText, Default.DecodeText(0))
	assert.Equal(t, InvalidPacked, Default.Encode(InvalidPrice))
	assert.Equal(t, InvalidPacked, Default.Encode(Price{Direction: Buy, Mantissa: 99, Exponent: 1}))
	assert.Equal(t, InvalidPacked, Default.Encode(Price{Direction: Sell, Mantissa: 100, Exponent: 7}))
}

func TestParsePricePart_Good(t *testing.T) {
	tests := []struct {
		text     string
		adj      int
		mantissa int
		exponent int
	}{
		{"1", 0, 100, 1},
		{"12.3", 0, 123, 2},
		{"0012.3", 0, 123, 2},
		{"1.23", 0, 123, 1},
		{"  1.23 ", 0, 123, 1},
		{"0.123", 0, 123, 0},
		{".123", 0, 123, 0},
		{".1230", 0, 123, 0},
		{"9990", 0, 999, 4},
		{"9990.00", 0, 999, 4},
		{"999000", 0, 999, 6},
		{"0.000001", 0, 100, -5},
		{"0.00000100", 0, 100, -5},
		{"0.0000010000", 0, 100, -5},
		{"12.3", -3, 123, 2},
		{"0.00000000100", -3, 100, -8},
	}
	for _, tt := range tests {
		c := mustCodec(t, tt.adj)
		for _, dir := range []Direction{Buy, Sell} {
			t.Run(dir.String()+" "+tt.text, func(t *testing.T) {
				p, err := c.ParsePricePart(dir, tt.text)
				require.NoError(t, err)
				assert.Equal(t, Price{Direction: dir, Mantissa: tt.mantissa, Exponent: tt.exponent}, p)
			})
		}
	}
}

func TestParsePricePart_Bad(t *testing.T) {
	tests := []struct {
		dir        Direction
		text       string
		adj        int
		msg        string
		suggestion string
	}{
		{Buy, "", 0, MsgBlank, ""},
		{Sell, "   ", 0, MsgBlank, ""},
		{Buy, "wibble", 0, MsgNotANumber, ""},
		{Buy, "-2", 0, MsgNotANumber, ""},
		{Buy, ".", 0, MsgNotANumber, ""},
		{Buy, "1e5", 0, MsgNotANumber, ""},
		{Buy, "0.0", 0, MsgTooSmall, "0.000001"},
		{Buy, "0.000000999", 0, MsgTooSmall, "0.000001"},
		{Sell, "0.00000001", 0, MsgTooSmall, "0.000001"},
		{Buy, "999001", 0, MsgTooLarge, "999000"},
		{Sell, "100000000", 0, MsgTooLarge, "999000"},
		{Buy, "1.234", 0, MsgTooManyFigures, "1.23"},
		{Sell, "1.234", 0, MsgTooManyFigures, "1.24"},
		{Buy, "98760.00", 0, MsgTooManyFigures, "98700"},
		{Sell, "98760.00", 0, MsgTooManyFigures, "98800"},
		{Sell, "98700.01", 0, MsgTooManyFigures, "98800"},
		{Buy, "0.000001234", 0, MsgTooManyFigures, "0.00000123"},
		{Buy, "0.00000000099", -3, MsgTooSmall, "0.000000001"},
		{Buy, "1000", -3, MsgTooLarge, "999"},
		{Invalid, "1", 0, MsgUnknown, ""},
	}
	for _, tt := range tests {
		t.Run(tt.dir.String()+" "+tt.text, func(t *testing.T) {
			c := mustCodec(t, tt.adj)
			p, err := c.ParsePricePart(tt.dir, tt.text)
			require.Error(t, err)
			assert.Equal(t, InvalidPrice, p)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.msg, perr.Msg)
			assert.Equal(t, tt.suggestion, perr.Suggestion)
		})
	}
}

func TestSplitPrice(t *testing.T) {
	assert.Equal(t, Price{Direction: Buy, Mantissa: 123, Exponent: 2}, Default.SplitPrice("Buy @ 12.3"))
	assert.Equal(t, Price{Direction: Sell, Mantissa: 100, Exponent: 1}, Default.SplitPrice("Sell @ 1"))
	assert.Equal(t, InvalidPrice, Default.SplitPrice("Buy 12.3"))
	assert.Equal(t, InvalidPrice, Default.SplitPrice("Sell @ 1.234"))
	assert.Equal(t, InvalidPrice, Default.SplitPrice(""))
	assert.Equal(t, InvalidPrice, Default.SplitPrice("buy @ 1"))
}

func TestMakePrice(t *testing.T) {
	assert.Equal(t, "Buy @ 12.3", Default.MakePrice(Buy, 123, 2))
	assert.Equal(t, "Sell @ 0.123", Default.MakePrice(Sell, 123, 0))
	assert.Equal(t, "Sell @ 99900", Default.MakePrice(Sell, 999, 5))
	assert.Equal(t, InvalidText, Default.MakePrice(Invalid, 123, 2))
	assert.Equal(t, InvalidText, Default.MakePrice(Buy, 1000, 2))
	assert.Equal(t, InvalidText, Default.MakePrice(Buy, 123, -6))
	assert.Equal(t, "Buy @ 0.00000000100", mustCodec(t, -3).MakePrice(Buy, 100, -8))
	assert.Equal(t, "Buy @ 1.00", Default.Normalize("Buy @ 1"))
}

func TestNewCodec_RejectsOutOfRange(t *testing.T) {
	_, err := NewCodec(1)
	assert.Error(t, err)
	_, err = NewCodec(-4)
	assert.Error(t, err)
}

func TestPacked_OppositeAndBoundaries(t *testing.T) {
	assert.Equal(t, Packed(16201), Packed(5400).Opposite())
	assert.Equal(t, Packed(5400), Packed(16201).Opposite())
	assert.Equal(t, MaxSellPacked, MaxBuyPacked.Opposite())
	assert.Equal(t, MinSellPacked, MinBuyPacked.Opposite())
	assert.Equal(t, InvalidPacked, InvalidPacked.Opposite())

	assert.Equal(t, MinBuyPacked, Packed(5400).Worst())
	assert.Equal(t, MaxSellPacked, Packed(16201).Worst())
	assert.Equal(t, MaxBuyPacked, Packed(5400).Best())
	assert.Equal(t, MinSellPacked, Packed(16201).Best())
}

func genCodec(t *rapid.T) Codec {
	return Codec{adj: rapid.IntRange(MinRangeAdjustment, MaxRangeAdjustment).Draw(t, "adj")}
}

func genPrice(t *rapid.T, c Codec) Price {
	return Price{
		Direction: rapid.SampledFrom([]Direction{Buy, Sell}).Draw(t, "dir"),
		Mantissa:  rapid.IntRange(MinMantissa, MaxMantissa).Draw(t, "mantissa"),
		Exponent:  rapid.IntRange(c.MinExponent(), c.MaxExponent()).Draw(t, "exponent"),
	}
}

func TestProperty_PackedRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := genCodec(t)
		p := genPrice(t, c)
		packed := c.Encode(p)
		if !packed.IsValid() {
			t.Fatalf("encode(%v) gave invalid packed", p)
		}
		if got := c.Decode(packed); got != p {
			t.Fatalf("decode(encode(%v)) = %v", p, got)
		}
		if got := c.Decode(packed.Opposite()); got != p.Opposite() {
			t.Fatalf("opposite of %v decoded as %v", p, got)
		}
	})
}

func TestProperty_TextRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := genCodec(t)
		packed := Packed(rapid.IntRange(int(MaxBuyPacked), int(MaxSellPacked)).Draw(t, "packed"))
		p := c.Decode(packed)
		if got := c.SplitPrice(c.Format(p)); got != p {
			t.Fatalf("split(make(%v)) = %v", p, got)
		}
	})
}

func TestProperty_PackedOrderMatchesPriority(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := Packed(rapid.IntRange(int(MaxBuyPacked), int(MaxSellPacked)).Draw(t, "a"))
		b := Packed(rapid.IntRange(int(MaxBuyPacked), int(MaxSellPacked)).Draw(t, "b"))
		if a.Direction() != b.Direction() || a >= b {
			return
		}
		av, bv := Default.Decode(a).Value(), Default.Decode(b).Value()
		if a.IsBuy() && !av.GreaterThan(bv) {
			t.Fatalf("buy %d should outrank %d", a, b)
		}
		if a.IsSell() && !av.LessThan(bv) {
			t.Fatalf("sell %d should outrank %d", a, b)
		}
	})
}

func TestProperty_RoundingFavoursPlacer(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		digits := rapid.Int64Range(1000, 9999999).Draw(t, "digits")
		scale := rapid.Int32Range(-8, 0).Draw(t, "scale")
		number := decimal.New(digits, scale)
		dir := rapid.SampledFrom([]Direction{Buy, Sell}).Draw(t, "dir")

		_, err := Default.ParsePricePart(dir, number.String())
		var perr *ParseError
		if err == nil || !errors.As(err, &perr) || perr.Msg != MsgTooManyFigures {
			return
		}
		suggested, serr := decimal.NewFromString(perr.Suggestion)
		if serr != nil {
			t.Fatalf("bad suggestion %q: %v", perr.Suggestion, serr)
		}
		if dir == Buy && suggested.GreaterThan(number) {
			t.Fatalf("buy %s suggested %s", number, suggested)
		}
		if dir == Sell && suggested.LessThan(number) {
			t.Fatalf("sell %s suggested %s", number, suggested)
		}
	})
}
