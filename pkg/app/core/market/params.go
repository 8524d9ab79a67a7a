package market

import (
	"github.com/shopspring/decimal"
)

// Params are the per-book constants the matching engine enforces
// All sizes are raw integer amounts (wei-style), not human decimals
type Params struct {
	// Base size band for new orders: [BaseMinInitialSize, BaseMaxSize)
	BaseMinInitialSize decimal.Decimal
	BaseMaxSize        decimal.Decimal

	// BaseMinRemainingSize: below this an order counts as filled
	// A resting order under it is finished, a taker under it stops matching
	BaseMinRemainingSize decimal.Decimal

	// Quote size band for new orders: [QuoteMinInitialSize, QuoteMaxSize)
	QuoteMinInitialSize decimal.Decimal
	QuoteMaxSize        decimal.Decimal

	// Taker fee in basis points of the quote traded
	FeesPer10K int64

	// Reward tokens charged per unit of quote fee when paying in reward
	EthRwrdRate int64

	// Shifts the price exponent window, in [-3, 0]
	PriceRangeAdjustment int
}

// DefaultParams holds the reference contract's constants
var DefaultParams = Params{
	BaseMinInitialSize:   decimal.New(1, 17),
	BaseMinRemainingSize: decimal.New(1, 16),
	BaseMaxSize:          decimal.New(1, 32),
	QuoteMinInitialSize:  decimal.New(1, 16),
	QuoteMaxSize:         decimal.New(1, 32),
	FeesPer10K:           5,
	EthRwrdRate:          1000,
	PriceRangeAdjustment: 0,
}
