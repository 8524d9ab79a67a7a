package market

import (
	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/refdex/pkg/app/core/price"
)

// Market identifies one book (e.g. "WETH-DAI") and carries its Params
type Market struct {
	// Identity
	Symbol     string // "WETH-DAI"
	BaseAsset  string // "WETH"
	QuoteAsset string // "DAI"

	// BaseDecimals is the base token precision used for human amounts
	// Quote and reward precisions are fixed at 18
	BaseDecimals int32

	Params Params
}

// SizeCheck says which size band an order failed, if any
type SizeCheck int8

const (
	SizeOK SizeCheck = iota
	SizeBaseOutOfRange
	SizeQuoteOutOfRange
)

// NewMarket creates a market with validation
func NewMarket(symbol, baseAsset, quoteAsset string, baseDecimals int32, params Params) (*Market, error) {
	m := &Market{
		Symbol:       symbol,
		BaseAsset:    baseAsset,
		QuoteAsset:   quoteAsset,
		BaseDecimals: baseDecimals,
		Params:       params,
	}
	if err := m.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid market params")
	}
	return m, nil
}

// Validate checks market parameter sanity
func (m *Market) Validate() error {
	if m.Symbol == "" {
		return errors.New("symbol cannot be empty")
	}
	if m.BaseAsset == "" || m.QuoteAsset == "" {
		return errors.New("base and quote assets must be specified")
	}
	if m.BaseDecimals < 0 || m.BaseDecimals > 30 {
		return errors.Newf("base decimals %d out of range", m.BaseDecimals)
	}
	return m.Params.Validate()
}

// Validate checks the engine constants on their own
func (p Params) Validate() error {
	if !p.BaseMinInitialSize.IsPositive() {
		return errors.New("base min initial size must be positive")
	}
	if !p.BaseMinRemainingSize.IsPositive() {
		return errors.New("base min remaining size must be positive")
	}
	if p.BaseMinInitialSize.GreaterThanOrEqual(p.BaseMaxSize) {
		return errors.New("base min initial size must be below base max size")
	}
	if !p.QuoteMinInitialSize.IsPositive() {
		return errors.New("quote min initial size must be positive")
	}
	if p.QuoteMinInitialSize.GreaterThanOrEqual(p.QuoteMaxSize) {
		return errors.New("quote min initial size must be below quote max size")
	}
	if p.FeesPer10K < 0 || p.FeesPer10K > 10000 {
		return errors.Newf("fees per 10k %d out of range", p.FeesPer10K)
	}
	if p.EthRwrdRate < 0 {
		return errors.New("reward rate cannot be negative")
	}
	if _, err := price.NewCodec(p.PriceRangeAdjustment); err != nil {
		return err
	}
	return nil
}

// ValidateSize checks both size bands of a new order
// Base is checked first, matching the admission order
func (p Params) ValidateSize(sizeBase, sizeQuote decimal.Decimal) SizeCheck {
	if sizeBase.LessThan(p.BaseMinInitialSize) || sizeBase.GreaterThanOrEqual(p.BaseMaxSize) {
		return SizeBaseOutOfRange
	}
	if sizeQuote.LessThan(p.QuoteMinInitialSize) || sizeQuote.GreaterThanOrEqual(p.QuoteMaxSize) {
		return SizeQuoteOutOfRange
	}
	return SizeOK
}

// Codec returns the price codec for this market's exponent window
func (p Params) Codec() (price.Codec, error) {
	return price.NewCodec(p.PriceRangeAdjustment)
}
