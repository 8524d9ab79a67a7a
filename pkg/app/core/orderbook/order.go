package orderbook

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/refdex/pkg/app/core/price"
)

// Order is the engine's record of one order
// Created on admission and never deleted; Rejected and Done orders stay
// queryable by ID but are no longer mutated
type Order struct {
	ID     string // caller-supplied, unique for the engine's lifetime
	Client common.Address

	// Price is the normalized text form ("Buy @ 1.24"), or "Invalid"
	Price       string
	PricePacked price.Packed

	SizeBase  decimal.Decimal
	SizeQuote decimal.Decimal // zero until admission computes it
	Terms     Terms

	Status     Status
	ReasonCode ReasonCode

	ExecutedBase    decimal.Decimal
	ExecutedQuote   decimal.Decimal
	FeesBaseOrQuote decimal.Decimal
	FeesRwrd        decimal.Decimal
}

// RemainingBase is SizeBase - ExecutedBase
func (o *Order) RemainingBase() decimal.Decimal {
	return o.SizeBase.Sub(o.ExecutedBase)
}

func (o *Order) IsBuy() bool { return o.PricePacked.IsBuy() }

// Clone returns a detached copy for callers outside the engine
func (o *Order) Clone() *Order {
	cp := *o
	return &cp
}
