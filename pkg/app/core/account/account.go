package account

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/refdex/pkg/app/core/amount"
)

// Field identifies one balance column tracked per client
// The first three are funds the exchange holds for the client, the rest
// model the token side of the approve/transferFrom flow
type Field uint8

const (
	Base         Field = iota // Base held by the exchange
	Quote                     // Quote held by the exchange
	Rwrd                      // Reward token held by the exchange
	ApprovedBase              // Base the client has approved the exchange to pull
	ApprovedRwrd              // Reward the client has approved the exchange to pull
	OwnBase                   // Base in the client's own address
	OwnQuote                  // Quote in the client's own address
	OwnRwrd                   // Reward in the client's own address

	numFields
)

var fieldNames = [numFields]string{
	"Base", "Quote", "Rwrd", "ApprovedBase", "ApprovedRwrd", "OwnBase", "OwnQuote", "OwnRwrd",
}

func (f Field) String() string {
	if f < numFields {
		return fieldNames[f]
	}
	return fmt.Sprintf("Field(%d)", uint8(f))
}

// Balances is the per-client view returned by the ledger
// The first seven fields follow the contract's getClientBalances tuple order;
// OwnQuote has its own getter there and is carried alongside here
type Balances struct {
	Client common.Address

	Base         decimal.Decimal
	Quote        decimal.Decimal
	Rwrd         decimal.Decimal
	ApprovedBase decimal.Decimal
	ApprovedRwrd decimal.Decimal
	OwnBase      decimal.Decimal
	OwnRwrd      decimal.Decimal

	OwnQuote decimal.Decimal
}

// Tuple returns the seven getClientBalances values in order
func (b Balances) Tuple() [7]decimal.Decimal {
	return [7]decimal.Decimal{b.Base, b.Quote, b.Rwrd, b.ApprovedBase, b.ApprovedRwrd, b.OwnBase, b.OwnRwrd}
}

// Get returns the value of a single field
func (b Balances) Get(f Field) decimal.Decimal {
	switch f {
	case Base:
		return b.Base
	case Quote:
		return b.Quote
	case Rwrd:
		return b.Rwrd
	case ApprovedBase:
		return b.ApprovedBase
	case ApprovedRwrd:
		return b.ApprovedRwrd
	case OwnBase:
		return b.OwnBase
	case OwnQuote:
		return b.OwnQuote
	case OwnRwrd:
		return b.OwnRwrd
	}
	return decimal.Zero
}

// Decoded converts raw balances into human amounts
// Base fields use baseDecimals, quote and reward use their fixed precisions
func (b Balances) Decoded(baseDecimals int32) Balances {
	return Balances{
		Client:       b.Client,
		Base:         amount.DecodeBase(b.Base, baseDecimals),
		Quote:        amount.DecodeQuote(b.Quote),
		Rwrd:         amount.DecodeRwrd(b.Rwrd),
		ApprovedBase: amount.DecodeBase(b.ApprovedBase, baseDecimals),
		ApprovedRwrd: amount.DecodeRwrd(b.ApprovedRwrd),
		OwnBase:      amount.DecodeBase(b.OwnBase, baseDecimals),
		OwnRwrd:      amount.DecodeRwrd(b.OwnRwrd),
		OwnQuote:     amount.DecodeQuote(b.OwnQuote),
	}
}
