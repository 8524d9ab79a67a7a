package account

import (
	"bytes"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	// ErrNegativeBalance is returned when a mutation would drive any field below zero
	ErrNegativeBalance = errors.New("balances should never go negative")
	// ErrInvalidAmount is returned for negative amounts passed to ledger operations
	ErrInvalidAmount = errors.New("amount must not be negative")
	// ErrInsufficientFunds is returned when a transfer exceeds the source balance
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrApprovalNotReset is returned when changing one nonzero approval to another
	ErrApprovalNotReset = errors.New("must set approved amount to zero before changing to non-zero amount")
	// ErrNothingApproved is returned by transferFrom when the approval is not strictly positive
	ErrNothingApproved = errors.New("approved amount must be strictly positive")
)

// Ledger holds every client's balances for one exchange instance
// Absent entries read as zero. Every mutation goes through apply, which
// checks all legs before writing any, so a failed operation leaves the
// ledger unchanged
//
// Not safe for concurrent use: the owning engine serializes calls
type Ledger struct {
	fields [numFields]map[common.Address]decimal.Decimal
}

// Leg is one signed change to a single client field
type Leg struct {
	Field  Field
	Client common.Address
	Delta  decimal.Decimal
}

// NewLedger creates an empty ledger
func NewLedger() *Ledger {
	l := &Ledger{}
	for i := range l.fields {
		l.fields[i] = make(map[common.Address]decimal.Decimal)
	}
	return l
}

// Get returns a single field, defaulting to zero
func (l *Ledger) Get(f Field, client common.Address) decimal.Decimal {
	if f >= numFields {
		return decimal.Zero
	}
	return l.fields[f][client]
}

// Credit adds a signed delta to one field
// Fails with ErrNegativeBalance if the result would be negative
func (l *Ledger) Credit(f Field, client common.Address, delta decimal.Decimal) error {
	return l.Apply(Leg{Field: f, Client: client, Delta: delta})
}

// Apply performs all legs atomically
// Legs touching the same field and client accumulate in order
func (l *Ledger) Apply(legs ...Leg) error {
	type slot struct {
		f Field
		c common.Address
	}
	staged := make(map[slot]decimal.Decimal, len(legs))
	for _, leg := range legs {
		if leg.Field >= numFields {
			return errors.AssertionFailedf("unknown balance field %d", leg.Field)
		}
		k := slot{leg.Field, leg.Client}
		cur, ok := staged[k]
		if !ok {
			cur = l.Get(leg.Field, leg.Client)
		}
		next := cur.Add(leg.Delta)
		if next.IsNegative() {
			return errors.Wrapf(ErrNegativeBalance, "%s of %s would be %s", leg.Field, leg.Client.Hex(), next)
		}
		staged[k] = next
	}
	for k, v := range staged {
		l.fields[k.f][k.c] = v
	}
	return nil
}

// Balances returns every field for a client, zero-filled
func (l *Ledger) Balances(client common.Address) Balances {
	return Balances{
		Client:       client,
		Base:         l.Get(Base, client),
		Quote:        l.Get(Quote, client),
		Rwrd:         l.Get(Rwrd, client),
		ApprovedBase: l.Get(ApprovedBase, client),
		ApprovedRwrd: l.Get(ApprovedRwrd, client),
		OwnBase:      l.Get(OwnBase, client),
		OwnRwrd:      l.Get(OwnRwrd, client),
		OwnQuote:     l.Get(OwnQuote, client),
	}
}

// OwnQuoteBalance mirrors the contract's separate own-quote getter
func (l *Ledger) OwnQuoteBalance(client common.Address) decimal.Decimal {
	return l.Get(OwnQuote, client)
}

// Clients lists every client with any entry, sorted by address bytes
func (l *Ledger) Clients() []common.Address {
	seen := make(map[common.Address]struct{})
	for _, m := range l.fields {
		for c := range m {
			seen[c] = struct{}{}
		}
	}
	out := make([]common.Address, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b common.Address) int { return bytes.Compare(a[:], b[:]) })
	return out
}

func checkAmount(amt decimal.Decimal) error {
	if amt.IsNegative() {
		return errors.Wrapf(ErrInvalidAmount, "got %s", amt)
	}
	return nil
}

// FundBase credits base directly (test/demo deposit)
func (l *Ledger) FundBase(client common.Address, amt decimal.Decimal) error {
	if err := checkAmount(amt); err != nil {
		return err
	}
	return l.Credit(Base, client, amt)
}

// FundQuote credits quote directly (test/demo deposit)
func (l *Ledger) FundQuote(client common.Address, amt decimal.Decimal) error {
	if err := checkAmount(amt); err != nil {
		return err
	}
	return l.Credit(Quote, client, amt)
}

// SetBalances overwrites exchange and own balances (test/demo only)
// Approvals are left untouched
func (l *Ledger) SetBalances(client common.Address, base, quote, rwrd, ownBase, ownQuote, ownRwrd decimal.Decimal) error {
	values := [...]struct {
		f Field
		v decimal.Decimal
	}{
		{Base, base}, {Quote, quote}, {Rwrd, rwrd},
		{OwnBase, ownBase}, {OwnQuote, ownQuote}, {OwnRwrd, ownRwrd},
	}
	for _, fv := range values {
		if err := checkAmount(fv.v); err != nil {
			return errors.Wrapf(err, "set %s", fv.f)
		}
	}
	for _, fv := range values {
		l.fields[fv.f][client] = fv.v
	}
	return nil
}

func (l *Ledger) approve(f Field, client common.Address, amt decimal.Decimal) error {
	if err := checkAmount(amt); err != nil {
		return err
	}
	if !l.Get(f, client).IsZero() && !amt.IsZero() {
		return ErrApprovalNotReset
	}
	// approving neither checks nor touches the own balance
	l.fields[f][client] = amt
	return nil
}

// ApproveBase sets how much base the exchange may pull from the client's own address
func (l *Ledger) ApproveBase(client common.Address, amt decimal.Decimal) error {
	return l.approve(ApprovedBase, client, amt)
}

// ApproveRwrd sets how much reward the exchange may pull from the client's own address
func (l *Ledger) ApproveRwrd(client common.Address, amt decimal.Decimal) error {
	return l.approve(ApprovedRwrd, client, amt)
}

func (l *Ledger) transferFrom(approved, own, held Field, client common.Address) (decimal.Decimal, error) {
	amt := l.Get(approved, client)
	if !amt.IsPositive() {
		return decimal.Zero, ErrNothingApproved
	}
	err := l.Apply(
		Leg{Field: approved, Client: client, Delta: amt.Neg()},
		Leg{Field: own, Client: client, Delta: amt.Neg()},
		Leg{Field: held, Client: client, Delta: amt},
	)
	if err != nil {
		return decimal.Zero, err
	}
	return amt, nil
}

// TransferFromBase pulls the whole approved base amount into the exchange
func (l *Ledger) TransferFromBase(client common.Address) (decimal.Decimal, error) {
	return l.transferFrom(ApprovedBase, OwnBase, Base, client)
}

// TransferFromRwrd pulls the whole approved reward amount into the exchange
func (l *Ledger) TransferFromRwrd(client common.Address) (decimal.Decimal, error) {
	return l.transferFrom(ApprovedRwrd, OwnRwrd, Rwrd, client)
}

// move shifts amt from one field to another for the same client
func (l *Ledger) move(from, to Field, client common.Address, amt decimal.Decimal) error {
	if err := checkAmount(amt); err != nil {
		return err
	}
	if have := l.Get(from, client); have.LessThan(amt) {
		return errors.Wrapf(ErrInsufficientFunds, "%s: have %s, need %s", from, have, amt)
	}
	return l.Apply(
		Leg{Field: to, Client: client, Delta: amt},
		Leg{Field: from, Client: client, Delta: amt.Neg()},
	)
}

// TransferBase withdraws base from the exchange to the client's own address
func (l *Ledger) TransferBase(client common.Address, amt decimal.Decimal) error {
	return l.move(Base, OwnBase, client, amt)
}

// TransferRwrd withdraws reward from the exchange to the client's own address
func (l *Ledger) TransferRwrd(client common.Address, amt decimal.Decimal) error {
	return l.move(Rwrd, OwnRwrd, client, amt)
}

// DepositQuote moves quote from the client's own address into the exchange
func (l *Ledger) DepositQuote(client common.Address, amt decimal.Decimal) error {
	return l.move(OwnQuote, Quote, client, amt)
}

// WithdrawQuote moves quote from the exchange to the client's own address
func (l *Ledger) WithdrawQuote(client common.Address, amt decimal.Decimal) error {
	return l.move(Quote, OwnQuote, client, amt)
}
