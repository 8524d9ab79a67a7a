// Package matching is the order-lifecycle state machine: admission,
// price-time matching against the book, fee assessment, terms resolution,
// cancellation and continuation.
//
// An Engine owns its ledger, book, orders and event log. It is synchronous
// and not safe for concurrent use; hosts serialize calls, one engine per
// command stream.
package matching

import (
	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/uhyunpark/refdex/pkg/app/core/account"
	"github.com/uhyunpark/refdex/pkg/app/core/events"
	"github.com/uhyunpark/refdex/pkg/app/core/market"
	"github.com/uhyunpark/refdex/pkg/app/core/orderbook"
	"github.com/uhyunpark/refdex/pkg/app/core/price"
)

var (
	ErrOrderExists   = errors.New("order already exists")
	ErrOrderNotFound = errors.New("order does not exist")
	// ErrNotOwner is a caller error, never an assertion failure.
	ErrNotOwner     = errors.New("not your order")
	ErrInvalidPrice = errors.New("not a valid sided price")
)

type Engine struct {
	params market.Params
	codec  price.Codec

	ledger *account.Ledger
	book   *orderbook.Book
	orders map[string]*orderbook.Order
	ids    []string // creation order
	events events.Log

	logger *zap.Logger
}

type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithLedger shares an existing ledger instead of starting empty.
func WithLedger(l *account.Ledger) Option {
	return func(e *Engine) {
		if l != nil {
			e.ledger = l
		}
	}
}

func New(params market.Params, opts ...Option) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, errors.Wrap(err, "engine params")
	}
	codec, err := params.Codec()
	if err != nil {
		return nil, err
	}
	e := &Engine{
		params: params,
		codec:  codec,
		ledger: account.NewLedger(),
		book:   orderbook.NewBook(),
		orders: make(map[string]*orderbook.Order),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) Params() market.Params   { return e.params }
func (e *Engine) Codec() price.Codec      { return e.codec }
func (e *Engine) Ledger() *account.Ledger { return e.ledger }

// GetOrder returns a copy of the order record.
func (e *Engine) GetOrder(id string) (*orderbook.Order, error) {
	o, ok := e.orders[id]
	if !ok {
		return nil, errors.Wrapf(ErrOrderNotFound, "order %s", id)
	}
	return o.Clone(), nil
}

// OrderIDs lists every order ever created, oldest first.
func (e *Engine) OrderIDs() []string {
	return append([]string(nil), e.ids...)
}

func (e *Engine) GetBalances(client common.Address) account.Balances {
	return e.ledger.Balances(client)
}

// WalkBook returns the first occupied level at or after priceText on its
// side, or that side's boundary with zero depth.
func (e *Engine) WalkBook(priceText string) (orderbook.Level, error) {
	p := e.codec.EncodeText(priceText)
	if !p.IsValid() {
		return orderbook.Level{}, errors.Wrapf(ErrInvalidPrice, "%q", priceText)
	}
	return e.book.Walk(p), nil
}

// GetBookSnapshot returns bids from the highest price down and asks from
// the lowest price up.
func (e *Engine) GetBookSnapshot() (bids, asks []orderbook.Level) {
	return e.book.Snapshot()
}

// DrainEvents returns and clears every event raised since the last drain.
func (e *Engine) DrainEvents() []events.Event {
	return e.events.Drain()
}

// ComputeAmountQuote is base × price, truncated toward zero.
func (e *Engine) ComputeAmountQuote(sizeBase decimal.Decimal, priceText string) (decimal.Decimal, error) {
	p := e.codec.SplitPrice(priceText)
	if !p.IsValid() {
		return decimal.Zero, errors.Wrapf(ErrInvalidPrice, "%q", priceText)
	}
	return computeAmountQuote(sizeBase, p), nil
}

func computeAmountQuote(sizeBase decimal.Decimal, p price.Price) decimal.Decimal {
	return sizeBase.Mul(p.Value()).Truncate(0)
}

// credit routes an engine-internal balance change through the ledger. The
// engine checks funds before debiting, so any failure here is a fault.
func (e *Engine) credit(f account.Field, client common.Address, delta decimal.Decimal) error {
	if err := e.ledger.Credit(f, client, delta); err != nil {
		return errors.WithAssertionFailure(errors.Wrapf(err, "engine credit of %s", f))
	}
	return nil
}
