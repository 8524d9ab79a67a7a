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
)

// CreateOrder admits a new order and matches it.
//
// Only a reused id or an internal fault is returned as an error. Validation
// failures are recorded on the order as Rejected with a reason code; look
// them up with GetOrder.
func (e *Engine) CreateOrder(client common.Address, id, priceText string, sizeBase decimal.Decimal, terms orderbook.Terms, maxMatches uint32) error {
	if _, exists := e.orders[id]; exists {
		return errors.Wrapf(ErrOrderExists, "order %s", id)
	}
	p := e.codec.SplitPrice(priceText)
	o := &orderbook.Order{
		ID:          id,
		Client:      client,
		Price:       e.codec.Format(p),
		PricePacked: e.codec.Encode(p),
		SizeBase:    sizeBase,
		Terms:       terms,
		Status:      orderbook.Unknown,
		ReasonCode:  orderbook.ReasonNone,
	}
	e.orders[id] = o
	e.ids = append(e.ids, id)

	if !p.IsValid() {
		e.reject(o, orderbook.ReasonInvalidPrice)
		return nil
	}
	if !sizeBase.IsInteger() {
		e.reject(o, orderbook.ReasonInvalidSize)
		return nil
	}
	sizeQuote := computeAmountQuote(sizeBase, p)
	if e.params.ValidateSize(sizeBase, sizeQuote) != market.SizeOK {
		e.reject(o, orderbook.ReasonInvalidSize)
		return nil
	}
	o.SizeQuote = sizeQuote
	if !terms.IsKnown() || (terms == orderbook.MakerOnly && maxMatches != 0) {
		e.reject(o, orderbook.ReasonInvalidTerms)
		return nil
	}
	if ok, err := e.debitFundsForOrder(o); err != nil {
		return err
	} else if !ok {
		e.reject(o, orderbook.ReasonInsufficientFunds)
		return nil
	}
	return e.processOrder(o, maxMatches)
}

// CancelOrder refunds the unmatched part of an Open or NeedsGas order and
// finishes it as Done/ClientCancel. Any other status is a no-op.
func (e *Engine) CancelOrder(client common.Address, id string) error {
	o, err := e.ownedOrder(client, id)
	if err != nil {
		return err
	}
	if o.Status != orderbook.Open && o.Status != orderbook.NeedsGas {
		return nil
	}
	if o.Status == orderbook.Open {
		if err := e.book.Remove(o.PricePacked, o.ID); err != nil {
			return err
		}
		e.raise(events.Remove, o, o.RemainingBase(), decimal.Zero)
	}
	e.logger.Debug("order cancelled", zap.String("order_id", id), zap.Stringer("was", o.Status))
	return e.refundUnmatchedAndFinish(o, orderbook.Done, orderbook.ReasonClientCancel)
}

// ContinueOrder resumes matching for a NeedsGas order with a fresh budget.
// Any other status is a no-op.
func (e *Engine) ContinueOrder(client common.Address, id string, maxMatches uint32) error {
	o, err := e.ownedOrder(client, id)
	if err != nil {
		return err
	}
	if o.Status != orderbook.NeedsGas {
		return nil
	}
	o.Status = orderbook.Unknown
	return e.processOrder(o, maxMatches)
}

func (e *Engine) ownedOrder(client common.Address, id string) (*orderbook.Order, error) {
	o, ok := e.orders[id]
	if !ok {
		return nil, errors.Wrapf(ErrOrderNotFound, "order %s", id)
	}
	if o.Client != client {
		return nil, errors.Wrapf(ErrNotOwner, "order %s", id)
	}
	return o, nil
}

func (e *Engine) reject(o *orderbook.Order, reason orderbook.ReasonCode) {
	o.Status = orderbook.Rejected
	o.ReasonCode = reason
	e.logger.Debug("order rejected", zap.String("order_id", o.ID), zap.Stringer("reason", reason))
}

// debitFundsForOrder takes the full order size up front: quote for a Buy,
// base for a Sell. Returns false if the client cannot cover it.
func (e *Engine) debitFundsForOrder(o *orderbook.Order) (bool, error) {
	field, need := account.Base, o.SizeBase
	if o.IsBuy() {
		field, need = account.Quote, o.SizeQuote
	}
	if e.ledger.Get(field, o.Client).LessThan(need) {
		return false, nil
	}
	return true, e.credit(field, o.Client, need.Neg())
}

// processOrder matches o from the best opposite price up to and including
// the opposite of its own price, charges fees on what was taken during this
// call, then resolves the outcome by terms.
func (e *Engine) processOrder(o *orderbook.Order, maxMatches uint32) error {
	origBase, origQuote := o.ExecutedBase, o.ExecutedQuote

	theirEnd := o.PricePacked.Opposite()
	theirStart := theirEnd.Best()
	stop, err := e.matchAgainstBook(o, theirStart, theirEnd, maxMatches)
	if err != nil {
		return err
	}

	if o.ExecutedBase.GreaterThan(origBase) {
		takenBase := o.ExecutedBase.Sub(origBase)
		takenQuote := o.ExecutedQuote.Sub(origQuote)
		if err := e.settleTaken(o, takenBase, takenQuote); err != nil {
			return err
		}
	}
	e.logger.Debug("order matched",
		zap.String("order_id", o.ID),
		zap.Stringer("stop", stop),
		zap.Stringer("executed_base", o.ExecutedBase),
	)
	return e.resolveTerms(o, stop)
}

// settleTaken credits the taker's proceeds net of fees. The fee is paid in
// the reward token when the client holds enough of it, otherwise it is kept
// back from the proceeds (base on a Buy, quote on a Sell).
func (e *Engine) settleTaken(o *orderbook.Order, takenBase, takenQuote decimal.Decimal) error {
	feesRwrd := per10K(takenQuote, e.params.FeesPer10K).Mul(decimal.NewFromInt(e.params.EthRwrdRate))
	if feesRwrd.LessThanOrEqual(e.ledger.Get(account.Rwrd, o.Client)) {
		proceeds := account.Leg{Field: account.Quote, Client: o.Client, Delta: takenQuote}
		if o.IsBuy() {
			proceeds = account.Leg{Field: account.Base, Client: o.Client, Delta: takenBase}
		}
		err := e.ledger.Apply(
			account.Leg{Field: account.Rwrd, Client: o.Client, Delta: feesRwrd.Neg()},
			proceeds,
		)
		if err != nil {
			return errors.WithAssertionFailure(errors.Wrap(err, "reward fee"))
		}
		o.FeesRwrd = o.FeesRwrd.Add(feesRwrd)
		return nil
	}
	if o.IsBuy() {
		feesBase := per10K(takenBase, e.params.FeesPer10K)
		if err := e.credit(account.Base, o.Client, takenBase.Sub(feesBase)); err != nil {
			return err
		}
		o.FeesBaseOrQuote = o.FeesBaseOrQuote.Add(feesBase)
		return nil
	}
	feesQuote := per10K(takenQuote, e.params.FeesPer10K)
	if err := e.credit(account.Quote, o.Client, takenQuote.Sub(feesQuote)); err != nil {
		return err
	}
	o.FeesBaseOrQuote = o.FeesBaseOrQuote.Add(feesQuote)
	return nil
}

// per10K is floor(v × rate / 10000) for non-negative integers.
func per10K(v decimal.Decimal, rate int64) decimal.Decimal {
	q, _ := v.Mul(decimal.NewFromInt(rate)).QuoRem(decimal.NewFromInt(10000), 0)
	return q
}

func (e *Engine) resolveTerms(o *orderbook.Order, stop stopReason) error {
	switch o.Terms {
	case orderbook.ImmediateOrCancel:
		switch stop {
		case stopSatisfied:
			return e.refundUnmatchedAndFinish(o, orderbook.Done, orderbook.ReasonNone)
		case stopMaxMatches:
			return e.refundUnmatchedAndFinish(o, orderbook.Done, orderbook.ReasonTooManyMatches)
		case stopBookExhausted:
			return e.refundUnmatchedAndFinish(o, orderbook.Done, orderbook.ReasonUnmatched)
		}
	case orderbook.MakerOnly:
		switch stop {
		case stopMaxMatches:
			return e.refundUnmatchedAndFinish(o, orderbook.Rejected, orderbook.ReasonWouldTake)
		case stopBookExhausted:
			return e.enterOrder(o)
		}
	case orderbook.GTCNoGasTopup:
		switch stop {
		case stopSatisfied:
			return e.refundUnmatchedAndFinish(o, orderbook.Done, orderbook.ReasonNone)
		case stopMaxMatches:
			return e.refundUnmatchedAndFinish(o, orderbook.Done, orderbook.ReasonTooManyMatches)
		case stopBookExhausted:
			return e.enterOrder(o)
		}
	case orderbook.GTCWithGasTopup:
		switch stop {
		case stopSatisfied:
			return e.refundUnmatchedAndFinish(o, orderbook.Done, orderbook.ReasonNone)
		case stopMaxMatches:
			// paused; the remaining debit stays with the order until continue or cancel
			o.Status = orderbook.NeedsGas
			return nil
		case stopBookExhausted:
			return e.enterOrder(o)
		}
	default:
		return errors.AssertionFailedf("order %s has unknown terms %s", o.ID, o.Terms)
	}
	return errors.AssertionFailedf("order %s: no outcome for terms %s with stop %s", o.ID, o.Terms, stop)
}

// refundUnmatchedAndFinish returns what is left of the up-front debit and
// sets the final status.
func (e *Engine) refundUnmatchedAndFinish(o *orderbook.Order, status orderbook.Status, reason orderbook.ReasonCode) error {
	var err error
	if o.IsBuy() {
		err = e.credit(account.Quote, o.Client, o.SizeQuote.Sub(o.ExecutedQuote))
	} else {
		err = e.credit(account.Base, o.Client, o.SizeBase.Sub(o.ExecutedBase))
	}
	if err != nil {
		return err
	}
	o.Status = status
	o.ReasonCode = reason
	return nil
}

func (e *Engine) enterOrder(o *orderbook.Order) error {
	if err := e.book.Add(o); err != nil {
		return err
	}
	o.Status = orderbook.Open
	e.raise(events.Add, o, o.RemainingBase(), decimal.Zero)
	return nil
}

func (e *Engine) raise(t events.Type, o *orderbook.Order, depth, trade decimal.Decimal) {
	e.events.Raise(events.Event{
		Type:        t,
		OrderID:     o.ID,
		Price:       o.Price,
		PricePacked: o.PricePacked,
		DepthBase:   depth,
		TradeBase:   trade,
	})
}
