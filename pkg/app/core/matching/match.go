package matching

import (
	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/refdex/pkg/app/core/account"
	"github.com/uhyunpark/refdex/pkg/app/core/events"
	"github.com/uhyunpark/refdex/pkg/app/core/orderbook"
	"github.com/uhyunpark/refdex/pkg/app/core/price"
)

// stopReason is why matching stopped.
type stopReason uint8

const (
	stopNone stopReason = iota
	// our remaining base fell below the minimum remaining size
	stopSatisfied
	// the match budget ran out
	stopMaxMatches
	// the current price level emptied; never escapes matchAgainstBook
	stopPriceExhausted
	// no occupied price left up to our limit
	stopBookExhausted
)

var stopNames = [...]string{"None", "Satisfied", "MaxMatches", "PriceExhausted", "BookExhausted"}

func (s stopReason) String() string {
	if int(s) < len(stopNames) {
		return stopNames[s]
	}
	return "Unknown"
}

// matchAgainstBook walks occupied prices in [start, end] best first.
func (e *Engine) matchAgainstBook(o *orderbook.Order, start, end price.Packed, maxMatches uint32) (stopReason, error) {
	matchesLeft := maxMatches
	stop := stopNone
	for p, ok := e.book.NextOccupied(start, end); ok; p, ok = e.book.NextOccupied(p+1, end) {
		var err error
		matchesLeft, stop, err = e.matchAtPrice(o, p, matchesLeft)
		if err != nil {
			return stop, err
		}
		if stop == stopPriceExhausted {
			stop = stopNone
			continue
		}
		if stop != stopNone {
			break
		}
	}
	if stop == stopNone {
		stop = stopBookExhausted
	}
	return stop, nil
}

// matchAtPrice consumes resting orders at p, oldest first, until the budget
// runs out, we are satisfied, or the level empties. A budget of zero stops
// at the first occupied price, which is how MakerOnly detects a cross.
func (e *Engine) matchAtPrice(o *orderbook.Order, p price.Packed, matchesLeft uint32) (uint32, stopReason, error) {
	for {
		if matchesLeft == 0 {
			return 0, stopMaxMatches, nil
		}
		theirs := e.book.Head(p)
		if theirs == nil {
			return matchesLeft, stopNone, errors.AssertionFailedf("occupied price %d has no resting order", p)
		}
		if err := e.matchWithTheirs(o, theirs); err != nil {
			return matchesLeft, stopNone, err
		}
		matchesLeft--

		// Stop even if more liquidity remains: one more match could cost
		// more than the dust it would move.
		stop := stopNone
		if o.RemainingBase().LessThan(e.params.BaseMinRemainingSize) {
			stop = stopSatisfied
		}
		if theirs.Status != orderbook.Open {
			_, emptied, err := e.book.RemoveHead(p)
			if err != nil {
				return matchesLeft, stop, err
			}
			if emptied && stop == stopNone {
				stop = stopPriceExhausted
			}
		}
		if stop != stopNone {
			return matchesLeft, stop, nil
		}
	}
}

// matchWithTheirs trades as much as both sides allow at the resting order's
// price, pays the maker immediately and finishes it if only dust remains.
// The taker's proceeds are settled by the caller.
func (e *Engine) matchWithTheirs(ours, theirs *orderbook.Order) error {
	matchBase := decimal.Min(ours.RemainingBase(), theirs.RemainingBase())
	matchQuote := computeAmountQuote(matchBase, e.codec.Decode(theirs.PricePacked))

	ours.ExecutedBase = ours.ExecutedBase.Add(matchBase)
	ours.ExecutedQuote = ours.ExecutedQuote.Add(matchQuote)
	theirs.ExecutedBase = theirs.ExecutedBase.Add(matchBase)
	theirs.ExecutedQuote = theirs.ExecutedQuote.Add(matchQuote)

	var err error
	if theirs.IsBuy() {
		// they bought base with quote paid at creation
		err = e.credit(account.Base, theirs.Client, matchBase)
	} else {
		// they bought quote with base paid at creation
		err = e.credit(account.Quote, theirs.Client, matchQuote)
	}
	if err != nil {
		return err
	}

	stillRemaining := theirs.RemainingBase()
	if stillRemaining.LessThan(e.params.BaseMinRemainingSize) {
		if err := e.refundUnmatchedAndFinish(theirs, orderbook.Done, orderbook.ReasonNone); err != nil {
			return err
		}
		e.raise(events.CompleteFill, theirs, matchBase.Add(stillRemaining), matchBase)
		return nil
	}
	e.raise(events.PartialFill, theirs, matchBase, matchBase)
	return nil
}
