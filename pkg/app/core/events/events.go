// Package events holds the market events the matching engine raises and
// the drain-on-read log that buffers them for observers.
package events

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/refdex/pkg/app/core/price"
)

// Type is the kind of book change.
type Type uint8

const (
	Add Type = iota
	Remove
	CompleteFill
	PartialFill

	numTypes
)

var typeNames = [numTypes]string{"Add", "Remove", "CompleteFill", "PartialFill"}

func (t Type) String() string {
	if t < numTypes {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// DecodeType fails on tags outside the enumeration.
func DecodeType(tag uint8) (Type, error) {
	if tag >= uint8(numTypes) {
		return 0, errors.Newf("unknown market order event type %d", tag)
	}
	return Type(tag), nil
}

// Event is one immutable book change.
//
// For Add and Remove, DepthBase is the order's remaining size and TradeBase
// is zero. For fills, TradeBase is the matched size; DepthBase is the
// matched size for a PartialFill and the matched size plus any dust left
// behind for a CompleteFill.
type Event struct {
	Type        Type
	OrderID     string
	Price       string
	PricePacked price.Packed
	DepthBase   decimal.Decimal
	TradeBase   decimal.Decimal
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s @ %q depth=%s trade=%s", e.Type, e.OrderID, e.Price, e.DepthBase, e.TradeBase)
}

// ClientType is the kind of client request that touched an order.
type ClientType uint8

const (
	ClientCreate ClientType = iota
	ClientContinue
	ClientCancel

	numClientTypes
)

var clientTypeNames = [numClientTypes]string{"Create", "Continue", "Cancel"}

func (t ClientType) String() string {
	if t < numClientTypes {
		return clientTypeNames[t]
	}
	return fmt.Sprintf("ClientType(%d)", uint8(t))
}

func DecodeClientType(tag uint8) (ClientType, error) {
	if tag >= uint8(numClientTypes) {
		return 0, errors.Newf("unknown client order event type %d", tag)
	}
	return ClientType(tag), nil
}

// Log is an append-only buffer. Events are only consumed by Drain.
type Log struct {
	events []Event
}

func (l *Log) Raise(e Event) { l.events = append(l.events, e) }

// Drain returns everything raised since the previous drain and empties the log.
func (l *Log) Drain() []Event {
	out := l.events
	l.events = nil
	return out
}

func (l *Log) Len() int { return len(l.events) }
