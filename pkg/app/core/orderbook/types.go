package orderbook

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Status is an order's lifecycle state
//
//	Unknown -> Rejected | Open | Done | NeedsGas
//	Open -> Done
//	NeedsGas -> Unknown (continue) | Done (cancel)
//
// Rejected and Done are terminal
type Status uint8

const (
	Unknown Status = iota
	Rejected
	Open
	Done
	NeedsGas

	numStatus
)

var statusNames = [numStatus]string{"Unknown", "Rejected", "Open", "Done", "NeedsGas"}

func (s Status) String() string { return enumName(statusNames[:], uint8(s), "Status") }

// IsTerminal reports whether no further transition is possible
func (s Status) IsTerminal() bool { return s == Rejected || s == Done }

// ReasonCode explains why an order reached its status
type ReasonCode uint8

const (
	ReasonNone ReasonCode = iota
	ReasonInvalidPrice
	ReasonInvalidSize
	ReasonInvalidTerms
	ReasonInsufficientFunds
	ReasonWouldTake
	ReasonUnmatched
	ReasonTooManyMatches
	ReasonClientCancel

	numReason
)

var reasonNames = [numReason]string{
	"None", "InvalidPrice", "InvalidSize", "InvalidTerms", "InsufficientFunds",
	"WouldTake", "Unmatched", "TooManyMatches", "ClientCancel",
}

func (r ReasonCode) String() string { return enumName(reasonNames[:], uint8(r), "ReasonCode") }

// Terms decide what happens to the part of an order that does not match at once
type Terms uint8

const (
	GTCNoGasTopup Terms = iota
	GTCWithGasTopup
	ImmediateOrCancel
	MakerOnly

	numTerms
)

var termsNames = [numTerms]string{"GTCNoGasTopup", "GTCWithGasTopup", "ImmediateOrCancel", "MakerOnly"}

func (t Terms) String() string { return enumName(termsNames[:], uint8(t), "Terms") }

// IsKnown is false for tags outside the enumeration
func (t Terms) IsKnown() bool { return t < numTerms }

func enumName(names []string, tag uint8, kind string) string {
	if int(tag) < len(names) {
		return names[tag]
	}
	return fmt.Sprintf("%s(%d)", kind, tag)
}

func decodeEnum(names []string, tag uint8, kind string) (uint8, error) {
	if int(tag) >= len(names) {
		return 0, errors.Newf("unknown %s tag %d, expected one of %s", kind, tag, strings.Join(names, ","))
	}
	return tag, nil
}

func parseEnum(names []string, name, kind string) (uint8, error) {
	for i, n := range names {
		if n == name {
			return uint8(i), nil
		}
	}
	return 0, errors.Newf("unknown %s name %q, expected one of %s", kind, name, strings.Join(names, ","))
}

func DecodeStatus(tag uint8) (Status, error) {
	v, err := decodeEnum(statusNames[:], tag, "status")
	return Status(v), err
}

func ParseStatus(name string) (Status, error) {
	v, err := parseEnum(statusNames[:], name, "status")
	return Status(v), err
}

func DecodeReasonCode(tag uint8) (ReasonCode, error) {
	v, err := decodeEnum(reasonNames[:], tag, "reason code")
	return ReasonCode(v), err
}

func ParseReasonCode(name string) (ReasonCode, error) {
	v, err := parseEnum(reasonNames[:], name, "reason code")
	return ReasonCode(v), err
}

func DecodeTerms(tag uint8) (Terms, error) {
	v, err := decodeEnum(termsNames[:], tag, "terms")
	return Terms(v), err
}

func ParseTerms(name string) (Terms, error) {
	v, err := parseEnum(termsNames[:], name, "terms")
	return Terms(v), err
}
