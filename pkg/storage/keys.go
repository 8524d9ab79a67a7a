package storage

import (
	"fmt"
)

// Key schema, with <sym> the symbol prefixed by its length ("8:WETH-DAI"):
//
//	ev:<sym>:<8-byte seq>   → gob EventRecord, seq starts at 1
//	evseq:<sym>             → 8-byte last seq
//	ord:<sym>:<orderID>     → JSON order snapshot
//
// The length keeps one market's prefix from matching another's, e.g. "A"
// and "A:B".
const (
	prefixEvent    = "ev:"
	prefixEventSeq = "evseq:"
	prefixOrder    = "ord:"
)

func symbolPart(symbol string) string {
	return fmt.Sprintf("%d:%s", len(symbol), symbol)
}

// eventPrefix returns the prefix for all events of a market
// Format: "ev:{len}:{symbol}:"
func eventPrefix(symbol string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixEvent, symbolPart(symbol)))
}

// eventKey sorts by sequence number since the seq is big-endian.
func eventKey(symbol string, seq uint64) []byte {
	return append(eventPrefix(symbol), seqBytes(seq)...)
}

func eventSeqKey(symbol string) []byte {
	return []byte(prefixEventSeq + symbolPart(symbol))
}

// orderKey returns the key for an order
// Format: "ord:{len}:{symbol}:{orderID}"
func orderKey(symbol, orderID string) []byte {
	return append(orderPrefix(symbol), orderID...)
}

func orderPrefix(symbol string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixOrder, symbolPart(symbol)))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
