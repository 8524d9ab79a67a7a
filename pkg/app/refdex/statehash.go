package refdex

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/refdex/pkg/app/core/orderbook"
)

// StateHash is a keccak256 digest of every market's observable state, for
// cross-checking two replays of the same commands.
//
// Per market, in symbol order:
//  1. Symbol name
//  2. Book levels, bids then asks, in scan order (price, depth, count)
//  3. Every client's balances, clients sorted by address
//  4. Every order's mutable state, orders sorted by id
func (a *App) StateHash() common.Hash {
	var buf bytes.Buffer
	var u [8]byte
	putUint := func(v uint64) {
		binary.BigEndian.PutUint64(u[:], v)
		buf.Write(u[:])
	}
	putDec := func(d decimal.Decimal) {
		s := d.String()
		putUint(uint64(len(s)))
		buf.WriteString(s)
	}
	putStr := func(s string) {
		putUint(uint64(len(s)))
		buf.WriteString(s)
	}

	for _, sym := range a.registry.Symbols() {
		e := a.engines[sym]
		putStr(sym)

		bids, asks := e.GetBookSnapshot()
		for _, side := range [][]orderbook.Level{bids, asks} {
			putUint(uint64(len(side)))
			for _, lvl := range side {
				putUint(uint64(lvl.Price))
				putDec(lvl.Depth)
				putUint(uint64(lvl.Count))
			}
		}

		clients := e.Ledger().Clients()
		putUint(uint64(len(clients)))
		for _, c := range clients {
			buf.Write(c.Bytes())
			b := e.GetBalances(c)
			for _, v := range b.Tuple() {
				putDec(v)
			}
			putDec(b.OwnQuote)
		}

		ids := e.OrderIDs()
		sort.Strings(ids)
		putUint(uint64(len(ids)))
		for _, id := range ids {
			o, _ := e.GetOrder(id)
			putStr(o.ID)
			buf.Write(o.Client.Bytes())
			putUint(uint64(o.PricePacked))
			putUint(uint64(o.Status)<<16 | uint64(o.ReasonCode)<<8 | uint64(o.Terms))
			putDec(o.SizeBase)
			putDec(o.SizeQuote)
			putDec(o.ExecutedBase)
			putDec(o.ExecutedQuote)
			putDec(o.FeesBaseOrQuote)
			putDec(o.FeesRwrd)
		}
	}
	return crypto.Keccak256Hash(buf.Bytes())
}
