package refdex

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/refdex/pkg/app/core/orderbook"
	"github.com/uhyunpark/refdex/pkg/app/core/price"
	"github.com/uhyunpark/refdex/pkg/orderid"
	"github.com/uhyunpark/refdex/pkg/util"
)

// genEpoch stamps generated order ids so replays are reproducible.
var genEpoch = time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)

type genOrder struct {
	id     string
	client string
}

// Generator creates a reproducible random command stream for one market:
// funding first, then creates on a price lattice around 1.00 mixed with
// cancels, continues and quote deposits/withdrawals.
type Generator struct {
	market  string
	clients []string
	prices  []string
	ids     *orderid.Generator
	orders  []genOrder
	rng     *rand.Rand
	funded  bool
}

// NewGenerator derives numClients addresses and the order-id stream from seed.
func NewGenerator(seed int64, numClients int, symbol string) *Generator {
	clients := make([]string, numClients)
	for i := range clients {
		h := crypto.Keccak256([]byte(fmt.Sprintf("refdex/%d/client/%d", seed, i)))
		clients[i] = common.BytesToAddress(h).Hex()
	}

	// 0.950 .. 0.990 and 1.00 .. 1.05 on both sides
	var prices []string
	for _, dir := range []price.Direction{price.Buy, price.Sell} {
		for m := 950; m <= 990; m += 10 {
			prices = append(prices, price.Default.MakePrice(dir, m, 0))
		}
		for m := 100; m <= 105; m++ {
			prices = append(prices, price.Default.MakePrice(dir, m, 1))
		}
	}

	return &Generator{
		market:  symbol,
		clients: clients,
		prices:  prices,
		ids:     orderid.NewDeterministicGenerator(&util.StepClock{T: genEpoch, Step: time.Second}, fmt.Sprint(seed)),
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func (g *Generator) Clients() []string { return append([]string(nil), g.clients...) }

// Funding credits every client with base and quote; every other client
// also gets reward tokens so both fee paths are exercised.
func (g *Generator) Funding() [][]byte {
	out := make([][]byte, 0, len(g.clients))
	for i, c := range g.clients {
		cmd := Command{Type: "fund", Market: g.market, Client: c, Base: "1000", Quote: "1000"}
		if i%2 == 0 {
			cmd.Rwrd = "50"
		}
		out = append(out, cmd.Marshal())
	}
	g.funded = true
	return out
}

// GenerateCreate creates a random order command
func (g *Generator) GenerateCreate() []byte {
	client := g.pick(g.clients)

	// 50% GTC, 20% GTC with top-up, 20% IOC, 10% maker-only
	terms := orderbook.GTCNoGasTopup
	switch r := g.rng.Intn(100); {
	case r < 50:
	case r < 70:
		terms = orderbook.GTCWithGasTopup
	case r < 90:
		terms = orderbook.ImmediateOrCancel
	default:
		terms = orderbook.MakerOnly
	}
	var maxMatches uint32
	if terms != orderbook.MakerOnly {
		maxMatches = uint32(g.rng.Intn(5) + 1)
	}

	id := g.ids.Next()
	g.orders = append(g.orders, genOrder{id: id, client: client})
	return Command{
		Type:       "create",
		Market:     g.market,
		Client:     client,
		OrderID:    id,
		Price:      g.pick(g.prices),
		Size:       decimal.New(int64(g.rng.Intn(50)+1), -1).String(), // 0.1 .. 5.0
		Terms:      terms.String(),
		MaxMatches: maxMatches,
	}.Marshal()
}

// GenerateCancel cancels a previously created order on behalf of its owner.
// Most will already be finished, which makes the cancel a no-op.
func (g *Generator) GenerateCancel() []byte {
	if len(g.orders) == 0 {
		return g.GenerateCreate()
	}
	o := g.orders[g.rng.Intn(len(g.orders))]
	return Command{Type: "cancel", Market: g.market, Client: o.client, OrderID: o.id}.Marshal()
}

func (g *Generator) GenerateContinue() []byte {
	if len(g.orders) == 0 {
		return g.GenerateCreate()
	}
	o := g.orders[g.rng.Intn(len(g.orders))]
	return Command{
		Type: "continue", Market: g.market, Client: o.client, OrderID: o.id,
		MaxMatches: uint32(g.rng.Intn(5) + 1),
	}.Marshal()
}

func (g *Generator) GenerateTransfer() []byte {
	typ := "withdraw"
	if g.rng.Intn(2) == 0 {
		typ = "deposit"
	}
	return Command{Type: typ, Market: g.market, Client: g.pick(g.clients), Amount: "1"}.Marshal()
}

// GenerateMix creates a random command (70% creates, 15% cancels,
// 10% continues, 5% quote transfers)
func (g *Generator) GenerateMix() []byte {
	switch r := g.rng.Intn(100); {
	case r < 70:
		return g.GenerateCreate()
	case r < 85:
		return g.GenerateCancel()
	case r < 95:
		return g.GenerateContinue()
	default:
		return g.GenerateTransfer()
	}
}

// GenerateBatch creates count commands, preceded by funding on first use.
func (g *Generator) GenerateBatch(count int) [][]byte {
	var batch [][]byte
	if !g.funded {
		batch = g.Funding()
	}
	for i := 0; i < count; i++ {
		batch = append(batch, g.GenerateMix())
	}
	return batch
}

func (g *Generator) pick(from []string) string { return from[g.rng.Intn(len(from))] }
