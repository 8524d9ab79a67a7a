package orderbook

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/refdex/pkg/app/core/price"
)

// Level is the aggregate of one occupied price
type Level struct {
	Price price.Packed
	Depth decimal.Decimal // sum of remaining base over the bucket
	Count int
}

// Book indexes resting orders by exact packed price
//
// Each price holds a FIFO bucket (oldest first, so price-time priority).
// An occupancy bitmap over the packed lattice mirrors the contract's
// bitmaps: lower packed values are better prices on both sides, so a
// forward scan from any price visits levels best to worst
//
// Invariants: every order in a bucket is Open; buckets are never empty;
// a bit is set iff its bucket exists
//
// Not safe for concurrent use
type Book struct {
	buckets  map[price.Packed][]*Order
	occupied *bitset.BitSet

	// Order index for cancellation: order ID -> price
	orderIndex map[string]price.Packed
}

func NewBook() *Book {
	return &Book{
		buckets:    make(map[price.Packed][]*Order),
		occupied:   bitset.New(uint(price.PackedLimit)),
		orderIndex: make(map[string]price.Packed),
	}
}

// Add appends o at the tail of its price bucket
func (b *Book) Add(o *Order) error {
	p := o.PricePacked
	if !p.IsValid() {
		return errors.AssertionFailedf("order %s has no valid price to rest at", o.ID)
	}
	if _, dup := b.orderIndex[o.ID]; dup {
		return errors.AssertionFailedf("order %s already rests in the book", o.ID)
	}
	if len(b.buckets[p]) == 0 {
		b.occupied.Set(uint(p))
	}
	b.buckets[p] = append(b.buckets[p], o)
	b.orderIndex[o.ID] = p
	return nil
}

// Head returns the oldest order at p, or nil
func (b *Book) Head(p price.Packed) *Order {
	if q := b.buckets[p]; len(q) > 0 {
		return q[0]
	}
	return nil
}

// RemoveHead pops the oldest order at p
// Returns true when that emptied the bucket
func (b *Book) RemoveHead(p price.Packed) (*Order, bool, error) {
	q := b.buckets[p]
	if len(q) == 0 {
		return nil, false, errors.AssertionFailedf("no bucket at packed price %d", p)
	}
	head := q[0]
	q[0] = nil
	b.setBucket(p, q[1:])
	delete(b.orderIndex, head.ID)
	return head, len(q) == 1, nil
}

// Remove takes order id out of the bucket at p, preserving the others' order
// A missing bucket or a missing member is a structural fault
func (b *Book) Remove(p price.Packed, id string) error {
	q, ok := b.buckets[p]
	if !ok {
		return errors.AssertionFailedf("must be a bucket for price %d of open order %s", p, id)
	}
	for i, o := range q {
		if o.ID != id {
			continue
		}
		rest := make([]*Order, 0, len(q)-1)
		rest = append(rest, q[:i]...)
		rest = append(rest, q[i+1:]...)
		b.setBucket(p, rest)
		delete(b.orderIndex, id)
		return nil
	}
	return errors.AssertionFailedf("open order %s must be in the bucket for its price %d", id, p)
}

func (b *Book) setBucket(p price.Packed, q []*Order) {
	if len(q) == 0 {
		delete(b.buckets, p)
		b.occupied.Clear(uint(p))
		return
	}
	b.buckets[p] = q
}

// Contains reports whether order id is resting
func (b *Book) Contains(id string) bool {
	_, ok := b.orderIndex[id]
	return ok
}

// PriceOf returns where order id rests
func (b *Book) PriceOf(id string) (price.Packed, bool) {
	p, ok := b.orderIndex[id]
	return p, ok
}

// Len returns the number of resting orders
func (b *Book) Len() int { return len(b.orderIndex) }

// NextOccupied finds the first occupied price in [from, to]
func (b *Book) NextOccupied(from, to price.Packed) (price.Packed, bool) {
	if from > to {
		return price.InvalidPacked, false
	}
	i, ok := b.occupied.NextSet(uint(from))
	if !ok || i > uint(to) {
		return price.InvalidPacked, false
	}
	return price.Packed(i), true
}

func (b *Book) level(p price.Packed) Level {
	q := b.buckets[p]
	depth := decimal.Zero
	for _, o := range q {
		depth = depth.Add(o.RemainingBase())
	}
	return Level{Price: p, Depth: depth, Count: len(q)}
}

// Walk scans from `from` toward the worst price of its side and returns the
// first occupied level, or the side's boundary with zero depth
func (b *Book) Walk(from price.Packed) Level {
	end := from.Worst()
	if end == price.InvalidPacked {
		return Level{Price: price.InvalidPacked, Depth: decimal.Zero}
	}
	if p, ok := b.NextOccupied(from, end); ok {
		return b.level(p)
	}
	return Level{Price: end, Depth: decimal.Zero}
}

// Snapshot returns every occupied level, best first on each side
// (bids from the highest price down, asks from the lowest price up)
func (b *Book) Snapshot() (bids, asks []Level) {
	bids = b.levels(price.MaxBuyPacked, price.MinBuyPacked)
	asks = b.levels(price.MinSellPacked, price.MaxSellPacked)
	return bids, asks
}

func (b *Book) levels(from, to price.Packed) []Level {
	var out []Level
	for p, ok := b.NextOccupied(from, to); ok; p, ok = b.NextOccupied(p+1, to) {
		out = append(out, b.level(p))
	}
	return out
}

// Orders returns the bucket at p, oldest first (a copy)
func (b *Book) Orders(p price.Packed) []*Order {
	return append([]*Order(nil), b.buckets[p]...)
}
