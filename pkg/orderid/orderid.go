// Package orderid generates and converts 128-bit client order ids.
//
// An encoded id is the client's seconds since the epoch in the top 32 bits
// and 96 bits of randomness below, so one client's ids sort by creation
// time. The friendly form is "R" followed by 25 zero-padded base36 digits,
// which keeps that ordering under string comparison.
package orderid

import (
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/uhyunpark/refdex/pkg/util"
)

const (
	prefix       = "R"
	friendlyLen  = 25 // base36 digits for 128 bits
	randomDigits = 24 // hex digits of randomness kept
	timeBits     = 96
)

var (
	ErrBadFriendlyID = errors.New("bad friendly order id")

	maxEncoded = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
)

// Compute packs t and the low 96 bits of randomHex into an encoded id.
// Shorter randomHex is zero-extended on the left.
func Compute(t time.Time, randomHex string) (*big.Int, error) {
	if len(randomHex) > randomDigits {
		randomHex = randomHex[len(randomHex)-randomDigits:]
	}
	if _, err := hex.DecodeString(padLeft(randomHex, randomDigits)); err != nil {
		return nil, errors.Wrapf(err, "random part %q", randomHex)
	}
	secs := new(big.Int).SetUint64(uint64(uint32(t.Unix())))
	rnd, _ := new(big.Int).SetString(padLeft(randomHex, randomDigits), 16)
	return secs.Lsh(secs, timeBits).Or(secs, rnd), nil
}

// Decode renders an encoded id in friendly form.
func Decode(raw *big.Int) string {
	return prefix + padLeft(raw.Text(36), friendlyLen)
}

// Encode is the inverse of Decode.
func Encode(friendly string) (*big.Int, error) {
	digits, ok := strings.CutPrefix(friendly, prefix)
	if !ok || digits == "" {
		return nil, errors.Wrapf(ErrBadFriendlyID, "%q", friendly)
	}
	n, ok := new(big.Int).SetString(strings.ToLower(digits), 36)
	if !ok || n.Sign() < 0 || n.Cmp(maxEncoded) > 0 {
		return nil, errors.Wrapf(ErrBadFriendlyID, "%q", friendly)
	}
	return n, nil
}

// ExtractTime recovers the creation time, to the second, of a friendly id.
func ExtractTime(friendly string) (time.Time, error) {
	n, err := Encode(friendly)
	if err != nil {
		return time.Time{}, err
	}
	secs := new(big.Int).Rsh(n, timeBits)
	return time.Unix(secs.Int64(), 0), nil
}

// Invalid is an encoded id no generator ever produces.
func Invalid() *big.Int { return new(big.Int) }

// Generator mints friendly ids from a clock and random uuids.
type Generator struct {
	clock util.Clock
	rand  func() uuid.UUID
}

func NewGenerator(clock util.Clock) *Generator {
	if clock == nil {
		clock = util.RealClock{}
	}
	return &Generator{clock: clock, rand: uuid.New}
}

// NewDeterministicGenerator draws its randomness from seed-derived uuids so
// replays produce the same ids.
func NewDeterministicGenerator(clock util.Clock, seed string) *Generator {
	g := NewGenerator(clock)
	var n uint64
	g.rand = func() uuid.UUID {
		n++
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed+"/"+strconv.FormatUint(n, 10)))
	}
	return g
}

// NextEncoded returns a fresh encoded id.
func (g *Generator) NextEncoded() *big.Int {
	u := g.rand()
	id, _ := Compute(g.clock.Now(), hex.EncodeToString(u[:]))
	return id
}

// Next returns a fresh friendly id.
func (g *Generator) Next() string {
	return Decode(g.NextEncoded())
}

func padLeft(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return strings.Repeat("0", n-len(s)) + s
}
