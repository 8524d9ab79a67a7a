package refdex

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/refdex/pkg/app/core/amount"
	"github.com/uhyunpark/refdex/pkg/app/core/orderbook"
)

var (
	ErrBadCommand    = errors.New("bad command")
	ErrUnknownMarket = errors.New("unknown market")
)

// Command is the JSON form of one client request. Amounts are human
// decimals: size and base-asset amounts at the market's base decimals,
// quote and reward amounts at 18.
//
//	{"type":"create","client":"0x..","orderId":"R..","price":"Buy @ 1.00","size":"1.5","terms":"GTCNoGasTopup","maxMatches":3}
//	{"type":"cancel","client":"0x..","orderId":"R.."}
//	{"type":"continue","client":"0x..","orderId":"R..","maxMatches":3}
//	{"type":"fund","client":"0x..","base":"10","quote":"10","rwrd":"1"}
//	{"type":"approve","client":"0x..","asset":"base","amount":"5"}
//	{"type":"transferFrom","client":"0x..","asset":"rwrd"}
//	{"type":"transfer","client":"0x..","asset":"base","amount":"5"}
//	{"type":"deposit","client":"0x..","amount":"5"}
//	{"type":"withdraw","client":"0x..","amount":"5"}
type Command struct {
	Type   string `json:"type"`
	Market string `json:"market,omitempty"`
	Client string `json:"client"`

	OrderID    string `json:"orderId,omitempty"`
	Price      string `json:"price,omitempty"`
	Size       string `json:"size,omitempty"`
	Terms      string `json:"terms,omitempty"`
	MaxMatches uint32 `json:"maxMatches,omitempty"`

	Asset  string `json:"asset,omitempty"`
	Amount string `json:"amount,omitempty"`

	// fund only
	Base     string `json:"base,omitempty"`
	Quote    string `json:"quote,omitempty"`
	Rwrd     string `json:"rwrd,omitempty"`
	OwnBase  string `json:"ownBase,omitempty"`
	OwnQuote string `json:"ownQuote,omitempty"`
	OwnRwrd  string `json:"ownRwrd,omitempty"`
}

// Asset names accepted by approve, transferFrom and transfer.
const (
	AssetBase = "base"
	AssetRwrd = "rwrd"
)

func decodeCommand(b []byte) (Command, error) {
	var c Command
	if err := json.Unmarshal(b, &c); err != nil {
		return c, errors.Mark(errors.Wrap(err, "decode command"), ErrBadCommand)
	}
	return c, nil
}

// Marshal renders c as a single JSON line.
func (c Command) Marshal() []byte {
	b, _ := json.Marshal(c)
	return b
}

func (c Command) client() (common.Address, error) {
	if !common.IsHexAddress(c.Client) {
		return common.Address{}, errors.Wrapf(ErrBadCommand, "client %q is not an address", c.Client)
	}
	return common.HexToAddress(c.Client), nil
}

func (c Command) terms() (orderbook.Terms, error) {
	if c.Terms == "" {
		return orderbook.GTCNoGasTopup, nil
	}
	t, err := orderbook.ParseTerms(c.Terms)
	if err != nil {
		return 0, errors.Mark(err, ErrBadCommand)
	}
	return t, nil
}

func (c Command) asset() (string, error) {
	switch a := strings.ToLower(c.Asset); a {
	case AssetBase, AssetRwrd:
		return a, nil
	}
	return "", errors.Wrapf(ErrBadCommand, "asset %q", c.Asset)
}

// rawAmount validates a human amount and scales it to raw units. An empty
// field is zero when optional.
func rawAmount(field, human string, decimals int32, optional bool) (decimal.Decimal, error) {
	if optional && strings.TrimSpace(human) == "" {
		return decimal.Zero, nil
	}
	raw, err := amount.Validate(human, decimals)
	if err != nil {
		return decimal.Zero, errors.Mark(errors.Wrapf(err, "%s", field), ErrBadCommand)
	}
	return raw, nil
}
