package refdex

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/refdex/pkg/app/core/events"
	"github.com/uhyunpark/refdex/pkg/app/core/market"
	"github.com/uhyunpark/refdex/pkg/app/core/mempool"
	"github.com/uhyunpark/refdex/pkg/storage"
)

const (
	alice = "0x00000000000000000000000000000000000a11ce"
	bob   = "0x0000000000000000000000000000000000000b0b"
)

func newTestApp(t *testing.T, opts ...Option) *App {
	t.Helper()
	m, err := market.NewMarket("WETH-DAI", "WETH", "DAI", 18, market.DefaultParams)
	require.NoError(t, err)
	a, err := NewApp(m, opts...)
	require.NoError(t, err)
	return a
}

func applyAll(t *testing.T, a *App, cmds ...string) []Result {
	t.Helper()
	for _, c := range cmds {
		a.PushCommand([]byte(c))
	}
	rs, err := a.ApplyPending(0)
	require.NoError(t, err)
	require.Len(t, rs, len(cmds))
	return rs
}

func TestApp_TradeScenario(t *testing.T) {
	a := newTestApp(t)
	rs := applyAll(t, a,
		`{"type":"fund","client":"`+alice+`","quote":"10"}`,
		`{"type":"fund","client":"`+bob+`","base":"10"}`,
		`{"type":"create","client":"`+alice+`","orderId":"R1","price":"Buy @ 1.00","size":"2","terms":"GTCNoGasTopup","maxMatches":3}`,
		`{"type":"create","client":"`+bob+`","orderId":"R2","price":"Sell @ 0.990","size":"1","terms":"ImmediateOrCancel","maxMatches":3}`,
	)
	for _, r := range rs {
		assert.Empty(t, r.Err, "command %d", r.Index)
	}
	assert.Equal(t, "Open", rs[2].Status)
	require.Len(t, rs[2].Events, 1)
	assert.Equal(t, events.Add, rs[2].Events[0].Type)

	assert.Equal(t, "Done", rs[3].Status)
	assert.Equal(t, "None", rs[3].Reason)
	require.Len(t, rs[3].Events, 1)
	assert.Equal(t, events.PartialFill, rs[3].Events[0].Type)
	assert.Equal(t, "R1", rs[3].Events[0].OrderID)

	e, err := a.Engine("WETH-DAI")
	require.NoError(t, err)
	b := e.GetBalances(common.HexToAddress(bob))
	assert.True(t, b.Quote.Equal(decimal.RequireFromString("999500000000000000")), b.Quote.String())

	// both orders archived, maker in its post-fill state
	o, err := a.Archive().LoadOrder("WETH-DAI", "R1")
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.True(t, o.ExecutedBase.Equal(decimal.New(1, 18)))
	recs, err := a.Archive().Events("WETH-DAI", 0, 0)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestApp_RefusedCommands(t *testing.T) {
	a := newTestApp(t)
	rs := applyAll(t, a,
		`not json`,
		`{"type":"explode","client":"`+alice+`"}`,
		`{"type":"fund","client":"nobody","base":"1"}`,
		`{"type":"fund","client":"`+alice+`","quote":"1.0000000000000000001"}`,
		`{"type":"cancel","client":"`+alice+`","orderId":"missing"}`,
		`{"type":"withdraw","client":"`+alice+`","amount":"1"}`,
		`{"type":"create","market":"NOPE","client":"`+alice+`","orderId":"R1","price":"Buy @ 1","size":"1"}`,
		`{"type":"create","client":"`+alice+`","orderId":"R1","price":"Buy @ 1","size":"1","terms":"FillOrKill"}`,
		`{"type":"transferFrom","client":"`+alice+`","asset":"base"}`,
		`{"type":"approve","client":"`+alice+`","asset":"gold","amount":"1"}`,
	)
	for _, r := range rs {
		assert.NotEmpty(t, r.Err, "command %d (%s) should be refused", r.Index, r.Type)
	}
	assert.Contains(t, rs[3].Err, "Amount has too many decimal places")
	assert.Equal(t, uint64(10), rs[9].Index)

	e, _ := a.Engine("WETH-DAI")
	assert.Empty(t, e.OrderIDs())
}

func TestApp_RejectionIsNotRefusal(t *testing.T) {
	a := newTestApp(t)
	rs := applyAll(t, a,
		`{"type":"create","client":"`+alice+`","orderId":"R1","price":"Buy @ 1.00","size":"1"}`,
		`{"type":"create","client":"`+alice+`","orderId":"R1","price":"Buy @ 1.00","size":"1"}`,
		`{"type":"cancel","client":"`+bob+`","orderId":"R1"}`,
	)
	assert.Empty(t, rs[0].Err)
	assert.Equal(t, "Rejected", rs[0].Status)
	assert.Equal(t, "InsufficientFunds", rs[0].Reason)
	assert.Contains(t, rs[1].Err, "order already exists")
	assert.Contains(t, rs[2].Err, "not your order")
}

func TestApp_LedgerCommands(t *testing.T) {
	a := newTestApp(t)
	rs := applyAll(t, a,
		`{"type":"fund","client":"`+alice+`","ownBase":"5","ownQuote":"5","ownRwrd":"5"}`,
		`{"type":"approve","client":"`+alice+`","asset":"base","amount":"2"}`,
		`{"type":"transferFrom","client":"`+alice+`","asset":"base"}`,
		`{"type":"approve","client":"`+alice+`","asset":"rwrd","amount":"3"}`,
		`{"type":"transferFrom","client":"`+alice+`","asset":"rwrd"}`,
		`{"type":"transfer","client":"`+alice+`","asset":"rwrd","amount":"1"}`,
		`{"type":"deposit","client":"`+alice+`","amount":"4"}`,
		`{"type":"withdraw","client":"`+alice+`","amount":"1.5"}`,
	)
	for _, r := range rs {
		require.Empty(t, r.Err, "command %d (%s)", r.Index, r.Type)
	}
	e, _ := a.Engine("WETH-DAI")
	b := e.GetBalances(common.HexToAddress(alice)).Decoded(18)
	assert.Equal(t, "2", b.Base.String())
	assert.Equal(t, "3", b.OwnBase.String())
	assert.Equal(t, "2", b.Rwrd.String())
	assert.Equal(t, "3", b.OwnRwrd.String())
	assert.Equal(t, "2.5", b.Quote.String())
	assert.Equal(t, "2.5", b.OwnQuote.String())
	assert.True(t, b.ApprovedBase.IsZero())
}

func TestApp_MultipleMarkets(t *testing.T) {
	a := newTestApp(t)
	p := market.DefaultParams
	p.PriceRangeAdjustment = -3
	m, err := market.NewMarket("SHIB-DAI", "SHIB", "DAI", 18, p)
	require.NoError(t, err)
	require.NoError(t, a.AddMarket(m))
	assert.Error(t, a.AddMarket(m))
	assert.Equal(t, []string{"SHIB-DAI", "WETH-DAI"}, a.Markets())

	rs := applyAll(t, a,
		`{"type":"fund","market":"SHIB-DAI","client":"`+alice+`","quote":"1"}`,
		`{"type":"create","market":"SHIB-DAI","client":"`+alice+`","orderId":"R1","price":"Buy @ 0.0000000500","size":"1000000"}`,
	)
	assert.Equal(t, "Open", rs[1].Status)

	weth, _ := a.Engine("WETH-DAI")
	assert.True(t, weth.GetBalances(common.HexToAddress(alice)).Quote.IsZero(), "ledgers are per market")
}

func TestApp_StateHashIsDeterministic(t *testing.T) {
	run := func() (*App, []Result) {
		a := newTestApp(t)
		gen := NewGenerator(7, 6, "WETH-DAI")
		for _, c := range gen.GenerateBatch(400) {
			a.PushCommand(c)
		}
		rs, err := a.ApplyPending(0)
		require.NoError(t, err)
		return a, rs
	}
	a1, rs1 := run()
	a2, rs2 := run()
	assert.Equal(t, a1.StateHash(), a2.StateHash())
	assert.Equal(t, len(rs1), len(rs2))

	var fills int
	for _, r := range rs1 {
		for _, ev := range r.Events {
			if ev.Type == events.CompleteFill || ev.Type == events.PartialFill {
				fills++
			}
		}
	}
	assert.Positive(t, fills, "a generated stream should trade")

	a3 := newTestApp(t)
	assert.NotEqual(t, a1.StateHash(), a3.StateHash())
}

func TestApp_JournalReplaysToSameState(t *testing.T) {
	dir := t.TempDir()
	journal := filepath.Join(dir, "journal.wal")
	wal, err := storage.NewFileWAL(journal)
	require.NoError(t, err)
	ps, err := storage.NewPebbleStore(filepath.Join(dir, "events"))
	require.NoError(t, err)

	a := newTestApp(t, WithWAL(wal), WithArchive(ps))
	gen := NewGenerator(11, 4, "WETH-DAI")
	for _, c := range gen.GenerateBatch(150) {
		a.PushCommand(c)
	}
	_, err = a.ApplyPending(50)
	require.NoError(t, err)
	_, err = a.ApplyPending(0)
	require.NoError(t, err)
	want := a.StateHash()
	require.NoError(t, a.Close())

	b, err := os.ReadFile(journal)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 150+4)

	replay := newTestApp(t)
	for _, l := range lines {
		_, err := replay.Apply([]byte(l))
		require.NoError(t, err)
	}
	assert.Equal(t, want, replay.StateHash())
}

// failingArchive refuses the nth AppendEvents call.
type failingArchive struct {
	storage.Archive
	calls, failAt int
}

func (f *failingArchive) AppendEvents(symbol string, evs []events.Event) (uint64, error) {
	f.calls++
	if f.calls == f.failAt {
		return 0, errors.New("disk full")
	}
	return f.Archive.AppendEvents(symbol, evs)
}

func TestApp_FaultRequeuesRemainingCommands(t *testing.T) {
	a := newTestApp(t, WithArchive(&failingArchive{Archive: storage.NewInMemoryStore(), failAt: 2}))
	cmds := []string{
		`{"type":"fund","client":"` + alice + `","quote":"10"}`,
		`{"type":"deposit","client":"` + alice + `","amount":"1"}`,
		`{"type":"create","client":"` + alice + `","orderId":"R1","price":"Buy @ 1.00","size":"1"}`,
		`{"type":"cancel","client":"` + alice + `","orderId":"R1"}`,
	}
	for _, c := range cmds {
		a.PushCommand([]byte(c))
	}
	rs, err := a.ApplyPending(0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	require.Len(t, rs, 1)
	assert.Equal(t, 2, a.Pending())

	rs, err = a.ApplyPending(0)
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, "create", rs[0].Type)
	assert.Equal(t, "Open", rs[0].Status)
	assert.Equal(t, "cancel", rs[1].Type)
	assert.Equal(t, "Done", rs[1].Status)
}

func TestFeeder(t *testing.T) {
	a := newTestApp(t)
	gen := NewGenerator(3, 4, "WETH-DAI")
	cancel, done := StartFeeder(context.Background(), a, gen, FeederConfig{BatchSize: 5, Interval: time.Millisecond}, nil)
	require.Eventually(t, func() bool { return a.Pending() >= 20 }, 5*time.Second, time.Millisecond)
	cancel()
	<-done

	rs, err := a.ApplyPending(0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(rs), 20)
	assert.Equal(t, "fund", rs[0].Type)
	assert.Zero(t, a.Pending())
}

func TestPushCommandClassifies(t *testing.T) {
	a := newTestApp(t)
	assert.Equal(t, mempool.CmdCreate, a.PushCommand([]byte(`{"type":"create"}`)))
	assert.Equal(t, mempool.CmdLedger, a.PushCommand([]byte(`{"type":"deposit"}`)))
	assert.Equal(t, 2, a.Pending())
}

func TestIsFault(t *testing.T) {
	assert.False(t, isFault(errors.Wrap(ErrBadCommand, "x")))
	assert.True(t, isFault(errors.AssertionFailedf("broken")))
	assert.True(t, isFault(errors.New("disk on fire")))
}
