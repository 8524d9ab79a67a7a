// Package refdex replays client commands against one matching engine per
// market. Commands are queued raw in a mempool, applied strictly in
// admission order, journaled, and the events each one raises are archived.
package refdex

import (
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/uhyunpark/refdex/pkg/app/core/account"
	"github.com/uhyunpark/refdex/pkg/app/core/amount"
	"github.com/uhyunpark/refdex/pkg/app/core/events"
	"github.com/uhyunpark/refdex/pkg/app/core/market"
	"github.com/uhyunpark/refdex/pkg/app/core/matching"
	"github.com/uhyunpark/refdex/pkg/app/core/mempool"
	"github.com/uhyunpark/refdex/pkg/storage"
)

// Result is the outcome of one applied command.
type Result struct {
	Index  uint64 // 1-based position in the applied stream
	Type   string
	Market string

	// Set for create, cancel and continue.
	OrderID string
	Status  string
	Reason  string

	// Err is why the command was refused, e.g. an unknown order, someone
	// else's order or an unfunded withdrawal. Refused commands change nothing.
	Err    string
	Events []events.Event
}

type App struct {
	mempool  *mempool.Mempool
	registry *market.Registry
	engines  map[string]*matching.Engine
	def      string // market used when a command names none

	archive storage.Archive
	wal     storage.WAL
	logger  *zap.Logger

	applied uint64
}

type Option func(*App)

func WithArchive(a storage.Archive) Option { return func(app *App) { app.archive = a } }
func WithWAL(w storage.WAL) Option         { return func(app *App) { app.wal = w } }
func WithLogger(l *zap.Logger) Option      { return func(app *App) { app.logger = l } }

// NewApp creates an app serving def. More markets can be added later.
func NewApp(def *market.Market, opts ...Option) (*App, error) {
	a := &App{
		mempool:  mempool.NewMempool(),
		registry: market.NewRegistry(),
		engines:  make(map[string]*matching.Engine),
		archive:  storage.NewInMemoryStore(),
		wal:      storage.NewNopWAL(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.AddMarket(def); err != nil {
		return nil, err
	}
	a.def = def.Symbol
	return a, nil
}

func (a *App) AddMarket(m *market.Market) error {
	if m == nil {
		return errors.New("nil market")
	}
	if err := m.Validate(); err != nil {
		return errors.Wrapf(err, "market %s", m.Symbol)
	}
	if err := a.registry.Register(m); err != nil {
		return err
	}
	e, err := matching.New(m.Params, matching.WithLogger(a.logger.Named(m.Symbol)))
	if err != nil {
		return err
	}
	a.engines[m.Symbol] = e
	return nil
}

func (a *App) Markets() []string { return a.registry.Symbols() }

// Engine returns the engine behind symbol.
func (a *App) Engine(symbol string) (*matching.Engine, error) {
	e, ok := a.engines[symbol]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownMarket, "%s", symbol)
	}
	return e, nil
}

func (a *App) Archive() storage.Archive { return a.archive }

// PushCommand queues a raw command. Safe for concurrent use.
func (a *App) PushCommand(b []byte) mempool.CommandType { return a.mempool.PushRaw(b) }

func (a *App) Pending() int { return a.mempool.Len() }

// ApplyPending applies up to max queued commands (all if max <= 0) in
// admission order. Refused commands are reported in their Result and do
// not stop the batch; an engine fault or an archive/journal failure does.
// The failing command is dropped and the commands selected after it go
// back to the head of the queue.
func (a *App) ApplyPending(max int) ([]Result, error) {
	cmds := a.mempool.Select(max)
	out := make([]Result, 0, len(cmds))
	for i, c := range cmds {
		r, err := a.Apply(c.Bytes)
		if err != nil {
			a.mempool.Requeue(cmds[i+1:])
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Apply applies one raw command immediately, bypassing the queue.
func (a *App) Apply(raw []byte) (Result, error) {
	a.applied++
	r := Result{Index: a.applied}

	cmd, err := decodeCommand(raw)
	if err == nil {
		r.Type = cmd.Type
		r.Market = cmd.Market
		if r.Market == "" {
			r.Market = a.def
		}
		err = a.dispatch(cmd, r.Market, &r)
	}
	if err != nil {
		if isFault(err) {
			a.logger.Error("engine fault", zap.Uint64("index", r.Index), zap.Error(err))
			return r, err
		}
		r.Err = err.Error()
		a.logger.Debug("command refused", zap.Uint64("index", r.Index), zap.String("type", r.Type), zap.Error(err))
	}

	if e, ok := a.engines[r.Market]; ok {
		r.Events = e.DrainEvents()
		if err := a.archiveResult(e, r); err != nil {
			return r, err
		}
	}
	if err := a.wal.Append(string(raw)); err != nil {
		return r, err
	}
	return r, nil
}

// isFault separates broken invariants and storage failures from commands
// that were merely refused.
func isFault(err error) bool {
	if errors.IsAssertionFailure(err) {
		return true
	}
	return !errors.IsAny(err,
		ErrBadCommand, ErrUnknownMarket,
		matching.ErrOrderExists, matching.ErrOrderNotFound, matching.ErrNotOwner,
		account.ErrNegativeBalance, account.ErrInvalidAmount, account.ErrInsufficientFunds,
		account.ErrApprovalNotReset, account.ErrNothingApproved,
	)
}

func (a *App) dispatch(cmd Command, symbol string, r *Result) error {
	e, err := a.Engine(symbol)
	if err != nil {
		return err
	}
	m, err := a.registry.Get(symbol)
	if err != nil {
		return err
	}
	client, err := cmd.client()
	if err != nil {
		return err
	}

	switch cmd.Type {
	case "create", "cancel", "continue":
		r.OrderID = cmd.OrderID
		if err := a.applyOrderCommand(e, m, client, cmd); err != nil {
			return err
		}
		o, err := e.GetOrder(cmd.OrderID)
		if err != nil {
			return err
		}
		r.Status, r.Reason = o.Status.String(), o.ReasonCode.String()
		return nil
	case "fund":
		return a.fund(e.Ledger(), m, client, cmd)
	case "approve", "transferFrom", "transfer", "deposit", "withdraw":
		return a.applyLedgerCommand(e.Ledger(), m, client, cmd)
	}
	return errors.Wrapf(ErrBadCommand, "unknown command type %q", cmd.Type)
}

func (a *App) applyOrderCommand(e *matching.Engine, m *market.Market, client common.Address, cmd Command) error {
	if cmd.OrderID == "" {
		return errors.Wrap(ErrBadCommand, "missing orderId")
	}
	switch cmd.Type {
	case "create":
		size, err := rawAmount("size", cmd.Size, m.BaseDecimals, false)
		if err != nil {
			return err
		}
		terms, err := cmd.terms()
		if err != nil {
			return err
		}
		return e.CreateOrder(client, cmd.OrderID, cmd.Price, size, terms, cmd.MaxMatches)
	case "cancel":
		return e.CancelOrder(client, cmd.OrderID)
	default:
		return e.ContinueOrder(client, cmd.OrderID, cmd.MaxMatches)
	}
}

// fund credits test balances. All fields are validated before any is applied.
func (a *App) fund(l *account.Ledger, m *market.Market, client common.Address, cmd Command) error {
	fields := []struct {
		name  string
		human string
		field account.Field
		dec   int32
	}{
		{"base", cmd.Base, account.Base, m.BaseDecimals},
		{"quote", cmd.Quote, account.Quote, amount.QuoteDecimals},
		{"rwrd", cmd.Rwrd, account.Rwrd, amount.RwrdDecimals},
		{"ownBase", cmd.OwnBase, account.OwnBase, m.BaseDecimals},
		{"ownQuote", cmd.OwnQuote, account.OwnQuote, amount.QuoteDecimals},
		{"ownRwrd", cmd.OwnRwrd, account.OwnRwrd, amount.RwrdDecimals},
	}
	var legs []account.Leg
	for _, f := range fields {
		raw, err := rawAmount(f.name, f.human, f.dec, true)
		if err != nil {
			return err
		}
		if raw.IsPositive() {
			legs = append(legs, account.Leg{Field: f.field, Client: client, Delta: raw})
		}
	}
	return l.Apply(legs...)
}

func (a *App) applyLedgerCommand(l *account.Ledger, m *market.Market, client common.Address, cmd Command) error {
	switch cmd.Type {
	case "deposit", "withdraw":
		amt, err := rawAmount("amount", cmd.Amount, amount.QuoteDecimals, false)
		if err != nil {
			return err
		}
		if cmd.Type == "deposit" {
			return l.DepositQuote(client, amt)
		}
		return l.WithdrawQuote(client, amt)
	}

	asset, err := cmd.asset()
	if err != nil {
		return err
	}
	dec := int32(amount.RwrdDecimals)
	if asset == AssetBase {
		dec = m.BaseDecimals
	}
	if cmd.Type == "transferFrom" {
		var moved decimal.Decimal
		if asset == AssetBase {
			moved, err = l.TransferFromBase(client)
		} else {
			moved, err = l.TransferFromRwrd(client)
		}
		if err == nil {
			a.logger.Debug("transferred from own address", zap.String("asset", asset), zap.Stringer("raw", moved))
		}
		return err
	}

	amt, err := rawAmount("amount", cmd.Amount, dec, false)
	if err != nil {
		return err
	}
	switch {
	case cmd.Type == "approve" && asset == AssetBase:
		return l.ApproveBase(client, amt)
	case cmd.Type == "approve":
		return l.ApproveRwrd(client, amt)
	case asset == AssetBase:
		return l.TransferBase(client, amt)
	default:
		return l.TransferRwrd(client, amt)
	}
}

// archiveResult stores the command's events and a snapshot of every order
// they touched.
func (a *App) archiveResult(e *matching.Engine, r Result) error {
	if _, err := a.archive.AppendEvents(r.Market, r.Events); err != nil {
		return errors.Wrap(err, "archive events")
	}
	touched := make(map[string]struct{}, len(r.Events)+1)
	if r.OrderID != "" && r.Err == "" {
		touched[r.OrderID] = struct{}{}
	}
	for _, ev := range r.Events {
		touched[ev.OrderID] = struct{}{}
	}
	ids := make([]string, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		o, err := e.GetOrder(id)
		if err != nil {
			return errors.WithAssertionFailure(err)
		}
		if err := a.archive.SaveOrder(r.Market, o); err != nil {
			return errors.Wrap(err, "archive order")
		}
	}
	return nil
}

// Close flushes the journal and the archive.
func (a *App) Close() error {
	return errors.CombineErrors(a.wal.Close(), a.archive.Close())
}
