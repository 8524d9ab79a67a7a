// Command refdex replays order commands against the matching engine and
// reports outcomes, the final book and a state hash.
//
//	refdex -scenario trades.jsonl
//	refdex -gen 10000 -seed 42
//	refdex -feed 5s -seed 42
package main

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/uhyunpark/refdex/params"
	"github.com/uhyunpark/refdex/pkg/app/core/market"
	"github.com/uhyunpark/refdex/pkg/app/refdex"
	"github.com/uhyunpark/refdex/pkg/storage"
	"github.com/uhyunpark/refdex/pkg/util"
)

func main() {
	envPath := flag.String("env", "", ".env file (default: .env in the working directory)")
	scenario := flag.String("scenario", "", "JSON-lines command file to replay")
	gen := flag.Int("gen", 0, "number of generated commands to replay")
	feed := flag.Duration("feed", 0, "stream generated commands for this long")
	seed := flag.Int64("seed", 1, "generator seed")
	clients := flag.Int("clients", 8, "generated clients")
	verbose := flag.Bool("v", false, "log every command result")
	flag.Parse()

	cfg, err := params.LoadFromEnv(*envPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var logger *zap.Logger
	if cfg.Runner.LogFile != "" {
		logger, err = util.NewLoggerWithFile(cfg.Runner.LogFile, cfg.Runner.LogLevel)
	} else {
		logger, err = util.NewLogger(cfg.Runner.LogLevel)
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger, *scenario, *gen, *feed, *seed, *clients, *verbose); err != nil {
		os.Exit(fail(logger, err))
	}
}

// fail logs err and flushes the logger, since os.Exit skips deferred calls.
func fail(logger *zap.Logger, err error) int {
	logger.Sugar().Errorw("replay_failed", "error", err)
	_ = logger.Sync()
	return 1
}

func run(cfg params.Config, logger *zap.Logger, scenario string, gen int, feed time.Duration, seed int64, clients int, verbose bool) error {
	sugar := logger.Sugar()

	m, err := cfg.NewMarket()
	if err != nil {
		return err
	}

	opts := []refdex.Option{refdex.WithLogger(logger)}
	if cfg.Runner.JournalPath != "" {
		wal, err := storage.NewFileWAL(cfg.Runner.JournalPath)
		if err != nil {
			return err
		}
		opts = append(opts, refdex.WithWAL(wal))
	}
	if cfg.Runner.EventStorePath != "" {
		ps, err := storage.NewPebbleStore(cfg.Runner.EventStorePath)
		if err != nil {
			return err
		}
		opts = append(opts, refdex.WithArchive(ps))
	}
	app, err := refdex.NewApp(m, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			sugar.Warnw("close_failed", "error", err)
		}
	}()
	sugar.Infow("market_ready",
		"symbol", m.Symbol,
		"base_decimals", m.BaseDecimals,
		"fees_per_10k", m.Params.FeesPer10K,
		"price_range_adjustment", m.Params.PriceRangeAdjustment,
	)

	start := time.Now()
	var applied int
	apply := func() error {
		rs, err := app.ApplyPending(cfg.Runner.MaxBatch)
		applied += len(rs)
		if verbose {
			for _, r := range rs {
				sugar.Infow("command_applied",
					"index", r.Index, "type", r.Type, "order_id", r.OrderID,
					"status", r.Status, "reason", r.Reason, "error", r.Err, "events", len(r.Events))
			}
		}
		return err
	}
	drain := func() error {
		for app.Pending() > 0 {
			if err := apply(); err != nil {
				return err
			}
		}
		return nil
	}

	switch {
	case scenario != "":
		n, err := loadScenario(app, scenario)
		if err != nil {
			return err
		}
		sugar.Infow("scenario_loaded", "path", scenario, "commands", n)
		if err := drain(); err != nil {
			return err
		}

	case gen > 0:
		g := refdex.NewGenerator(seed, clients, m.Symbol)
		for _, c := range g.GenerateBatch(gen) {
			app.PushCommand(c)
		}
		if err := drain(); err != nil {
			return err
		}

	case feed > 0:
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, feed)
		defer cancel()

		g := refdex.NewGenerator(seed, clients, m.Symbol)
		cancelFeeder, done := refdex.StartFeeder(ctx, app, g, refdex.DefaultFeederConfig(), logger)
		defer cancelFeeder()

		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
	loop:
		for {
			select {
			case <-done:
				break loop
			case <-ticker.C:
				if err := apply(); err != nil {
					return err
				}
			}
		}
		if err := drain(); err != nil {
			return err
		}

	default:
		return errors.New("nothing to do: pass -scenario, -gen or -feed")
	}

	report(app, m, logger)
	sugar.Infow("replay_done",
		"commands", applied,
		"elapsed", time.Since(start).Round(time.Millisecond),
		"state_hash", app.StateHash().Hex(),
	)
	return nil
}

// loadScenario queues every non-blank line of path that is not a # comment.
func loadScenario(app *refdex.App, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrapf(err, "open scenario %s", path)
	}
	defer f.Close()

	n := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		app.PushCommand(line)
		n++
	}
	return n, errors.Wrapf(sc.Err(), "read scenario %s", path)
}

func report(app *refdex.App, m *market.Market, logger *zap.Logger) {
	sugar := logger.Sugar()
	e, err := app.Engine(m.Symbol)
	if err != nil {
		return
	}
	bids, asks := e.GetBookSnapshot()
	for _, lvl := range bids {
		sugar.Infow("book_level", "side", "bid", "price", e.Codec().DecodeText(lvl.Price), "depth", lvl.Depth.String(), "orders", lvl.Count)
	}
	for _, lvl := range asks {
		sugar.Infow("book_level", "side", "ask", "price", e.Codec().DecodeText(lvl.Price), "depth", lvl.Depth.String(), "orders", lvl.Count)
	}
	for _, c := range e.Ledger().Clients() {
		b := e.GetBalances(c).Decoded(m.BaseDecimals)
		sugar.Infow("client_balances",
			"client", c.Hex(),
			"base", b.Base.String(),
			"quote", b.Quote.String(),
			"rwrd", b.Rwrd.String(),
		)
	}
}
