package params

import (
	"os"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/uhyunpark/refdex/pkg/app/core/market"
)

type Market struct {
	Symbol       string
	BaseAsset    string
	QuoteAsset   string
	BaseDecimals int32
	Params       market.Params
}

type Runner struct {
	LogLevel string
	// LogFile, when set, tees logs to this file as well as stdout.
	LogFile string
	// JournalPath, when set, appends every applied command to this file.
	JournalPath string
	// EventStorePath, when set, archives drained events in a pebble store.
	// Otherwise events are kept in memory.
	EventStorePath string
	// MaxBatch bounds how many queued commands one apply pass takes.
	MaxBatch int
}

type Config struct {
	Market Market
	Runner Runner
}

func Default() Config {
	return Config{
		Market: Market{
			Symbol:       "WETH-DAI",
			BaseAsset:    "WETH",
			QuoteAsset:   "DAI",
			BaseDecimals: 18,
			Params:       market.DefaultParams,
		},
		Runner: Runner{
			LogLevel: "info",
			MaxBatch: 1000,
		},
	}
}

// NewMarket builds the validated market this config describes.
func (c Config) NewMarket() (*market.Market, error) {
	m := c.Market
	return market.NewMarket(m.Symbol, m.BaseAsset, m.QuoteAsset, m.BaseDecimals, m.Params)
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
//
// Unlike missing keys, a key that is set but does not parse is an error.
func LoadFromEnv(envPath string) (Config, error) {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	p := &cfg.Market.Params
	decimals := []struct {
		key string
		dst *decimal.Decimal
	}{
		{"BASE_MIN_INITIAL_SIZE", &p.BaseMinInitialSize},
		{"BASE_MIN_REMAINING_SIZE", &p.BaseMinRemainingSize},
		{"BASE_MAX_SIZE", &p.BaseMaxSize},
		{"QUOTE_MIN_INITIAL_SIZE", &p.QuoteMinInitialSize},
		{"QUOTE_MAX_SIZE", &p.QuoteMaxSize},
	}
	for _, d := range decimals {
		if v := os.Getenv(d.key); v != "" {
			n, err := decimal.NewFromString(v)
			if err != nil {
				return cfg, errors.Wrapf(err, "%s", d.key)
			}
			*d.dst = n
		}
	}

	if err := envInt64("FEES_PER_10K", &p.FeesPer10K); err != nil {
		return cfg, err
	}
	if err := envInt64("ETH_RWRD_RATE", &p.EthRwrdRate); err != nil {
		return cfg, err
	}
	if v := os.Getenv("PRICE_RANGE_ADJUSTMENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, errors.Wrap(err, "PRICE_RANGE_ADJUSTMENT")
		}
		p.PriceRangeAdjustment = n
	}
	if v := os.Getenv("BASE_DECIMALS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return cfg, errors.Wrap(err, "BASE_DECIMALS")
		}
		cfg.Market.BaseDecimals = int32(n)
	}
	if v := os.Getenv("MAX_BATCH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, errors.Wrap(err, "MAX_BATCH")
		}
		cfg.Runner.MaxBatch = n
	}

	cfg.Market.Symbol = getEnv("MARKET_SYMBOL", cfg.Market.Symbol)
	cfg.Market.BaseAsset = getEnv("BASE_ASSET", cfg.Market.BaseAsset)
	cfg.Market.QuoteAsset = getEnv("QUOTE_ASSET", cfg.Market.QuoteAsset)
	cfg.Runner.LogLevel = getEnv("LOG_LEVEL", cfg.Runner.LogLevel)
	cfg.Runner.LogFile = getEnv("LOG_FILE", cfg.Runner.LogFile)
	cfg.Runner.JournalPath = getEnv("JOURNAL_PATH", cfg.Runner.JournalPath)
	cfg.Runner.EventStorePath = getEnv("EVENT_STORE_PATH", cfg.Runner.EventStorePath)

	return cfg, nil
}

func envInt64(key string, dst *int64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "%s", key)
	}
	*dst = n
	return nil
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
