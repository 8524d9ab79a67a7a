package params

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/refdex/pkg/app/core/market"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, market.DefaultParams, cfg.Market.Params)
	m, err := cfg.NewMarket()
	require.NoError(t, err)
	assert.Equal(t, "WETH-DAI", m.Symbol)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("FEES_PER_10K", "10")
	t.Setenv("ETH_RWRD_RATE", "0")
	t.Setenv("BASE_MIN_REMAINING_SIZE", "5e15")
	t.Setenv("PRICE_RANGE_ADJUSTMENT", "-2")
	t.Setenv("MARKET_SYMBOL", "ABC-DAI")
	t.Setenv("BASE_DECIMALS", "6")

	cfg, err := LoadFromEnv(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	p := cfg.Market.Params
	assert.Equal(t, int64(10), p.FeesPer10K)
	assert.Equal(t, int64(0), p.EthRwrdRate)
	assert.True(t, p.BaseMinRemainingSize.Equal(decimal.New(5, 15)))
	assert.Equal(t, -2, p.PriceRangeAdjustment)
	assert.Equal(t, "ABC-DAI", cfg.Market.Symbol)
	assert.Equal(t, int32(6), cfg.Market.BaseDecimals)
	assert.True(t, p.BaseMaxSize.Equal(market.DefaultParams.BaseMaxSize), "unset keys keep defaults")
}

func TestLoadFromEnv_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("JOURNAL_PATH=/tmp/refdex.wal\n"), 0o644))
	t.Setenv("JOURNAL_PATH", "")
	os.Unsetenv("JOURNAL_PATH")

	cfg, err := LoadFromEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/refdex.wal", cfg.Runner.JournalPath)
}

func TestLoadFromEnv_BadValue(t *testing.T) {
	t.Setenv("FEES_PER_10K", "five")
	_, err := LoadFromEnv(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)

	t.Setenv("FEES_PER_10K", "")
	t.Setenv("QUOTE_MAX_SIZE", "lots")
	_, err = LoadFromEnv(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
