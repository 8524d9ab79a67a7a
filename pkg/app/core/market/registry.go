package market

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrMarketNotFound is returned by lookups for unregistered symbols
var ErrMarketNotFound = errors.New("market not found")

// Registry manages multiple markets in a thread-safe manner
// Each registered market backs exactly one engine instance
type Registry struct {
	mu      sync.RWMutex
	markets map[string]*Market // symbol -> market
}

// NewRegistry creates an empty market registry
func NewRegistry() *Registry {
	return &Registry{
		markets: make(map[string]*Market),
	}
}

// Register adds a new market to the registry
// Returns error if market with same symbol already exists
func (r *Registry) Register(m *Market) error {
	if m == nil {
		return errors.New("cannot register nil market")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.markets[m.Symbol]; exists {
		return errors.Newf("market %s already registered", m.Symbol)
	}

	r.markets[m.Symbol] = m
	return nil
}

// Get retrieves a market by symbol
func (r *Registry) Get(symbol string) (*Market, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, exists := r.markets[symbol]
	if !exists {
		return nil, errors.Wrapf(ErrMarketNotFound, "%s", symbol)
	}

	return m, nil
}

// Symbols returns all registered symbols, sorted
func (r *Registry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.markets))
	for sym := range r.markets {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Count returns the total number of registered markets
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.markets)
}
