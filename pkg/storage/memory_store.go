package storage

import (
	"sync"

	"github.com/uhyunpark/refdex/pkg/app/core/events"
	"github.com/uhyunpark/refdex/pkg/app/core/orderbook"
)

// InMemoryStore is the Archive used when no store path is configured.
type InMemoryStore struct {
	mu     sync.Mutex
	events map[string][]EventRecord
	orders map[string]map[string]*orderbook.Order
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		events: make(map[string][]EventRecord),
		orders: make(map[string]map[string]*orderbook.Order),
	}
}

func (s *InMemoryStore) AppendEvents(symbol string, evs []events.Event) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.events[symbol]
	for _, ev := range evs {
		recs = append(recs, EventRecord{Seq: uint64(len(recs)) + 1, Event: ev})
	}
	s.events[symbol] = recs
	return uint64(len(recs)), nil
}

func (s *InMemoryStore) Events(symbol string, after uint64, limit int) ([]EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.events[symbol]
	if after >= uint64(len(recs)) {
		return nil, nil
	}
	recs = recs[after:]
	if limit > 0 && limit < len(recs) {
		recs = recs[:limit]
	}
	return append([]EventRecord(nil), recs...), nil
}

func (s *InMemoryStore) SaveOrder(symbol string, o *orderbook.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.orders[symbol]
	if !ok {
		m = make(map[string]*orderbook.Order)
		s.orders[symbol] = m
	}
	m[o.ID] = o.Clone()
	return nil
}

func (s *InMemoryStore) LoadOrder(symbol, id string) (*orderbook.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[symbol][id]
	if !ok {
		return nil, nil
	}
	return o.Clone(), nil
}

func (s *InMemoryStore) Close() error { return nil }

var _ Archive = (*InMemoryStore)(nil)
