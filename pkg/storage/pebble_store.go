package storage

import (
	"encoding/binary"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"

	"github.com/uhyunpark/refdex/pkg/app/core/events"
	"github.com/uhyunpark/refdex/pkg/app/core/orderbook"
)

// EventRecord is an archived event with its per-market sequence number.
type EventRecord struct {
	Seq   uint64
	Event events.Event
}

// Archive keeps drained events and order snapshots for observers. The
// engine never reads its state back from an archive.
type Archive interface {
	// AppendEvents stores evs after the market's last event and returns the
	// new last sequence number.
	AppendEvents(symbol string, evs []events.Event) (uint64, error)
	// Events returns up to limit events with seq > after, oldest first.
	// limit <= 0 means no limit.
	Events(symbol string, after uint64, limit int) ([]EventRecord, error)
	SaveOrder(symbol string, o *orderbook.Order) error
	// LoadOrder returns nil if the order was never saved.
	LoadOrder(symbol, id string) (*orderbook.Order, error)
	Close() error
}

type PebbleStore struct {
	db *pebble.DB

	mu   sync.Mutex
	last map[string]uint64
}

func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "open pebble at %s", path)
	}
	return &PebbleStore{db: db, last: make(map[string]uint64)}, nil
}

func (s *PebbleStore) Close() error { return s.db.Close() }

func (s *PebbleStore) lastSeq(symbol string) (uint64, error) {
	if seq, ok := s.last[symbol]; ok {
		return seq, nil
	}
	val, closer, err := s.db.Get(eventSeqKey(symbol))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "failed to get event seq")
	}
	defer closer.Close()
	if len(val) != 8 {
		return 0, errors.AssertionFailedf("event seq for %s has %d bytes", symbol, len(val))
	}
	return binary.BigEndian.Uint64(val), nil
}

func (s *PebbleStore) AppendEvents(symbol string, evs []events.Event) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, err := s.lastSeq(symbol)
	if err != nil {
		return 0, err
	}
	if len(evs) == 0 {
		return seq, nil
	}

	b := s.db.NewBatch()
	defer b.Close()
	for _, ev := range evs {
		seq++
		val, err := encodeGob(EventRecord{Seq: seq, Event: ev})
		if err != nil {
			return 0, errors.Wrap(err, "encode event")
		}
		if err := b.Set(eventKey(symbol, seq), val, nil); err != nil {
			return 0, err
		}
	}
	if err := b.Set(eventSeqKey(symbol), seqBytes(seq), nil); err != nil {
		return 0, err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return 0, errors.Wrap(err, "failed to save events")
	}
	s.last[symbol] = seq
	return seq, nil
}

func (s *PebbleStore) Events(symbol string, after uint64, limit int) ([]EventRecord, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: eventKey(symbol, after+1),
		UpperBound: keyUpperBound(eventPrefix(symbol)),
	})
	if err != nil {
		return nil, errors.Wrap(err, "event iterator")
	}
	defer iter.Close()

	var out []EventRecord
	for iter.First(); iter.Valid() && (limit <= 0 || len(out) < limit); iter.Next() {
		var rec EventRecord
		if err := decodeGob(iter.Value(), &rec); err != nil {
			return nil, errors.Wrapf(err, "decode event %d", seqFromKey(iter.Key()))
		}
		out = append(out, rec)
	}
	return out, iter.Error()
}

// SaveOrder persists an order snapshot to Pebble
func (s *PebbleStore) SaveOrder(symbol string, o *orderbook.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return errors.Wrap(err, "failed to marshal order")
	}
	if err := s.db.Set(orderKey(symbol, o.ID), data, pebble.NoSync); err != nil {
		return errors.Wrap(err, "failed to save order")
	}
	return nil
}

// LoadOrder loads an order snapshot from Pebble
// Returns nil if the order doesn't exist
func (s *PebbleStore) LoadOrder(symbol, id string) (*orderbook.Order, error) {
	data, closer, err := s.db.Get(orderKey(symbol, id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get order")
	}
	defer closer.Close()

	var o orderbook.Order
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal order")
	}
	return &o, nil
}

// OrderIDs lists saved order ids of a market in key order.
func (s *PebbleStore) OrderIDs(symbol string) ([]string, error) {
	prefix := orderPrefix(symbol)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, errors.Wrap(err, "order iterator")
	}
	defer iter.Close()

	var ids []string
	for iter.First(); iter.Valid(); iter.Next() {
		ids = append(ids, string(iter.Key()[len(prefix):]))
	}
	return ids, iter.Error()
}

var _ Archive = (*PebbleStore)(nil)
