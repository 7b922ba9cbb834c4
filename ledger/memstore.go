package ledger

import (
	"sync"
	"sync/atomic"
)

// snapshot is immutable once published; writers replace it wholesale
type snapshot struct {
	product Product
	history []HistoryEvent
	prices  []PriceEvent
}

// next builds the snapshot that results from committing m on top of s.
// Full slice expressions force append to copy, so older snapshots held by
// readers never see the new entries.
func (s *snapshot) next(m Mutation) *snapshot {
	n := &snapshot{product: m.Product}
	if s != nil {
		n.history = s.history[:len(s.history):len(s.history)]
		n.prices = s.prices[:len(s.prices):len(s.prices)]
	}
	n.history = append(n.history, m.History...)
	n.prices = append(n.prices, m.Prices...)
	return n
}

func (s *snapshot) record() Record {
	return Record{Product: s.product, History: s.history, Prices: s.prices}
}

type slot struct {
	mu      sync.Mutex
	current atomic.Pointer[snapshot]
}

// MemoryStore is an in-process Store. Writers to one product serialize on
// that product's slot; writers to different products never contend. Readers
// load the published snapshot without taking any lock held by writers.
type MemoryStore struct {
	mu    sync.RWMutex // guards slots; held exclusively only while allocating
	slots map[uint64]*slot
	count atomic.Uint64
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[uint64]*slot)}
}

func (s *MemoryStore) Create(build func(id uint64) (Mutation, error)) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uint64(len(s.slots)) + 1
	m, err := build(id)
	if err != nil {
		return 0, err
	}
	if m.Product.ID != id {
		return 0, ValidationError("mutation for product %d carries id %d", id, m.Product.ID)
	}

	sl := &slot{}
	sl.current.Store((*snapshot)(nil).next(m))
	s.slots[id] = sl
	s.count.Store(id)
	return id, nil
}

func (s *MemoryStore) Update(id uint64, apply func(current Record) (Mutation, error)) error {
	sl, err := s.slot(id)
	if err != nil {
		return err
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	cur := sl.current.Load()
	m, err := apply(cur.record())
	if err != nil {
		return err
	}
	if m.Product.ID != id {
		return ValidationError("mutation for product %d carries id %d", id, m.Product.ID)
	}
	sl.current.Store(cur.next(m))
	return nil
}

func (s *MemoryStore) Product(id uint64) (Product, error) {
	snap, err := s.load(id)
	if err != nil {
		return Product{}, err
	}
	return snap.product, nil
}

func (s *MemoryStore) History(id uint64) ([]HistoryEvent, error) {
	snap, err := s.load(id)
	if err != nil {
		return nil, err
	}
	return append([]HistoryEvent(nil), snap.history...), nil
}

func (s *MemoryStore) PriceHistory(id uint64) ([]PriceEvent, error) {
	snap, err := s.load(id)
	if err != nil {
		return nil, err
	}
	return append([]PriceEvent(nil), snap.prices...), nil
}

func (s *MemoryStore) Count() (uint64, error) {
	return s.count.Load(), nil
}

func (s *MemoryStore) slot(id uint64) (*slot, error) {
	s.mu.RLock()
	sl, ok := s.slots[id]
	s.mu.RUnlock()
	if !ok {
		return nil, NotFoundError(id)
	}
	return sl, nil
}

func (s *MemoryStore) load(id uint64) (*snapshot, error) {
	sl, err := s.slot(id)
	if err != nil {
		return nil, err
	}
	return sl.current.Load(), nil
}
