package ledger

import "errors"

// Query is the read-only facade over a Store
type Query struct {
	store Store
}

// NewQuery creates a query facade
func NewQuery(store Store) *Query {
	return &Query{store: store}
}

// ProductDetails returns the public view of a product. Unknown ids yield a
// zero value with ID 0 rather than an error.
func (q *Query) ProductDetails(id uint64) (ProductDetails, error) {
	p, err := q.store.Product(id)
	if errors.Is(err, ErrNotFound) {
		return ProductDetails{}, nil
	}
	if err != nil {
		return ProductDetails{}, err
	}
	return p.Details(), nil
}

// Product returns the full stored record, including pricePerKg and qrCode
func (q *Query) Product(id uint64) (Product, error) {
	p, err := q.store.Product(id)
	if errors.Is(err, ErrNotFound) {
		return Product{}, nil
	}
	return p, err
}

// ProductHistory returns the custody log of a product, empty for unknown ids
func (q *Query) ProductHistory(id uint64) ([]HistoryEvent, error) {
	h, err := q.store.History(id)
	if errors.Is(err, ErrNotFound) {
		return []HistoryEvent{}, nil
	}
	if err != nil {
		return nil, err
	}
	if h == nil {
		h = []HistoryEvent{}
	}
	return h, nil
}

// PriceHistory returns the price log of a product, empty for unknown ids
func (q *Query) PriceHistory(id uint64) ([]PriceEvent, error) {
	prices, err := q.store.PriceHistory(id)
	if errors.Is(err, ErrNotFound) {
		return []PriceEvent{}, nil
	}
	if err != nil {
		return nil, err
	}
	if prices == nil {
		prices = []PriceEvent{}
	}
	return prices, nil
}

// ProductCount returns the number of products created so far
func (q *Query) ProductCount() (uint64, error) {
	return q.store.Count()
}

// Filter selects products for ListProducts. Zero fields match everything.
type Filter struct {
	Owner        string
	ExcludeOwner string
	States       []State
}

func (f Filter) match(p Product) bool {
	if f.Owner != "" && p.Owner != f.Owner {
		return false
	}
	if f.ExcludeOwner != "" && p.Owner == f.ExcludeOwner {
		return false
	}
	if len(f.States) == 0 {
		return true
	}
	for _, s := range f.States {
		if p.State == s {
			return true
		}
	}
	return false
}

// AvailableTo selects products on sale that caller does not already own
func AvailableTo(caller string) Filter {
	return Filter{ExcludeOwner: caller, States: []State{StateCreated, StateOnSale}}
}

// OwnedBy selects products held by owner
func OwnedBy(owner string) Filter {
	return Filter{Owner: owner}
}

// ListProducts returns matching products in id order
func (q *Query) ListProducts(f Filter) ([]ProductDetails, error) {
	count, err := q.store.Count()
	if err != nil {
		return nil, err
	}

	products := []ProductDetails{}
	for id := uint64(1); id <= count; id++ {
		p, err := q.store.Product(id)
		if err != nil {
			return nil, err
		}
		if f.match(p) {
			products = append(products, p.Details())
		}
	}
	return products, nil
}
