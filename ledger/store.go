package ledger

import "github.com/shopspring/decimal"

// Store owns product records, their audit logs and the id allocator.
//
// Create and Update commit a Mutation as one unit: a reader sees the record
// and both logs either before or after the commit, never a mix. Appends to the
// logs only happen through a Mutation, so entries are never edited or removed.
type Store interface {
	// Create allocates the next id and commits the mutation built for it.
	// If build fails the id is not consumed.
	Create(build func(id uint64) (Mutation, error)) (uint64, error)

	// Update runs apply against the current record while holding the id's
	// writer slot and commits the returned mutation. Returns a NotFound
	// error for unknown ids.
	Update(id uint64, apply func(current Record) (Mutation, error)) error

	Product(id uint64) (Product, error)
	History(id uint64) ([]HistoryEvent, error)
	PriceHistory(id uint64) ([]PriceEvent, error)
	Count() (uint64, error)
}

// Settlement moves funds between balance holders
type Settlement interface {
	// Transfer moves amount from one holder to another or fails with an
	// InsufficientFunds error without moving anything.
	Transfer(from, to string, amount decimal.Decimal) error
}
