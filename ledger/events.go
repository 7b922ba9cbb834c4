package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event names as published to subscribers and chaincode listeners
const (
	EventProductCreated       = "ProductCreated"
	EventOwnershipTransferred = "OwnershipTransferred"
	EventPriceUpdated         = "PriceUpdated"
	EventProductStateUpdated  = "ProductStateUpdated"
)

// Event is a domain event emitted after a committed mutation
type Event interface {
	EventName() string
	AggregateID() uint64
}

type ProductCreated struct {
	ID         uint64          `json:"id"`
	CropType   string          `json:"cropType"`
	Owner      string          `json:"owner"`
	PricePerKg decimal.Decimal `json:"pricePerKg"`
}

func (e ProductCreated) EventName() string   { return EventProductCreated }
func (e ProductCreated) AggregateID() uint64 { return e.ID }

type OwnershipTransferred struct {
	ID       uint64          `json:"id"`
	OldOwner string          `json:"oldOwner"`
	NewOwner string          `json:"newOwner"`
	Amount   decimal.Decimal `json:"amount"`
}

func (e OwnershipTransferred) EventName() string   { return EventOwnershipTransferred }
func (e OwnershipTransferred) AggregateID() uint64 { return e.ID }

type PriceUpdated struct {
	ID       uint64          `json:"id"`
	Actor    string          `json:"actor"`
	NewPrice decimal.Decimal `json:"newPrice"`
}

func (e PriceUpdated) EventName() string   { return EventPriceUpdated }
func (e PriceUpdated) AggregateID() uint64 { return e.ID }

type ProductStateUpdated struct {
	ID        uint64 `json:"id"`
	NewState  State  `json:"newState"`
	Timestamp int64  `json:"timestamp"`
}

func (e ProductStateUpdated) EventName() string   { return EventProductStateUpdated }
func (e ProductStateUpdated) AggregateID() uint64 { return e.ID }

// Envelope wraps an event for delivery
type Envelope struct {
	ID        uuid.UUID `json:"eventId"`
	Name      string    `json:"name"`
	ProductID uint64    `json:"productId"`
	Payload   Event     `json:"payload"`
}

// Seal wraps evt under the given envelope id
func Seal(id uuid.UUID, evt Event) Envelope {
	return Envelope{ID: id, Name: evt.EventName(), ProductID: evt.AggregateID(), Payload: evt}
}

// Publisher receives events after commit. Publish must not block and has no
// way to fail the mutation that produced the event.
type Publisher interface {
	Publish(evt Event)
}

type discard struct{}

func (discard) Publish(Event) {}
