package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Engine validates and applies ownership and price transitions
type Engine struct {
	store     Store
	funds     Settlement
	events    Publisher
	now       func() time.Time
	markupBps int64
	logger    *zap.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithClock sets the source of event timestamps
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMarkup sets the markup in basis points; invalid values are ignored
func WithMarkup(bps int64) Option {
	return func(e *Engine) {
		if ValidMarkup(bps) {
			e.markupBps = bps
		}
	}
}

// WithLogger sets the engine logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine over the given store, settlement and publisher.
// A nil publisher discards events.
func NewEngine(store Store, funds Settlement, events Publisher, opts ...Option) *Engine {
	if events == nil {
		events = discard{}
	}
	e := &Engine{
		store:     store,
		funds:     funds,
		events:    events,
		now:       time.Now,
		markupBps: DefaultMarkupBps,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MarkupBps returns the markup applied by AdvanceWithMarkup
func (e *Engine) MarkupBps() int64 {
	return e.markupBps
}

// CreateProduct records a new batch owned by creator
func (e *Engine) CreateProduct(in CreateProductInput, creator string) (uint64, error) {
	if err := validateCreate(in, creator); err != nil {
		return 0, err
	}

	total := totalPrice(in)
	ts := e.now().Unix()

	id, err := e.store.Create(func(id uint64) (Mutation, error) {
		p := Product{
			ID:           id,
			CropType:     in.CropType,
			WeightInKg:   in.WeightInKg,
			PricePerKg:   in.PricePerKg,
			CurrentPrice: total,
			BatchNo:      in.BatchNo,
			HarvestDate:  in.HarvestDate,
			FarmLocation: in.FarmLocation,
			QRCode:       in.QRCode,
			Owner:        creator,
			State:        StateCreated,
		}
		return Mutation{
			Product: p,
			History: []HistoryEvent{{Timestamp: ts, EventDescription: "Product created"}},
			Prices:  []PriceEvent{{Timestamp: ts, Actor: RoleFarmer, Price: total}},
		}, nil
	})
	if err != nil {
		return 0, err
	}

	e.logger.Info("product created",
		zap.Uint64("product_id", id),
		zap.String("owner", creator),
		zap.String("price", total.String()))
	e.events.Publish(ProductCreated{ID: id, CropType: in.CropType, Owner: creator, PricePerKg: in.PricePerKg})
	return id, nil
}

// PurchaseProduct hands the product to buyer against an exact payment of its
// current price. The payment moves from buyer to the previous owner in the
// same commit as the ownership change.
func (e *Engine) PurchaseProduct(id uint64, buyer string, paid decimal.Decimal) error {
	if strings.TrimSpace(buyer) == "" {
		return ValidationError("buyer is required")
	}

	var oldOwner string
	err := e.store.Update(id, func(cur Record) (Mutation, error) {
		p := cur.Product
		if !p.State.Available() {
			return Mutation{}, newError(KindInvalidState, id, "product %d is %s and cannot be purchased", id, p.State)
		}
		if buyer == p.Owner {
			return Mutation{}, newError(KindSelfPurchase, id, "owner cannot purchase product %d", id)
		}
		switch {
		case paid.LessThan(p.CurrentPrice):
			return Mutation{}, InsufficientFundsError(id, "paid %s, price of product %d is %s", paid, id, p.CurrentPrice)
		case paid.GreaterThan(p.CurrentPrice):
			return Mutation{}, newError(KindOverPayment, id, "paid %s, price of product %d is %s", paid, id, p.CurrentPrice)
		}

		// last fallible step: nothing below can fail once funds have moved
		if err := e.funds.Transfer(buyer, p.Owner, paid); err != nil {
			var lerr *Error
			if errors.As(err, &lerr) && lerr.Kind == KindInsufficientFunds {
				return Mutation{}, InsufficientFundsError(id, "cannot settle product %d: %s", id, lerr.Message)
			}
			return Mutation{}, fmt.Errorf("settle product %d: %w", id, err)
		}

		oldOwner = p.Owner
		p.Owner = buyer
		p.State = StateInTransit
		return Mutation{
			Product: p,
			History: []HistoryEvent{{
				Timestamp:        e.now().Unix(),
				EventDescription: fmt.Sprintf("Purchased by %s", buyerRole(cur)),
			}},
		}, nil
	})
	if err != nil {
		return err
	}

	e.logger.Info("ownership transferred",
		zap.Uint64("product_id", id),
		zap.String("old_owner", oldOwner),
		zap.String("owner", buyer),
		zap.String("amount", paid.String()))
	e.events.Publish(OwnershipTransferred{ID: id, OldOwner: oldOwner, NewOwner: buyer, Amount: paid})
	return nil
}

// AdvanceWithMarkup lets the current owner mark the price up and list the
// product for sale again
func (e *Engine) AdvanceWithMarkup(id uint64, role Role, caller string) error {
	if role != RoleDistributor && role != RoleRetailer {
		return ValidationError("role %q cannot apply a markup", role)
	}

	var (
		newPrice decimal.Decimal
		ts       int64
	)
	err := e.store.Update(id, func(cur Record) (Mutation, error) {
		p := cur.Product
		if caller != p.Owner {
			return Mutation{}, newError(KindNotOwner, id, "only the owner of product %d can list it", id)
		}
		if p.State != StateInTransit {
			return Mutation{}, newError(KindInvalidState, id, "product %d is %s, expected %s", id, p.State, StateInTransit)
		}

		ts = e.now().Unix()
		newPrice = ApplyMarkup(p.CurrentPrice, e.markupBps)
		p.CurrentPrice = newPrice
		p.State = StateOnSale
		return Mutation{
			Product: p,
			History: []HistoryEvent{{Timestamp: ts, EventDescription: markupDescription(role)}},
			Prices:  []PriceEvent{{Timestamp: ts, Actor: role, Price: newPrice}},
		}, nil
	})
	if err != nil {
		return err
	}

	e.logger.Info("product listed",
		zap.Uint64("product_id", id),
		zap.String("role", string(role)),
		zap.String("owner", caller),
		zap.String("price", newPrice.String()))
	e.events.Publish(PriceUpdated{ID: id, Actor: caller, NewPrice: newPrice})
	e.events.Publish(ProductStateUpdated{ID: id, NewState: StateOnSale, Timestamp: ts})
	return nil
}

// DistributorAddCommission applies the distributor markup
func (e *Engine) DistributorAddCommission(id uint64, caller string) error {
	return e.AdvanceWithMarkup(id, RoleDistributor, caller)
}

// RetailerListForSale applies the retailer markup
func (e *Engine) RetailerListForSale(id uint64, caller string) error {
	return e.AdvanceWithMarkup(id, RoleRetailer, caller)
}

func validateCreate(in CreateProductInput, creator string) error {
	fields := []struct {
		name, value string
	}{
		{"creator", creator},
		{"cropType", in.CropType},
		{"batchNo", in.BatchNo},
		{"harvestDate", in.HarvestDate},
		{"farmLocation", in.FarmLocation},
		{"qrCode", in.QRCode},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return ValidationError("%s is required", f.name)
		}
	}
	if in.WeightInKg == 0 {
		return ValidationError("weightInKg must be positive")
	}
	if !in.PricePerKg.IsPositive() {
		return ValidationError("pricePerKg must be positive")
	}
	if !in.PricePerKg.Equal(in.PricePerKg.Truncate(0)) {
		return ValidationError("pricePerKg %s must be a whole number of minor units", in.PricePerKg)
	}
	return nil
}

func totalPrice(in CreateProductInput) decimal.Decimal {
	return in.PricePerKg.Mul(decimal.NewFromBigInt(new(big.Int).SetUint64(in.WeightInKg), 0))
}

// buyerRole derives who is buying from how far down the chain the product is
func buyerRole(cur Record) Role {
	switch cur.Markups() {
	case 0:
		return RoleDistributor
	case 1:
		return RoleRetailer
	default:
		return RoleConsumer
	}
}

func markupDescription(role Role) string {
	switch role {
	case RoleDistributor:
		return "Commission added by Distributor"
	case RoleRetailer:
		return "Listed for sale by Retailer"
	default:
		return fmt.Sprintf("Marked up by %s", role)
	}
}
