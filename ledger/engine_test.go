package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	farmer      = "farmer"
	distributor = "distributor"
	retailer    = "retailer"
	consumer    = "consumer"
)

var fixedNow = time.Unix(1700000000, 0)

type recorder struct {
	events []Event
}

func (r *recorder) Publish(evt Event) { r.events = append(r.events, evt) }

type fixture struct {
	engine   *Engine
	query    *Query
	store    *MemoryStore
	accounts *Accounts
	events   *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := NewMemoryStore()
	accounts := NewAccounts()
	events := &recorder{}
	for _, holder := range []string{distributor, retailer, consumer} {
		require.NoError(t, accounts.Deposit(holder, decimal.NewFromInt(1000)))
	}
	return &fixture{
		engine:   NewEngine(store, accounts, events, WithClock(func() time.Time { return fixedNow })),
		query:    NewQuery(store),
		store:    store,
		accounts: accounts,
		events:   events,
	}
}

func sampleInput(weight, pricePerKg int64) CreateProductInput {
	return CreateProductInput{
		CropType:     "Apple",
		WeightInKg:   uint64(weight),
		PricePerKg:   decimal.NewFromInt(pricePerKg),
		BatchNo:      "BATCH-001",
		HarvestDate:  "2024-09-01",
		FarmLocation: "Nashik",
		QRCode:       "QR-001",
	}
}

func (f *fixture) create(t *testing.T, weight, pricePerKg int64) uint64 {
	t.Helper()
	id, err := f.engine.CreateProduct(sampleInput(weight, pricePerKg), farmer)
	require.NoError(t, err)
	return id
}

func (f *fixture) details(t *testing.T, id uint64) ProductDetails {
	t.Helper()
	d, err := f.query.ProductDetails(id)
	require.NoError(t, err)
	return d
}

func (f *fixture) priceHistoryLen(t *testing.T, id uint64) int {
	t.Helper()
	prices, err := f.query.PriceHistory(id)
	require.NoError(t, err)
	return len(prices)
}

func TestCreateProduct(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, 100, 1)

	assert.Equal(t, uint64(1), id)
	d := f.details(t, id)
	assert.Equal(t, "Apple", d.CropType)
	assert.Equal(t, farmer, d.Owner)
	assert.Equal(t, StateCreated, d.State)
	assert.True(t, d.CurrentPrice.Equal(decimal.NewFromInt(100)))

	history, err := f.query.ProductHistory(id)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Product created", history[0].EventDescription)
	assert.Equal(t, fixedNow.Unix(), history[0].Timestamp)

	prices, err := f.query.PriceHistory(id)
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.Equal(t, RoleFarmer, prices[0].Actor)
	assert.True(t, prices[0].Price.Equal(decimal.NewFromInt(100)))

	require.Len(t, f.events.events, 1)
	created, ok := f.events.events[0].(ProductCreated)
	require.True(t, ok)
	assert.Equal(t, id, created.ID)
	assert.Equal(t, farmer, created.Owner)
	assert.True(t, created.PricePerKg.Equal(decimal.NewFromInt(1)))
}

func TestCreateProductValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *CreateProductInput)
		creator string
	}{
		{"zero weight", func(in *CreateProductInput) { in.WeightInKg = 0 }, farmer},
		{"zero price", func(in *CreateProductInput) { in.PricePerKg = decimal.Zero }, farmer},
		{"negative price", func(in *CreateProductInput) { in.PricePerKg = decimal.NewFromInt(-1) }, farmer},
		{"fractional price", func(in *CreateProductInput) { in.PricePerKg = decimal.RequireFromString("1.5") }, farmer},
		{"empty crop", func(in *CreateProductInput) { in.CropType = "" }, farmer},
		{"blank batch", func(in *CreateProductInput) { in.BatchNo = "   " }, farmer},
		{"empty harvest date", func(in *CreateProductInput) { in.HarvestDate = "" }, farmer},
		{"empty location", func(in *CreateProductInput) { in.FarmLocation = "" }, farmer},
		{"empty qr code", func(in *CreateProductInput) { in.QRCode = "" }, farmer},
		{"empty creator", func(in *CreateProductInput) {}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := sampleInput(10, 5)
			tt.mutate(&in)

			_, err := f.engine.CreateProduct(in, tt.creator)
			assert.ErrorIs(t, err, ErrValidation)

			count, _ := f.query.ProductCount()
			assert.Zero(t, count)
			assert.Empty(t, f.events.events)
		})
	}
}

func TestProductCountMatchesDenseIDs(t *testing.T) {
	f := newFixture(t)
	for want := uint64(1); want <= 5; want++ {
		assert.Equal(t, want, f.create(t, 10, 2))
	}

	// a rejected create does not consume an id
	_, err := f.engine.CreateProduct(sampleInput(0, 2), farmer)
	require.Error(t, err)

	count, err := f.query.ProductCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), count)
	assert.Equal(t, uint64(6), f.create(t, 10, 2))
}

func TestSupplyChainScenario(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, 100, 1)

	require.NoError(t, f.engine.PurchaseProduct(id, distributor, decimal.NewFromInt(100)))
	d := f.details(t, id)
	assert.Equal(t, distributor, d.Owner)
	assert.Equal(t, StateInTransit, d.State)
	assert.Equal(t, 1, f.priceHistoryLen(t, id))
	history, _ := f.query.ProductHistory(id)
	require.Len(t, history, 2)
	assert.Equal(t, "Purchased by Distributor", history[1].EventDescription)

	require.NoError(t, f.engine.DistributorAddCommission(id, distributor))
	d = f.details(t, id)
	assert.True(t, d.CurrentPrice.Equal(decimal.NewFromInt(110)))
	assert.Equal(t, StateOnSale, d.State)
	assert.Equal(t, 2, f.priceHistoryLen(t, id))

	require.NoError(t, f.engine.PurchaseProduct(id, retailer, decimal.NewFromInt(110)))
	d = f.details(t, id)
	assert.Equal(t, retailer, d.Owner)
	assert.Equal(t, StateInTransit, d.State)
	assert.Equal(t, 2, f.priceHistoryLen(t, id))

	require.NoError(t, f.engine.RetailerListForSale(id, retailer))
	d = f.details(t, id)
	assert.True(t, d.CurrentPrice.Equal(decimal.NewFromInt(121)))
	assert.Equal(t, StateOnSale, d.State)
	assert.Equal(t, 3, f.priceHistoryLen(t, id))

	require.NoError(t, f.engine.PurchaseProduct(id, consumer, decimal.NewFromInt(121)))
	d = f.details(t, id)
	assert.Equal(t, consumer, d.Owner)
	assert.Equal(t, StateInTransit, d.State)

	history, _ = f.query.ProductHistory(id)
	descriptions := make([]string, len(history))
	for i, h := range history {
		descriptions[i] = h.EventDescription
	}
	assert.Equal(t, []string{
		"Product created",
		"Purchased by Distributor",
		"Commission added by Distributor",
		"Purchased by Retailer",
		"Listed for sale by Retailer",
		"Purchased by Consumer",
	}, descriptions)

	prices, _ := f.query.PriceHistory(id)
	actors := []Role{}
	for _, p := range prices {
		actors = append(actors, p.Actor)
	}
	assert.Equal(t, []Role{RoleFarmer, RoleDistributor, RoleRetailer}, actors)

	// each seller was paid what the next tier paid
	assert.True(t, f.accounts.Balance(farmer).Equal(decimal.NewFromInt(100)))
	assert.True(t, f.accounts.Balance(distributor).Equal(decimal.NewFromInt(1000-100+110)))
	assert.True(t, f.accounts.Balance(retailer).Equal(decimal.NewFromInt(1000-110+121)))
	assert.True(t, f.accounts.Balance(consumer).Equal(decimal.NewFromInt(1000-121)))
}

func TestScenarioEvents(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, 100, 1)
	require.NoError(t, f.engine.PurchaseProduct(id, distributor, decimal.NewFromInt(100)))
	require.NoError(t, f.engine.DistributorAddCommission(id, distributor))

	names := []string{}
	for _, evt := range f.events.events {
		names = append(names, evt.EventName())
	}
	assert.Equal(t, []string{
		EventProductCreated,
		EventOwnershipTransferred,
		EventPriceUpdated,
		EventProductStateUpdated,
	}, names)

	transfer := f.events.events[1].(OwnershipTransferred)
	assert.Equal(t, farmer, transfer.OldOwner)
	assert.Equal(t, distributor, transfer.NewOwner)
	assert.True(t, transfer.Amount.Equal(decimal.NewFromInt(100)))

	price := f.events.events[2].(PriceUpdated)
	assert.Equal(t, distributor, price.Actor)
	assert.True(t, price.NewPrice.Equal(decimal.NewFromInt(110)))

	state := f.events.events[3].(ProductStateUpdated)
	assert.Equal(t, StateOnSale, state.NewState)
	assert.Equal(t, fixedNow.Unix(), state.Timestamp)
}

// snapshot of everything a failed mutation must leave alone
type observed struct {
	product Product
	history []HistoryEvent
	prices  []PriceEvent
	buyer   decimal.Decimal
	seller  decimal.Decimal
}

func observe(t *testing.T, f *fixture, id uint64, buyer string) observed {
	t.Helper()
	p, err := f.store.Product(id)
	require.NoError(t, err)
	h, err := f.store.History(id)
	require.NoError(t, err)
	prices, err := f.store.PriceHistory(id)
	require.NoError(t, err)
	return observed{product: p, history: h, prices: prices, buyer: f.accounts.Balance(buyer), seller: f.accounts.Balance(p.Owner)}
}

func assertUnchanged(t *testing.T, before, after observed) {
	t.Helper()
	assert.Equal(t, before.product.Owner, after.product.Owner)
	assert.Equal(t, before.product.State, after.product.State)
	assert.True(t, before.product.CurrentPrice.Equal(after.product.CurrentPrice))
	assert.Equal(t, before.history, after.history)
	assert.Equal(t, before.prices, after.prices)
	assert.True(t, before.buyer.Equal(after.buyer))
	assert.True(t, before.seller.Equal(after.seller))
}

func TestPurchaseWrongPaymentIsNoOp(t *testing.T) {
	tests := []struct {
		name string
		paid int64
		want *Error
	}{
		{"under payment", 99, ErrInsufficientFunds},
		{"zero payment", 0, ErrInsufficientFunds},
		{"over payment", 101, ErrOverPayment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			id := f.create(t, 100, 1)
			before := observe(t, f, id, distributor)
			eventsBefore := len(f.events.events)

			err := f.engine.PurchaseProduct(id, distributor, decimal.NewFromInt(tt.paid))
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, id, err.(*Error).ProductID)

			assertUnchanged(t, before, observe(t, f, id, distributor))
			assert.Len(t, f.events.events, eventsBefore)
		})
	}
}

func TestPurchaseWithoutBalanceIsNoOp(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, 100, 1)
	poor := "poor-buyer"
	require.NoError(t, f.accounts.Deposit(poor, decimal.NewFromInt(50)))
	before := observe(t, f, id, poor)

	err := f.engine.PurchaseProduct(id, poor, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, KindInsufficientFunds, KindOf(err))

	assertUnchanged(t, before, observe(t, f, id, poor))
	assert.Len(t, f.events.events, 1)
}

func TestPurchaseInTransitFails(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, 100, 1)
	require.NoError(t, f.engine.PurchaseProduct(id, distributor, decimal.NewFromInt(100)))
	before := observe(t, f, id, retailer)

	err := f.engine.PurchaseProduct(id, retailer, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, ErrInvalidState)
	assertUnchanged(t, before, observe(t, f, id, retailer))
}

func TestSelfPurchaseFails(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.accounts.Deposit(farmer, decimal.NewFromInt(1000)))
	id := f.create(t, 100, 1)
	before := observe(t, f, id, farmer)

	err := f.engine.PurchaseProduct(id, farmer, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, ErrSelfPurchase)
	assertUnchanged(t, before, observe(t, f, id, farmer))
}

func TestPurchaseUnknownProduct(t *testing.T) {
	f := newFixture(t)
	for _, id := range []uint64{0, 1, 42} {
		err := f.engine.PurchaseProduct(id, distributor, decimal.NewFromInt(1))
		assert.ErrorIs(t, err, ErrNotFound)
	}
}

func TestMarkupByNonOwnerFails(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, 100, 1)
	require.NoError(t, f.engine.PurchaseProduct(id, distributor, decimal.NewFromInt(100)))
	before := observe(t, f, id, retailer)

	err := f.engine.DistributorAddCommission(id, retailer)
	assert.ErrorIs(t, err, ErrNotOwner)
	assertUnchanged(t, before, observe(t, f, id, retailer))
}

func TestMarkupOutsideInTransitFails(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, 100, 1)

	// farmer owns a Created product
	assert.ErrorIs(t, f.engine.DistributorAddCommission(id, farmer), ErrInvalidState)

	require.NoError(t, f.engine.PurchaseProduct(id, distributor, decimal.NewFromInt(100)))
	require.NoError(t, f.engine.DistributorAddCommission(id, distributor))

	// already OnSale, a second markup is rejected
	assert.ErrorIs(t, f.engine.DistributorAddCommission(id, distributor), ErrInvalidState)
	assert.Equal(t, 2, f.priceHistoryLen(t, id))
}

func TestMarkupRejectsUnknownRole(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, 100, 1)
	require.NoError(t, f.engine.PurchaseProduct(id, distributor, decimal.NewFromInt(100)))

	for _, role := range []Role{RoleFarmer, RoleConsumer, "Wholesaler", ""} {
		assert.ErrorIs(t, f.engine.AdvanceWithMarkup(id, role, distributor), ErrValidation)
	}
	assert.Equal(t, StateInTransit, f.details(t, id).State)
}

func TestCustomMarkup(t *testing.T) {
	store := NewMemoryStore()
	accounts := NewAccounts()
	require.NoError(t, accounts.Deposit(distributor, decimal.NewFromInt(1000)))
	engine := NewEngine(store, accounts, nil, WithMarkup(2500))
	assert.Equal(t, int64(2500), engine.MarkupBps())

	id, err := engine.CreateProduct(sampleInput(10, 10), farmer)
	require.NoError(t, err)
	require.NoError(t, engine.PurchaseProduct(id, distributor, decimal.NewFromInt(100)))
	require.NoError(t, engine.DistributorAddCommission(id, distributor))

	p, err := store.Product(id)
	require.NoError(t, err)
	assert.True(t, p.CurrentPrice.Equal(decimal.NewFromInt(125)))

	// out of range markups keep the default
	assert.Equal(t, DefaultMarkupBps, NewEngine(store, accounts, nil, WithMarkup(0)).MarkupBps())
	assert.Equal(t, DefaultMarkupBps, NewEngine(store, accounts, nil, WithMarkup(20000)).MarkupBps())
}

func TestStateSequenceAndPriceAreMonotone(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, 7, 3)
	buyers := []string{distributor, retailer, consumer}

	states := []State{f.details(t, id).State}
	prices := []decimal.Decimal{f.details(t, id).CurrentPrice}
	record := func() {
		d := f.details(t, id)
		states = append(states, d.State)
		prices = append(prices, d.CurrentPrice)
	}

	for i, buyer := range buyers {
		price := f.details(t, id).CurrentPrice
		require.NoError(t, f.accounts.Deposit(buyer, price))
		require.NoError(t, f.engine.PurchaseProduct(id, buyer, price))
		record()
		if i < len(buyers)-1 {
			require.NoError(t, f.engine.AdvanceWithMarkup(id, []Role{RoleDistributor, RoleRetailer}[i], buyer))
			record()
		}
	}

	want := []State{StateCreated, StateInTransit, StateOnSale, StateInTransit, StateOnSale, StateInTransit}
	assert.Equal(t, want, states)
	for i := 1; i < len(prices); i++ {
		assert.False(t, prices[i].LessThan(prices[i-1]), "price decreased at step %d", i)
	}
	// 21 -> 23 -> 25, markups round down
	assert.True(t, prices[len(prices)-1].Equal(decimal.NewFromInt(25)))
}

func TestQueryUnknownProduct(t *testing.T) {
	f := newFixture(t)

	d, err := f.query.ProductDetails(99)
	require.NoError(t, err)
	assert.Zero(t, d.ID)

	p, err := f.query.Product(99)
	require.NoError(t, err)
	assert.Zero(t, p.ID)

	h, err := f.query.ProductHistory(99)
	require.NoError(t, err)
	assert.NotNil(t, h)
	assert.Empty(t, h)

	prices, err := f.query.PriceHistory(99)
	require.NoError(t, err)
	assert.NotNil(t, prices)
	assert.Empty(t, prices)
}

func TestListProducts(t *testing.T) {
	f := newFixture(t)
	first := f.create(t, 10, 1)
	second := f.create(t, 20, 1)
	third := f.create(t, 30, 1)
	require.NoError(t, f.engine.PurchaseProduct(second, distributor, decimal.NewFromInt(20)))
	require.NoError(t, f.engine.PurchaseProduct(third, distributor, decimal.NewFromInt(30)))
	require.NoError(t, f.engine.DistributorAddCommission(third, distributor))

	ids := func(list []ProductDetails) []uint64 {
		out := []uint64{}
		for _, d := range list {
			out = append(out, d.ID)
		}
		return out
	}

	forRetailer, err := f.query.ListProducts(AvailableTo(retailer))
	require.NoError(t, err)
	assert.Equal(t, []uint64{first, third}, ids(forRetailer))

	forDistributor, err := f.query.ListProducts(AvailableTo(distributor))
	require.NoError(t, err)
	assert.Equal(t, []uint64{first}, ids(forDistributor))

	owned, err := f.query.ListProducts(OwnedBy(distributor))
	require.NoError(t, err)
	assert.Equal(t, []uint64{second, third}, ids(owned))

	all, err := f.query.ListProducts(Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestProductRecordKeepsCreationFields(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, 100, 3)
	require.NoError(t, f.accounts.Deposit(distributor, decimal.NewFromInt(1000)))
	require.NoError(t, f.engine.PurchaseProduct(id, distributor, decimal.NewFromInt(300)))
	require.NoError(t, f.engine.DistributorAddCommission(id, distributor))

	p, err := f.query.Product(id)
	require.NoError(t, err)
	assert.True(t, p.PricePerKg.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, "QR-001", p.QRCode)
	assert.True(t, p.CurrentPrice.Equal(decimal.NewFromInt(330)))
}
