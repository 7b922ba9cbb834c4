package ledger

import (
	"github.com/shopspring/decimal"
)

// State is the custody state of a product batch
type State uint8

const (
	StateCreated State = iota
	StateInTransit
	StateOnSale
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateInTransit:
		return "InTransit"
	case StateOnSale:
		return "OnSale"
	default:
		return "Unknown"
	}
}

// Available reports whether a product in this state can be purchased
func (s State) Available() bool {
	return s == StateCreated || s == StateOnSale
}

// Role is the supply chain label recorded in the audit trail
type Role string

const (
	RoleFarmer      Role = "Farmer"
	RoleDistributor Role = "Distributor"
	RoleRetailer    Role = "Retailer"
	RoleConsumer    Role = "Consumer"
)

// Product is the authoritative record of one physical batch
type Product struct {
	ID           uint64          `json:"id"`
	CropType     string          `json:"cropType"`
	WeightInKg   uint64          `json:"weightInKg"`
	PricePerKg   decimal.Decimal `json:"pricePerKg"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	BatchNo      string          `json:"batchNo"`
	HarvestDate  string          `json:"harvestDate"`
	FarmLocation string          `json:"farmLocation"`
	QRCode       string          `json:"qrCode"`
	Owner        string          `json:"owner"`
	State        State           `json:"state"`
}

// ProductDetails is the public view returned by getProductDetails.
// A zero ID means the product was not found.
type ProductDetails struct {
	ID           uint64          `json:"id"`
	CropType     string          `json:"cropType"`
	WeightInKg   uint64          `json:"weightInKg"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	BatchNo      string          `json:"batchNo"`
	HarvestDate  string          `json:"harvestDate"`
	FarmLocation string          `json:"farmLocation"`
	Owner        string          `json:"owner"`
	State        State           `json:"state"`
}

// Details projects the record onto its public view
func (p Product) Details() ProductDetails {
	return ProductDetails{
		ID:           p.ID,
		CropType:     p.CropType,
		WeightInKg:   p.WeightInKg,
		CurrentPrice: p.CurrentPrice,
		BatchNo:      p.BatchNo,
		HarvestDate:  p.HarvestDate,
		FarmLocation: p.FarmLocation,
		Owner:        p.Owner,
		State:        p.State,
	}
}

// HistoryEvent is a custody entry in a product's audit trail
type HistoryEvent struct {
	Timestamp        int64  `json:"timestamp"`
	EventDescription string `json:"eventDescription"`
}

// PriceEvent records the total price set at one step of the chain
type PriceEvent struct {
	Timestamp int64           `json:"timestamp"`
	Actor     Role            `json:"actor"`
	Price     decimal.Decimal `json:"price"`
}

// Record is a product together with both of its logs, as of one commit
type Record struct {
	Product Product
	History []HistoryEvent
	Prices  []PriceEvent
}

// Markups returns how many markup steps the product has been through
func (r Record) Markups() int {
	if len(r.Prices) == 0 {
		return 0
	}
	return len(r.Prices) - 1
}

// Mutation is the unit a store commits: the replacement record plus the
// log entries appended by the transition.
type Mutation struct {
	Product Product
	History []HistoryEvent
	Prices  []PriceEvent
}

// CreateProductInput carries the descriptive fields of a new batch
type CreateProductInput struct {
	CropType     string
	WeightInKg   uint64
	PricePerKg   decimal.Decimal
	BatchNo      string
	HarvestDate  string
	FarmLocation string
	QRCode       string
}
