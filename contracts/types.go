package contracts

import (
	"github.com/agroledger/chaincode/agroledger/ledger"
)

// Amounts cross the chaincode boundary as decimal strings of minor units so
// that clients never lose precision on large values.

// Product is the full stored record of a batch
type Product struct {
	ID           uint64 `json:"id"`
	CropType     string `json:"cropType"`
	WeightInKg   uint64 `json:"weightInKg"`
	PricePerKg   string `json:"pricePerKg"`
	CurrentPrice string `json:"currentPrice"`
	BatchNo      string `json:"batchNo"`
	HarvestDate  string `json:"harvestDate"`
	FarmLocation string `json:"farmLocation"`
	QRCode       string `json:"qrCode"`
	Owner        string `json:"owner"`
	State        uint8  `json:"state"`
	Status       string `json:"status"`
}

// ProductDetails is the public view returned by GetProductDetails
type ProductDetails struct {
	ID           uint64 `json:"id"`
	CropType     string `json:"cropType"`
	WeightInKg   uint64 `json:"weightInKg"`
	CurrentPrice string `json:"currentPrice"`
	BatchNo      string `json:"batchNo"`
	HarvestDate  string `json:"harvestDate"`
	FarmLocation string `json:"farmLocation"`
	Owner        string `json:"owner"`
	State        uint8  `json:"state"`
	Status       string `json:"status"`
}

// HistoryEvent is one custody log entry
type HistoryEvent struct {
	Timestamp        int64  `json:"timestamp"`
	EventDescription string `json:"eventDescription"`
}

// PriceEvent is one price log entry
type PriceEvent struct {
	Timestamp int64  `json:"timestamp"`
	Actor     string `json:"actor"`
	Price     string `json:"price"`
}

// LedgerRecord is one committed version of a product as kept by the peer
type LedgerRecord struct {
	TxID      string  `json:"txId"`
	Timestamp int64   `json:"timestamp"`
	IsDelete  bool    `json:"isDelete"`
	Value     Product `json:"value" metadata:",optional"`
}

func toProduct(p ledger.Product) *Product {
	return &Product{
		ID:           p.ID,
		CropType:     p.CropType,
		WeightInKg:   p.WeightInKg,
		PricePerKg:   p.PricePerKg.String(),
		CurrentPrice: p.CurrentPrice.String(),
		BatchNo:      p.BatchNo,
		HarvestDate:  p.HarvestDate,
		FarmLocation: p.FarmLocation,
		QRCode:       p.QRCode,
		Owner:        p.Owner,
		State:        uint8(p.State),
		Status:       p.State.String(),
	}
}

func toDetails(d ledger.ProductDetails) *ProductDetails {
	return &ProductDetails{
		ID:           d.ID,
		CropType:     d.CropType,
		WeightInKg:   d.WeightInKg,
		CurrentPrice: d.CurrentPrice.String(),
		BatchNo:      d.BatchNo,
		HarvestDate:  d.HarvestDate,
		FarmLocation: d.FarmLocation,
		Owner:        d.Owner,
		State:        uint8(d.State),
		Status:       d.State.String(),
	}
}

func toDetailsList(list []ledger.ProductDetails) []*ProductDetails {
	out := make([]*ProductDetails, 0, len(list))
	for _, d := range list {
		out = append(out, toDetails(d))
	}
	return out
}

func toHistory(list []ledger.HistoryEvent) []HistoryEvent {
	out := make([]HistoryEvent, 0, len(list))
	for _, h := range list {
		out = append(out, HistoryEvent{Timestamp: h.Timestamp, EventDescription: h.EventDescription})
	}
	return out
}

func toPrices(list []ledger.PriceEvent) []PriceEvent {
	out := make([]PriceEvent, 0, len(list))
	for _, p := range list {
		out = append(out, PriceEvent{Timestamp: p.Timestamp, Actor: string(p.Actor), Price: p.Price.String()})
	}
	return out
}
