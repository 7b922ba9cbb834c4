package contracts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"go.uber.org/zap"

	"github.com/agroledger/chaincode/agroledger/ledger"
)

// AgroLedgerContract records crop batches and their trip from farm to
// consumer
type AgroLedgerContract struct {
	contractapi.Contract

	markupBps int64
	logger    *zap.Logger
}

// NewAgroLedgerContract creates the contract. Out of range markups fall back
// to ledger.DefaultMarkupBps.
func NewAgroLedgerContract(markupBps int64, logger *zap.Logger) *AgroLedgerContract {
	if !ledger.ValidMarkup(markupBps) {
		markupBps = ledger.DefaultMarkupBps
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgroLedgerContract{markupBps: markupBps, logger: logger}
}

// txLedger is the engine bound to one transaction
type txLedger struct {
	*ledger.Engine
	events *eventRecorder
	logger *zap.Logger
}

func (a *AgroLedgerContract) engine(ctx contractapi.TransactionContextInterface) (*txLedger, error) {
	stub := ctx.GetStub()
	ts, err := stub.GetTxTimestamp()
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction timestamp: %v", err)
	}
	// endorsers must agree, so the clock is the proposal timestamp
	txTime := ts.AsTime()

	logger := a.logger.With(zap.String("tx_id", stub.GetTxID()))
	events := &eventRecorder{}
	engine := ledger.NewEngine(
		newWorldState(stub),
		newWorldStateAccounts(stub),
		events,
		ledger.WithClock(func() time.Time { return txTime }),
		ledger.WithMarkup(a.markupBps),
		ledger.WithLogger(logger),
	)
	return &txLedger{Engine: engine, events: events, logger: logger}, nil
}

func (a *AgroLedgerContract) query(ctx contractapi.TransactionContextInterface) *ledger.Query {
	return ledger.NewQuery(newWorldState(ctx.GetStub()))
}

// CreateProduct records a new batch owned by the caller and returns its id
func (a *AgroLedgerContract) CreateProduct(ctx contractapi.TransactionContextInterface,
	cropType string, weightInKg uint64, pricePerKg string, batchNo string,
	harvestDate string, farmLocation string, qrCode string) (uint64, error) {

	caller, err := callerID(ctx)
	if err != nil {
		return 0, err
	}
	price, err := ledger.ParseAmount(pricePerKg)
	if err != nil {
		return 0, err
	}

	tx, err := a.engine(ctx)
	if err != nil {
		return 0, err
	}
	id, err := tx.CreateProduct(ledger.CreateProductInput{
		CropType:     cropType,
		WeightInKg:   weightInKg,
		PricePerKg:   price,
		BatchNo:      batchNo,
		HarvestDate:  harvestDate,
		FarmLocation: farmLocation,
		QRCode:       qrCode,
	}, caller)
	if err != nil {
		return 0, err
	}

	tx.events.flush(ctx.GetStub(), tx.logger)
	return id, nil
}

// PurchaseProduct buys the product for the caller. paidAmount must equal the
// current price and is settled from the caller's balance.
func (a *AgroLedgerContract) PurchaseProduct(ctx contractapi.TransactionContextInterface,
	id uint64, paidAmount string) error {

	caller, err := callerID(ctx)
	if err != nil {
		return err
	}
	paid, err := ledger.ParseAmount(paidAmount)
	if err != nil {
		return err
	}

	tx, err := a.engine(ctx)
	if err != nil {
		return err
	}
	if err := tx.PurchaseProduct(id, caller, paid); err != nil {
		return err
	}

	tx.events.flush(ctx.GetStub(), tx.logger)
	return nil
}

// DistributorAddCommission applies the distributor markup and lists the
// product for sale
func (a *AgroLedgerContract) DistributorAddCommission(ctx contractapi.TransactionContextInterface, id uint64) error {
	return a.advance(ctx, id, ledger.RoleDistributor)
}

// RetailerListForSale applies the retailer markup and lists the product for
// sale
func (a *AgroLedgerContract) RetailerListForSale(ctx contractapi.TransactionContextInterface, id uint64) error {
	return a.advance(ctx, id, ledger.RoleRetailer)
}

func (a *AgroLedgerContract) advance(ctx contractapi.TransactionContextInterface, id uint64, role ledger.Role) error {
	caller, err := callerID(ctx)
	if err != nil {
		return err
	}
	tx, err := a.engine(ctx)
	if err != nil {
		return err
	}
	if err := tx.AdvanceWithMarkup(id, role, caller); err != nil {
		return err
	}

	tx.events.flush(ctx.GetStub(), tx.logger)
	return nil
}

// GetProductDetails returns the public view of a product. Unknown ids yield a
// record with id 0.
func (a *AgroLedgerContract) GetProductDetails(ctx contractapi.TransactionContextInterface, id uint64) (*ProductDetails, error) {
	d, err := a.query(ctx).ProductDetails(id)
	if err != nil {
		return nil, err
	}
	return toDetails(d), nil
}

// Products returns the full stored record, including pricePerKg and qrCode
func (a *AgroLedgerContract) Products(ctx contractapi.TransactionContextInterface, id uint64) (*Product, error) {
	p, err := a.query(ctx).Product(id)
	if err != nil {
		return nil, err
	}
	return toProduct(p), nil
}

// GetProductHistory returns the custody log of a product
func (a *AgroLedgerContract) GetProductHistory(ctx contractapi.TransactionContextInterface, id uint64) ([]HistoryEvent, error) {
	history, err := a.query(ctx).ProductHistory(id)
	if err != nil {
		return nil, err
	}
	return toHistory(history), nil
}

// GetProductPriceHistory returns the price log of a product
func (a *AgroLedgerContract) GetProductPriceHistory(ctx contractapi.TransactionContextInterface, id uint64) ([]PriceEvent, error) {
	prices, err := a.query(ctx).PriceHistory(id)
	if err != nil {
		return nil, err
	}
	return toPrices(prices), nil
}

// ProductCount returns the number of products created so far
func (a *AgroLedgerContract) ProductCount(ctx contractapi.TransactionContextInterface) (uint64, error) {
	return a.query(ctx).ProductCount()
}

// GetAvailableProducts lists products on sale that the caller does not own
func (a *AgroLedgerContract) GetAvailableProducts(ctx contractapi.TransactionContextInterface) ([]*ProductDetails, error) {
	caller, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	return a.list(ctx, ledger.AvailableTo(caller))
}

// GetMyProducts lists products held by the caller
func (a *AgroLedgerContract) GetMyProducts(ctx contractapi.TransactionContextInterface) ([]*ProductDetails, error) {
	caller, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	return a.list(ctx, ledger.OwnedBy(caller))
}

// GetAllProducts lists every product in id order
func (a *AgroLedgerContract) GetAllProducts(ctx contractapi.TransactionContextInterface) ([]*ProductDetails, error) {
	return a.list(ctx, ledger.Filter{})
}

func (a *AgroLedgerContract) list(ctx contractapi.TransactionContextInterface, f ledger.Filter) ([]*ProductDetails, error) {
	list, err := a.query(ctx).ListProducts(f)
	if err != nil {
		return nil, err
	}
	return toDetailsList(list), nil
}

// GetProductLedgerHistory returns every committed version of a product record
// as kept by the peer
func (a *AgroLedgerContract) GetProductLedgerHistory(ctx contractapi.TransactionContextInterface,
	id uint64) ([]LedgerRecord, error) {

	resultsIterator, err := ctx.GetStub().GetHistoryForKey(productKey(id))
	if err != nil {
		return nil, err
	}
	defer resultsIterator.Close()

	records := []LedgerRecord{}
	for resultsIterator.HasNext() {
		response, err := resultsIterator.Next()
		if err != nil {
			return nil, err
		}

		record := LedgerRecord{TxID: response.TxId, IsDelete: response.IsDelete}
		if response.Timestamp != nil {
			record.Timestamp = response.Timestamp.AsTime().Unix()
		}
		if !response.IsDelete {
			var p ledger.Product
			if err := json.Unmarshal(response.Value, &p); err != nil {
				return nil, err
			}
			record.Value = *toProduct(p)
		}
		records = append(records, record)
	}

	return records, nil
}
