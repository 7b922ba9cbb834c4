package contracts

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/hyperledger/fabric-chaincode-go/shim"

	"github.com/agroledger/chaincode/agroledger/ledger"
)

const productCountKey = "product_count"

func productKey(id uint64) string {
	return fmt.Sprintf("product_%d", id)
}

func historyKey(id uint64) string {
	return fmt.Sprintf("history_%d", id)
}

func priceHistoryKey(id uint64) string {
	return fmt.Sprintf("price_history_%d", id)
}

// worldState keeps products and their logs in the channel world state.
// Every write lands in the transaction's write set, so a transaction that
// returns an error leaves nothing behind; conflicting writers are resolved by
// the peer's read-set validation at commit.
type worldState struct {
	stub shim.ChaincodeStubInterface
}

func newWorldState(stub shim.ChaincodeStubInterface) *worldState {
	return &worldState{stub: stub}
}

func (w *worldState) Create(build func(id uint64) (ledger.Mutation, error)) (uint64, error) {
	count, err := w.Count()
	if err != nil {
		return 0, err
	}

	id := count + 1
	m, err := build(id)
	if err != nil {
		return 0, err
	}
	if m.Product.ID != id {
		return 0, ledger.ValidationError("mutation for product %d carries id %d", id, m.Product.ID)
	}

	if err := w.putJSON(productKey(id), m.Product); err != nil {
		return 0, err
	}
	if err := w.putJSON(historyKey(id), nonNilHistory(m.History)); err != nil {
		return 0, err
	}
	if err := w.putJSON(priceHistoryKey(id), nonNilPrices(m.Prices)); err != nil {
		return 0, err
	}
	if err := w.stub.PutState(productCountKey, []byte(strconv.FormatUint(id, 10))); err != nil {
		return 0, fmt.Errorf("failed to update product count: %v", err)
	}
	return id, nil
}

func (w *worldState) Update(id uint64, apply func(current ledger.Record) (ledger.Mutation, error)) error {
	product, err := w.Product(id)
	if err != nil {
		return err
	}
	history, err := w.History(id)
	if err != nil {
		return err
	}
	prices, err := w.PriceHistory(id)
	if err != nil {
		return err
	}

	m, err := apply(ledger.Record{Product: product, History: history, Prices: prices})
	if err != nil {
		return err
	}
	if m.Product.ID != id {
		return ledger.ValidationError("mutation for product %d carries id %d", id, m.Product.ID)
	}

	if err := w.putJSON(productKey(id), m.Product); err != nil {
		return err
	}
	if len(m.History) > 0 {
		if err := w.putJSON(historyKey(id), append(history, m.History...)); err != nil {
			return err
		}
	}
	if len(m.Prices) > 0 {
		if err := w.putJSON(priceHistoryKey(id), append(prices, m.Prices...)); err != nil {
			return err
		}
	}
	return nil
}

func (w *worldState) Product(id uint64) (ledger.Product, error) {
	var p ledger.Product
	found, err := w.getJSON(productKey(id), &p)
	if err != nil {
		return ledger.Product{}, err
	}
	if !found {
		return ledger.Product{}, ledger.NotFoundError(id)
	}
	return p, nil
}

func (w *worldState) History(id uint64) ([]ledger.HistoryEvent, error) {
	var history []ledger.HistoryEvent
	found, err := w.getJSON(historyKey(id), &history)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ledger.NotFoundError(id)
	}
	return history, nil
}

func (w *worldState) PriceHistory(id uint64) ([]ledger.PriceEvent, error) {
	var prices []ledger.PriceEvent
	found, err := w.getJSON(priceHistoryKey(id), &prices)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ledger.NotFoundError(id)
	}
	return prices, nil
}

func (w *worldState) Count() (uint64, error) {
	raw, err := w.stub.GetState(productCountKey)
	if err != nil {
		return 0, fmt.Errorf("failed to read product count: %v", err)
	}
	if raw == nil {
		return 0, nil
	}
	count, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt product count %q: %v", raw, err)
	}
	return count, nil
}

func (w *worldState) getJSON(key string, v interface{}) (bool, error) {
	raw, err := w.stub.GetState(key)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %v", key, err)
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %v", key, err)
	}
	return true, nil
}

func (w *worldState) putJSON(key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := w.stub.PutState(key, raw); err != nil {
		return fmt.Errorf("failed to write %s: %v", key, err)
	}
	return nil
}

func nonNilHistory(h []ledger.HistoryEvent) []ledger.HistoryEvent {
	if h == nil {
		return []ledger.HistoryEvent{}
	}
	return h
}

func nonNilPrices(p []ledger.PriceEvent) []ledger.PriceEvent {
	if p == nil {
		return []ledger.PriceEvent{}
	}
	return p
}
