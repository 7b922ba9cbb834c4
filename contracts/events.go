package contracts

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"go.uber.org/zap"

	"github.com/agroledger/chaincode/agroledger/ledger"
)

// EventBatch names the chaincode event carrying several ledger events. A
// transaction can set only one chaincode event, so a transition that raises
// more than one is delivered as a JSON array of envelopes.
const EventBatch = "ProductEvents"

// eventRecorder collects the events raised during one transaction
type eventRecorder struct {
	events []ledger.Event
}

func (r *eventRecorder) Publish(evt ledger.Event) {
	r.events = append(r.events, evt)
}

// envelopes seals the recorded events. Ids derive from the transaction id so
// every endorser produces the same payload.
func (r *eventRecorder) envelopes(txID string) []ledger.Envelope {
	envs := make([]ledger.Envelope, 0, len(r.events))
	for i, evt := range r.events {
		id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s/%d", txID, i)))
		envs = append(envs, ledger.Seal(id, evt))
	}
	return envs
}

// flush sets the chaincode event for the transaction. The ledger mutation has
// already been written, so failures are logged and not returned.
func (r *eventRecorder) flush(stub shim.ChaincodeStubInterface, logger *zap.Logger) {
	if len(r.events) == 0 {
		return
	}

	envs := r.envelopes(stub.GetTxID())
	name := EventBatch
	var payload interface{} = envs
	if len(envs) == 1 {
		name = envs[0].Name
		payload = envs[0]
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Warn("failed to encode event", zap.String("event", name), zap.Error(err))
		return
	}
	if err := stub.SetEvent(name, raw); err != nil {
		logger.Warn("failed to emit event", zap.String("event", name), zap.Error(err))
	}
	r.events = nil
}
