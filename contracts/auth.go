package contracts

import (
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/agroledger/chaincode/agroledger/ledger"
)

// callerID returns the unique id of the submitting client. Owners and
// balances are keyed by it.
func callerID(ctx contractapi.TransactionContextInterface) (string, error) {
	id, err := ctx.GetClientIdentity().GetID()
	if err != nil {
		return "", fmt.Errorf("failed to get client identity: %v", err)
	}
	return id, nil
}

// requireIssuer checks that the caller belongs to an organization allowed to
// issue funds and returns its MSP id
func requireIssuer(ctx contractapi.TransactionContextInterface, issuers map[string]bool) (string, error) {
	mspID, err := ctx.GetClientIdentity().GetMSPID()
	if err != nil {
		return "", fmt.Errorf("failed to get caller organization: %v", err)
	}
	if !issuers[mspID] {
		return "", ledger.UnauthorizedError("organization %s is not allowed to issue funds", mspID)
	}
	return mspID, nil
}
