package contracts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/agroledger/chaincode/agroledger/ledger"
)

// EventFundsIssued is emitted when an issuer credits an account
const EventFundsIssued = "FundsIssued"

// Account is the balance record of one client identity
type Account struct {
	Holder  string          `json:"holder"`
	Balance decimal.Decimal `json:"balance"`
}

// FundsIssued is the payload of EventFundsIssued
type FundsIssued struct {
	Holder  string `json:"holder"`
	Amount  string `json:"amount"`
	Issuer  string `json:"issuer"`
	Balance string `json:"balance"`
}

func balanceKey(holder string) string {
	return "balance_" + holder
}

// worldStateAccounts settles purchases against balances kept in world state
type worldStateAccounts struct {
	stub shim.ChaincodeStubInterface
}

func newWorldStateAccounts(stub shim.ChaincodeStubInterface) *worldStateAccounts {
	return &worldStateAccounts{stub: stub}
}

func (a *worldStateAccounts) Balance(holder string) (decimal.Decimal, error) {
	raw, err := a.stub.GetState(balanceKey(holder))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balance of %s: %v", holder, err)
	}
	if raw == nil {
		return decimal.Zero, nil
	}
	var acct Account
	if err := json.Unmarshal(raw, &acct); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode balance of %s: %v", holder, err)
	}
	return acct.Balance, nil
}

func (a *worldStateAccounts) put(holder string, balance decimal.Decimal) error {
	raw, err := json.Marshal(Account{Holder: holder, Balance: balance})
	if err != nil {
		return err
	}
	return a.stub.PutState(balanceKey(holder), raw)
}

func (a *worldStateAccounts) Deposit(holder string, amount decimal.Decimal) (decimal.Decimal, error) {
	if strings.TrimSpace(holder) == "" {
		return decimal.Zero, ledger.ValidationError("holder is required")
	}
	if !amount.IsPositive() {
		return decimal.Zero, ledger.ValidationError("deposit amount %s must be positive", amount)
	}
	balance, err := a.Balance(holder)
	if err != nil {
		return decimal.Zero, err
	}
	balance = balance.Add(amount)
	return balance, a.put(holder, balance)
}

func (a *worldStateAccounts) Transfer(from, to string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ledger.ValidationError("transfer amount %s must not be negative", amount)
	}
	if from == to {
		return nil
	}

	fromBalance, err := a.Balance(from)
	if err != nil {
		return err
	}
	if fromBalance.LessThan(amount) {
		return ledger.InsufficientFundsError(0, "balance of %s is %s, %s required", from, fromBalance, amount)
	}
	toBalance, err := a.Balance(to)
	if err != nil {
		return err
	}

	if err := a.put(from, fromBalance.Sub(amount)); err != nil {
		return err
	}
	return a.put(to, toBalance.Add(amount))
}

// FundsContract keeps the balances purchases are settled against
type FundsContract struct {
	contractapi.Contract

	issuers map[string]bool
	logger  *zap.Logger
}

// NewFundsContract creates the funds contract. Only clients of the given
// organizations may issue funds.
func NewFundsContract(issuerMSPs []string, logger *zap.Logger) *FundsContract {
	if logger == nil {
		logger = zap.NewNop()
	}
	issuers := make(map[string]bool, len(issuerMSPs))
	for _, msp := range issuerMSPs {
		issuers[msp] = true
	}
	return &FundsContract{issuers: issuers, logger: logger}
}

// IssueFunds credits holder with amount minor units
func (f *FundsContract) IssueFunds(ctx contractapi.TransactionContextInterface,
	holder string, amount string) error {

	issuer, err := requireIssuer(ctx, f.issuers)
	if err != nil {
		return err
	}

	value, err := ledger.ParseAmount(amount)
	if err != nil {
		return err
	}

	balance, err := newWorldStateAccounts(ctx.GetStub()).Deposit(holder, value)
	if err != nil {
		return err
	}

	f.logger.Info("funds issued",
		zap.String("tx_id", ctx.GetStub().GetTxID()),
		zap.String("holder", holder),
		zap.String("issuer", issuer),
		zap.String("amount", value.String()))

	payload, err := json.Marshal(FundsIssued{Holder: holder, Amount: value.String(), Issuer: issuer, Balance: balance.String()})
	if err != nil {
		return err
	}
	if err := ctx.GetStub().SetEvent(EventFundsIssued, payload); err != nil {
		f.logger.Warn("failed to emit event", zap.String("event", EventFundsIssued), zap.Error(err))
	}
	return nil
}

// BalanceOf returns the balance of holder
func (f *FundsContract) BalanceOf(ctx contractapi.TransactionContextInterface, holder string) (string, error) {
	balance, err := newWorldStateAccounts(ctx.GetStub()).Balance(holder)
	if err != nil {
		return "", err
	}
	return balance.String(), nil
}

// MyBalance returns the balance of the calling identity
func (f *FundsContract) MyBalance(ctx contractapi.TransactionContextInterface) (string, error) {
	caller, err := callerID(ctx)
	if err != nil {
		return "", err
	}
	return f.BalanceOf(ctx, caller)
}

// WhoAmI returns the identity string the ledger records for the caller
func (f *FundsContract) WhoAmI(ctx contractapi.TransactionContextInterface) (string, error) {
	return callerID(ctx)
}
