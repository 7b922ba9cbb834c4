package ledger

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// Accounts is an in-memory account book implementing Settlement
type Accounts struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
}

// NewAccounts creates an empty account book
func NewAccounts() *Accounts {
	return &Accounts{balances: make(map[string]decimal.Decimal)}
}

// Deposit credits holder with amount
func (a *Accounts) Deposit(holder string, amount decimal.Decimal) error {
	if strings.TrimSpace(holder) == "" {
		return ValidationError("holder is required")
	}
	if !amount.IsPositive() {
		return ValidationError("deposit amount %s must be positive", amount)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.balances[holder] = a.balances[holder].Add(amount)
	return nil
}

// Balance returns the available balance of holder
func (a *Accounts) Balance(holder string) decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balances[holder]
}

func (a *Accounts) Transfer(from, to string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ValidationError("transfer amount %s must not be negative", amount)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	available := a.balances[from]
	if available.LessThan(amount) {
		return InsufficientFundsError(0, "balance of %s is %s, %s required", from, available, amount)
	}
	a.balances[from] = available.Sub(amount)
	a.balances[to] = a.balances[to].Add(amount)
	return nil
}
