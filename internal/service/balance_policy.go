package service

import (
	"github.com/obligo/obligo-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// OverdraftPolicy is the default balance policy: credits always pass, and
// debits pass unless they would push the balance below the account's
// overdraft floor. Accounts without an overdraft limit can go arbitrarily
// negative (cash accounts).
type OverdraftPolicy struct{}

// NewOverdraftPolicy creates a new OverdraftPolicy
func NewOverdraftPolicy() *OverdraftPolicy {
	return &OverdraftPolicy{}
}

// Authorize implements domain.BalancePolicy
func (p *OverdraftPolicy) Authorize(account *domain.Account, delta decimal.Decimal) error {
	if delta.GreaterThanOrEqual(decimal.Zero) {
		return nil
	}
	if account.OverdraftLimit == nil {
		return nil
	}
	floor := account.OverdraftLimit.Neg()
	if account.CurrentBalance.Add(delta).LessThan(floor) {
		return domain.ErrInsufficientBalance
	}
	return nil
}
