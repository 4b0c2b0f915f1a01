package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account holds a running balance. CurrentBalance always equals
// InitialBalance plus the signed sum of all live transactions against the
// account; the payment transactor is the only component that mutates it,
// and always in the same atomic unit as the paired transaction write.
type Account struct {
	ID             int32           `json:"id"`
	UserID         int32           `json:"userId"`
	Name           string          `json:"name"`
	Currency       string          `json:"currency"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
	CurrentBalance decimal.Decimal `json:"currentBalance"`
	// OverdraftLimit caps how far below zero the balance may go. Nil means
	// no floor (cash accounts can go arbitrarily negative).
	OverdraftLimit *decimal.Decimal `json:"overdraftLimit,omitempty"`
	IsActive       bool             `json:"isActive"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
	DeletedAt      *time.Time       `json:"deletedAt,omitempty"`
}

type AccountRepository interface {
	Create(account *Account) (*Account, error)
	GetByID(userID int32, id int32) (*Account, error)
	ListByUser(userID int32) ([]*Account, error)
	// GetActiveByIDTx reads an active account inside tx, locking the row
	// for the duration of the transaction.
	GetActiveByIDTx(tx Tx, userID int32, id int32) (*Account, error)
	// AdjustBalanceTx applies delta to the account's current balance and
	// returns the new balance.
	AdjustBalanceTx(tx Tx, id int32, delta decimal.Decimal) (decimal.Decimal, error)
}

// BalancePolicy decides whether a balance mutation may proceed. It is
// consulted inside the atomic unit, before any write, and vetoes with
// ErrInsufficientBalance.
type BalancePolicy interface {
	Authorize(account *Account, delta decimal.Decimal) error
}
