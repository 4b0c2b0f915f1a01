package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Transaction is a ledger line recording money moving out of (or into) an
// account. One is created when a monthly instance is paid, kept in lockstep
// with the instance by edits, and deleted when the payment is undone.
type Transaction struct {
	ID         int32           `json:"id"`
	UserID     int32           `json:"userId"`
	AccountID  int32           `json:"accountId"`
	CategoryID int32           `json:"categoryId"`
	Type       TransactionType `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	Concept    string          `json:"concept"`
	Date       time.Time       `json:"date"`
	Notes      *string         `json:"notes,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// TransactionUpdate carries the mutable fields of a ledger transaction.
type TransactionUpdate struct {
	Amount    decimal.Decimal
	AccountID int32
	Date      time.Time
	Notes     *string
}

type TransactionRepository interface {
	CreateTx(tx Tx, transaction *Transaction) (*Transaction, error)
	GetByID(userID int32, id int32) (*Transaction, error)
	UpdateTx(tx Tx, userID int32, id int32, upd *TransactionUpdate) (*Transaction, error)
	DeleteTx(tx Tx, userID int32, id int32) error
}
