package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type InstanceStatus string

const (
	InstanceStatusPending InstanceStatus = "pending"
	InstanceStatusPaid    InstanceStatus = "paid"
)

// MonthlyInstance is the realization of a RecurringExpense for one
// (month, year) period. Concept, category and currency are snapshots taken
// at generation time; later template edits do not touch them.
//
// While pending: Amount is zero and AccountID/TransactionID/PaidDate/Notes
// are nil. PreviousAmount is an informational hint carried from the most
// recent paid prior-period instance of the same template.
type MonthlyInstance struct {
	ID             int32           `json:"id"`
	TemplateID     int32           `json:"templateId"`
	UserID         int32           `json:"userId"`
	Month          int             `json:"month"`
	Year           int             `json:"year"`
	Concept        string          `json:"concept"`
	CategoryID     int32           `json:"categoryId"`
	Currency       string          `json:"currency"`
	DueDate        *time.Time      `json:"dueDate,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	PreviousAmount decimal.Decimal `json:"previousAmount"`
	Status         InstanceStatus  `json:"status"`
	AccountID      *int32          `json:"accountId,omitempty"`
	TransactionID  *int32          `json:"transactionId,omitempty"`
	PaidDate       *time.Time      `json:"paidDate,omitempty"`
	Notes          *string         `json:"notes,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// GenerationResult reports one generation run for a period.
type GenerationResult struct {
	Month   int `json:"month"`
	Year    int `json:"year"`
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// PaymentUpdate carries the paid-state fields written by the payment
// transactor when paying or editing an instance.
type PaymentUpdate struct {
	Amount        decimal.Decimal
	AccountID     int32
	TransactionID int32
	PaidDate      time.Time
	Notes         *string
}

type InstanceRepository interface {
	// Create inserts a pending instance. A uniqueness violation on
	// (template, year, month) returns ErrInstanceAlreadyExists.
	Create(instance *MonthlyInstance) (*MonthlyInstance, error)
	GetByID(userID int32, id int32) (*MonthlyInstance, error)
	// GetByIDTx reads the instance inside tx, locking the row.
	GetByIDTx(tx Tx, userID int32, id int32) (*MonthlyInstance, error)
	GetByTemplatePeriod(templateID int32, year, month int) (*MonthlyInstance, error)
	ListByUserPeriod(userID int32, year, month int, status *InstanceStatus) ([]*MonthlyInstance, error)
	// MarkPaidTx transitions pending -> paid. The update is guarded on
	// status = pending; losing a race returns ErrInstanceAlreadyPaid.
	MarkPaidTx(tx Tx, userID int32, id int32, upd *PaymentUpdate) (*MonthlyInstance, error)
	// UpdatePaymentTx rewrites the paid-state fields of a paid instance,
	// guarded on status = paid.
	UpdatePaymentTx(tx Tx, userID int32, id int32, upd *PaymentUpdate) (*MonthlyInstance, error)
	// ResetPendingTx transitions paid -> pending, clearing amount, account,
	// transaction link, paid date and notes. PreviousAmount is untouched.
	ResetPendingTx(tx Tx, userID int32, id int32) (*MonthlyInstance, error)
}

// Tx is an opaque storage transaction handle (pgx.Tx in the postgres
// implementation). Repositories with ...Tx methods execute inside it.
type Tx = any

// TxManager scopes a storage transaction around fn with guaranteed
// commit-or-rollback on all exit paths. Write conflicts detected at commit
// surface as ErrWriteConflict.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
