package domain

import "errors"

// Not-found errors. Ownership mismatches surface as not-found so callers
// cannot probe other users' data.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrTemplateNotFound    = errors.New("recurring expense not found")
	ErrInstanceNotFound    = errors.New("monthly expense instance not found")
	ErrAccountNotFound     = errors.New("account not found or inactive")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrTransactionNotFound = errors.New("transaction not found")
)

// Invalid-state errors.
var (
	// ErrInstanceAlreadyExists signals that an instance for the same
	// (template, year, month) already exists. The generation engine treats
	// this as a benign skip.
	ErrInstanceAlreadyExists = errors.New("instance already generated for this period")
	ErrInstanceAlreadyPaid   = errors.New("expense instance is already paid")
	ErrInstanceNotPaid       = errors.New("can only modify paid expense instances")
)

// Validation errors, rejected before any atomic unit begins.
var (
	ErrInvalidAmount   = errors.New("amount must be greater than zero")
	ErrInvalidMonth    = errors.New("month must be between 1 and 12")
	ErrInvalidYear     = errors.New("year is out of range")
	ErrInvalidDueDay   = errors.New("due day must be between 1 and 31")
	ErrInvalidCurrency = errors.New("currency must be a 3-letter code")
	ErrConceptRequired = errors.New("concept is required")
	ErrConceptTooLong  = errors.New("concept exceeds maximum length")
	ErrNameRequired    = errors.New("name is required")
	ErrNameTooLong     = errors.New("name exceeds maximum length")
	ErrNotesTooLong    = errors.New("notes exceed maximum length")
	ErrCategoryScope   = errors.New("category does not have the expense scope")
	ErrNoFieldsToEdit  = errors.New("no fields provided to edit")
)

// ErrInsufficientBalance is returned when the balance policy vetoes a debit.
var ErrInsufficientBalance = errors.New("insufficient balance for this payment")

// ErrWriteConflict is returned when the storage layer detects that a
// concurrent mutation collided with this one. The whole operation aborted
// with no side effects and is safe to retry.
var ErrWriteConflict = errors.New("concurrent modification detected, retry the operation")

// Validation constants
const (
	MaxConceptLength     = 255
	MaxAccountNameLength = 255
	MaxNotesLength       = 1000
	MinGenerationYear    = 2000
)
