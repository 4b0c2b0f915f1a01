package domain

import "time"

// RecurringExpense is a recurring-obligation template (rent, subscriptions)
// that spawns one MonthlyInstance per calendar month while active.
type RecurringExpense struct {
	ID         int32      `json:"id"`
	UserID     int32      `json:"userId"`
	Concept    string     `json:"concept"`
	CategoryID int32      `json:"categoryId"`
	Currency   string     `json:"currency"`
	DueDay     *int32     `json:"dueDay,omitempty"`
	IsActive   bool       `json:"isActive"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	DeletedAt  *time.Time `json:"deletedAt,omitempty"`
}

type TemplateRepository interface {
	Create(template *RecurringExpense) (*RecurringExpense, error)
	GetByID(userID int32, id int32) (*RecurringExpense, error)
	ListByUser(userID int32, activeOnly bool) ([]*RecurringExpense, error)
	// ListActive returns active, non-deleted templates. A nil userID scopes
	// to all users (system-wide generation).
	ListActive(userID *int32) ([]*RecurringExpense, error)
	Update(template *RecurringExpense) (*RecurringExpense, error)
	SoftDelete(userID int32, id int32) error
}
