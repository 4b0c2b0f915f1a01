package domain

type CategoryScope string

const (
	CategoryScopeExpense CategoryScope = "expense"
	CategoryScopeIncome  CategoryScope = "income"
)

// Category is consumed as a read-only collaborator: templates reference a
// category, and template creation validates ownership and scope. Category
// CRUD lives outside this service.
type Category struct {
	ID     int32         `json:"id"`
	UserID int32         `json:"userId"`
	Name   string        `json:"name"`
	Scope  CategoryScope `json:"scope"`
}

type CategoryRepository interface {
	GetByID(userID int32, id int32) (*Category, error)
}
