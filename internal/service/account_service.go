package service

import (
	"strings"

	"github.com/obligo/obligo-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// AccountService manages accounts
type AccountService struct {
	accountRepo domain.AccountRepository
}

// NewAccountService creates a new AccountService
func NewAccountService(accountRepo domain.AccountRepository) *AccountService {
	return &AccountService{accountRepo: accountRepo}
}

// CreateAccountInput holds the input for creating an account
type CreateAccountInput struct {
	Name           string
	Currency       string
	InitialBalance decimal.Decimal
	OverdraftLimit *decimal.Decimal
}

// CreateAccount validates and creates a new account. The current balance
// starts at the initial balance.
func (s *AccountService) CreateAccount(userID int32, input CreateAccountInput) (*domain.Account, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}
	if len(name) > domain.MaxAccountNameLength {
		return nil, domain.ErrNameTooLong
	}
	currency, err := normalizeCurrency(input.Currency)
	if err != nil {
		return nil, err
	}
	if input.OverdraftLimit != nil && input.OverdraftLimit.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}

	return s.accountRepo.Create(&domain.Account{
		UserID:         userID,
		Name:           name,
		Currency:       currency,
		InitialBalance: input.InitialBalance,
		CurrentBalance: input.InitialBalance,
		OverdraftLimit: input.OverdraftLimit,
		IsActive:       true,
	})
}

// GetAccount retrieves one of the user's accounts
func (s *AccountService) GetAccount(userID, id int32) (*domain.Account, error) {
	return s.accountRepo.GetByID(userID, id)
}

// ListAccounts retrieves the user's accounts
func (s *AccountService) ListAccounts(userID int32) ([]*domain.Account, error) {
	return s.accountRepo.ListByUser(userID)
}
