package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/obligo/obligo-backend/internal/domain"
	"github.com/obligo/obligo-backend/internal/middleware"
	"github.com/obligo/obligo-backend/internal/service"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// AccountHandler handles account HTTP requests
type AccountHandler struct {
	accountService *service.AccountService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID             int32   `json:"id"`
	Name           string  `json:"name"`
	Currency       string  `json:"currency"`
	InitialBalance string  `json:"initialBalance"`
	CurrentBalance string  `json:"currentBalance"`
	OverdraftLimit *string `json:"overdraftLimit,omitempty"`
	IsActive       bool    `json:"isActive"`
}

// CreateAccountRequest represents the create account request body
type CreateAccountRequest struct {
	Name           string  `json:"name"`
	Currency       string  `json:"currency"`
	InitialBalance string  `json:"initialBalance"`
	OverdraftLimit *string `json:"overdraftLimit,omitempty"`
}

// CreateAccount handles POST /api/v1/accounts
func (h *AccountHandler) CreateAccount(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req CreateAccountRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	initialBalance := decimal.Zero
	if req.InitialBalance != "" {
		var err error
		initialBalance, err = decimal.NewFromString(req.InitialBalance)
		if err != nil {
			return NewValidationError(c, "Invalid initial balance", []ValidationError{
				{Field: "initialBalance", Message: "Must be a valid decimal number"},
			})
		}
	}
	var overdraftLimit *decimal.Decimal
	if req.OverdraftLimit != nil {
		limit, err := decimal.NewFromString(*req.OverdraftLimit)
		if err != nil {
			return NewValidationError(c, "Invalid overdraft limit", []ValidationError{
				{Field: "overdraftLimit", Message: "Must be a valid decimal number"},
			})
		}
		overdraftLimit = &limit
	}

	account, err := h.accountService.CreateAccount(userID, service.CreateAccountInput{
		Name:           req.Name,
		Currency:       req.Currency,
		InitialBalance: initialBalance,
		OverdraftLimit: overdraftLimit,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNameRequired):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "name", Message: "Name is required"},
			})
		case errors.Is(err, domain.ErrNameTooLong):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "name", Message: "Name exceeds maximum length"},
			})
		case errors.Is(err, domain.ErrInvalidCurrency):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "currency", Message: "Must be a 3-letter code"},
			})
		case errors.Is(err, domain.ErrInvalidAmount):
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "overdraftLimit", Message: "Must not be negative"},
			})
		default:
			log.Error().Err(err).Int32("user_id", userID).Msg("Failed to create account")
			return NewInternalError(c, "Failed to create account")
		}
	}

	log.Info().Int32("user_id", userID).Int32("account_id", account.ID).Msg("Account created")

	return c.JSON(http.StatusCreated, toAccountResponse(account))
}

// GetAccounts handles GET /api/v1/accounts
func (h *AccountHandler) GetAccounts(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "Authentication required")
	}

	accounts, err := h.accountService.ListAccounts(userID)
	if err != nil {
		log.Error().Err(err).Int32("user_id", userID).Msg("Failed to list accounts")
		return NewInternalError(c, "Failed to list accounts")
	}

	response := make([]AccountResponse, len(accounts))
	for i, account := range accounts {
		response[i] = toAccountResponse(account)
	}
	return c.JSON(http.StatusOK, response)
}

// GetAccount handles GET /api/v1/accounts/:id
func (h *AccountHandler) GetAccount(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid account ID", nil)
	}

	account, err := h.accountService.GetAccount(userID, int32(id))
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return NewNotFoundError(c, "Account not found")
		}
		log.Error().Err(err).Int32("user_id", userID).Int("account_id", id).Msg("Failed to get account")
		return NewInternalError(c, "Failed to get account")
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

func toAccountResponse(account *domain.Account) AccountResponse {
	resp := AccountResponse{
		ID:             account.ID,
		Name:           account.Name,
		Currency:       account.Currency,
		InitialBalance: account.InitialBalance.String(),
		CurrentBalance: account.CurrentBalance.String(),
		IsActive:       account.IsActive,
	}
	if account.OverdraftLimit != nil {
		limit := account.OverdraftLimit.String()
		resp.OverdraftLimit = &limit
	}
	return resp
}
