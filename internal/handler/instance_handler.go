package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/obligo/obligo-backend/internal/domain"
	"github.com/obligo/obligo-backend/internal/middleware"
	"github.com/obligo/obligo-backend/internal/service"
	"github.com/obligo/obligo-backend/internal/util"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// InstanceHandler handles monthly expense instance HTTP requests
type InstanceHandler struct {
	generationService *service.GenerationService
	paymentService    *service.PaymentService
}

// NewInstanceHandler creates a new InstanceHandler
func NewInstanceHandler(generationService *service.GenerationService, paymentService *service.PaymentService) *InstanceHandler {
	return &InstanceHandler{
		generationService: generationService,
		paymentService:    paymentService,
	}
}

// InstanceResponse represents a monthly expense instance in API responses
type InstanceResponse struct {
	ID             int32   `json:"id"`
	TemplateID     int32   `json:"templateId"`
	Month          int     `json:"month"`
	Year           int     `json:"year"`
	Concept        string  `json:"concept"`
	CategoryID     int32   `json:"categoryId"`
	Currency       string  `json:"currency"`
	DueDate        *string `json:"dueDate,omitempty"`
	Amount         string  `json:"amount"`
	PreviousAmount string  `json:"previousAmount"`
	Status         string  `json:"status"`
	AccountID      *int32  `json:"accountId,omitempty"`
	TransactionID  *int32  `json:"transactionId,omitempty"`
	PaidDate       *string `json:"paidDate,omitempty"`
	Notes          *string `json:"notes,omitempty"`
}

// TransactionResponse represents a ledger transaction in API responses
type TransactionResponse struct {
	ID        int32  `json:"id"`
	AccountID int32  `json:"accountId"`
	Type      string `json:"type"`
	Amount    string `json:"amount"`
	Concept   string `json:"concept"`
	Date      string `json:"date"`
}

// PayResponse represents the outcome of paying an instance
type PayResponse struct {
	Instance    InstanceResponse    `json:"instance"`
	Transaction TransactionResponse `json:"transaction"`
}

// GenerateRequest represents the generate instances request body
type GenerateRequest struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// PayRequest represents the pay instance request body
type PayRequest struct {
	Amount    string  `json:"amount"`
	AccountID int32   `json:"accountId"`
	PaidDate  *string `json:"paidDate,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

// EditPaymentRequest represents the edit payment request body
type EditPaymentRequest struct {
	Amount    *string `json:"amount,omitempty"`
	AccountID *int32  `json:"accountId,omitempty"`
	PaidDate  *string `json:"paidDate,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

// ListInstances handles GET /api/v1/monthly-instances
//
// Opening a period generates any missing instances for the user's active
// templates before listing, so a month always shows up fully populated.
func (h *InstanceHandler) ListInstances(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "Authentication required")
	}

	year, month, err := periodParams(c)
	if err != nil {
		return NewValidationError(c, "Invalid period", nil)
	}

	var status *domain.InstanceStatus
	if s := c.QueryParam("status"); s != "" {
		st := domain.InstanceStatus(s)
		if st != domain.InstanceStatusPending && st != domain.InstanceStatusPaid {
			return NewValidationError(c, "Invalid status filter", []ValidationError{
				{Field: "status", Message: "Must be 'pending' or 'paid'"},
			})
		}
		status = &st
	}

	if _, err := h.generationService.GenerateMonthlyForUser(c.Request().Context(), userID, month, year); err != nil {
		if errors.Is(err, domain.ErrInvalidMonth) || errors.Is(err, domain.ErrInvalidYear) {
			return NewValidationError(c, "Invalid period", nil)
		}
		log.Error().Err(err).Int32("user_id", userID).Int("month", month).Int("year", year).Msg("Failed to generate instances")
		return NewInternalError(c, "Failed to generate instances")
	}

	instances, err := h.generationService.ListInstances(userID, month, year, status)
	if err != nil {
		log.Error().Err(err).Int32("user_id", userID).Msg("Failed to list instances")
		return NewInternalError(c, "Failed to list instances")
	}

	response := make([]InstanceResponse, len(instances))
	for i, instance := range instances {
		response[i] = toInstanceResponse(instance)
	}
	return c.JSON(http.StatusOK, response)
}

// Generate handles POST /api/v1/monthly-instances/generate
func (h *InstanceHandler) Generate(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	if req.Month == 0 && req.Year == 0 {
		req.Year, req.Month = util.CurrentPeriod(time.Now())
	}

	result, err := h.generationService.GenerateMonthlyForUser(c.Request().Context(), userID, req.Month, req.Year)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidMonth) || errors.Is(err, domain.ErrInvalidYear) {
			return NewValidationError(c, "Invalid period", nil)
		}
		log.Error().Err(err).Int32("user_id", userID).Msg("Failed to generate instances")
		return NewInternalError(c, "Failed to generate instances")
	}

	return c.JSON(http.StatusOK, result)
}

// Pay handles POST /api/v1/monthly-instances/:id/pay
func (h *InstanceHandler) Pay(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "Authentication required")
	}

	instanceID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid instance ID", nil)
	}

	var req PayRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return NewValidationError(c, "Invalid amount", []ValidationError{
			{Field: "amount", Message: "Must be a valid decimal number"},
		})
	}
	paidDate, err := parseOptionalDate(req.PaidDate)
	if err != nil {
		return NewValidationError(c, "Invalid paid date", []ValidationError{
			{Field: "paidDate", Message: "Must be RFC 3339 or YYYY-MM-DD"},
		})
	}

	result, err := h.paymentService.PayInstance(c.Request().Context(), int32(instanceID), userID, service.PayInstanceInput{
		Amount:    amount,
		AccountID: req.AccountID,
		PaidDate:  paidDate,
		Notes:     req.Notes,
	})
	if err != nil {
		return h.paymentError(c, err, userID, instanceID, "Failed to pay instance")
	}

	log.Info().Int32("user_id", userID).Int("instance_id", instanceID).Str("amount", amount.String()).Msg("Instance paid")

	return c.JSON(http.StatusOK, PayResponse{
		Instance:    toInstanceResponse(result.Instance),
		Transaction: toTransactionResponse(result.Transaction),
	})
}

// EditPayment handles PATCH /api/v1/monthly-instances/:id/payment
func (h *InstanceHandler) EditPayment(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "Authentication required")
	}

	instanceID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid instance ID", nil)
	}

	var req EditPaymentRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	input := service.EditPaidInput{
		AccountID: req.AccountID,
		Notes:     req.Notes,
	}
	if req.Amount != nil {
		amount, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			return NewValidationError(c, "Invalid amount", []ValidationError{
				{Field: "amount", Message: "Must be a valid decimal number"},
			})
		}
		input.Amount = &amount
	}
	if req.PaidDate != nil {
		paidDate, err := parseOptionalDate(req.PaidDate)
		if err != nil {
			return NewValidationError(c, "Invalid paid date", []ValidationError{
				{Field: "paidDate", Message: "Must be RFC 3339 or YYYY-MM-DD"},
			})
		}
		input.PaidDate = paidDate
	}

	instance, err := h.paymentService.EditPaidInstance(c.Request().Context(), int32(instanceID), userID, input)
	if err != nil {
		return h.paymentError(c, err, userID, instanceID, "Failed to edit payment")
	}

	log.Info().Int32("user_id", userID).Int("instance_id", instanceID).Msg("Payment edited")

	return c.JSON(http.StatusOK, toInstanceResponse(instance))
}

// UndoPayment handles DELETE /api/v1/monthly-instances/:id/payment
func (h *InstanceHandler) UndoPayment(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "Authentication required")
	}

	instanceID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid instance ID", nil)
	}

	instance, err := h.paymentService.UndoPayment(c.Request().Context(), int32(instanceID), userID)
	if err != nil {
		return h.paymentError(c, err, userID, instanceID, "Failed to undo payment")
	}

	log.Info().Int32("user_id", userID).Int("instance_id", instanceID).Msg("Payment undone")

	return c.JSON(http.StatusOK, toInstanceResponse(instance))
}

// paymentError maps payment service errors to problem responses
func (h *InstanceHandler) paymentError(c echo.Context, err error, userID int32, instanceID int, logMsg string) error {
	switch {
	case errors.Is(err, domain.ErrInstanceNotFound):
		return NewNotFoundError(c, "Instance not found")
	case errors.Is(err, domain.ErrAccountNotFound):
		return NewNotFoundError(c, "Account not found or inactive")
	case errors.Is(err, domain.ErrInstanceAlreadyPaid):
		return NewConflictError(c, "Instance is already paid")
	case errors.Is(err, domain.ErrInstanceNotPaid):
		return NewConflictError(c, "Instance is not paid")
	case errors.Is(err, domain.ErrWriteConflict):
		return NewConflictError(c, "Concurrent modification detected, retry the operation")
	case errors.Is(err, domain.ErrInsufficientBalance):
		return NewConflictError(c, "Insufficient balance for this payment")
	case errors.Is(err, domain.ErrInvalidAmount):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "amount", Message: "Amount must be positive"},
		})
	case errors.Is(err, domain.ErrNotesTooLong):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "notes", Message: "Notes exceed maximum length"},
		})
	case errors.Is(err, domain.ErrNoFieldsToEdit):
		return NewValidationError(c, "No fields provided to edit", nil)
	default:
		log.Error().Err(err).Int32("user_id", userID).Int("instance_id", instanceID).Msg(logMsg)
		return NewInternalError(c, logMsg)
	}
}

func periodParams(c echo.Context) (year, month int, err error) {
	year, err = strconv.Atoi(c.QueryParam("year"))
	if err != nil {
		return 0, 0, err
	}
	month, err = strconv.Atoi(c.QueryParam("month"))
	if err != nil {
		return 0, 0, err
	}
	return year, month, nil
}

// parseOptionalDate accepts RFC 3339 timestamps and plain dates
func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, *s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func toInstanceResponse(instance *domain.MonthlyInstance) InstanceResponse {
	resp := InstanceResponse{
		ID:             instance.ID,
		TemplateID:     instance.TemplateID,
		Month:          instance.Month,
		Year:           instance.Year,
		Concept:        instance.Concept,
		CategoryID:     instance.CategoryID,
		Currency:       instance.Currency,
		Amount:         instance.Amount.String(),
		PreviousAmount: instance.PreviousAmount.String(),
		Status:         string(instance.Status),
		AccountID:      instance.AccountID,
		TransactionID:  instance.TransactionID,
		Notes:          instance.Notes,
	}
	if instance.DueDate != nil {
		dueDate := instance.DueDate.Format("2006-01-02")
		resp.DueDate = &dueDate
	}
	if instance.PaidDate != nil {
		paidDate := instance.PaidDate.Format(time.RFC3339)
		resp.PaidDate = &paidDate
	}
	return resp
}

func toTransactionResponse(transaction *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:        transaction.ID,
		AccountID: transaction.AccountID,
		Type:      string(transaction.Type),
		Amount:    transaction.Amount.String(),
		Concept:   transaction.Concept,
		Date:      transaction.Date.Format(time.RFC3339),
	}
}
