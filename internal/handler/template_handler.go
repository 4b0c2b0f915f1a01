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
	"github.com/rs/zerolog/log"
)

// TemplateHandler handles recurring expense template HTTP requests
type TemplateHandler struct {
	templateService *service.TemplateService
}

// NewTemplateHandler creates a new TemplateHandler
func NewTemplateHandler(templateService *service.TemplateService) *TemplateHandler {
	return &TemplateHandler{templateService: templateService}
}

// TemplateResponse represents a recurring expense template in API responses
type TemplateResponse struct {
	ID         int32  `json:"id"`
	Concept    string `json:"concept"`
	CategoryID int32  `json:"categoryId"`
	Currency   string `json:"currency"`
	DueDay     *int32 `json:"dueDay,omitempty"`
	IsActive   bool   `json:"isActive"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

// CreateTemplateRequest represents the create template request body
type CreateTemplateRequest struct {
	Concept    string `json:"concept"`
	CategoryID int32  `json:"categoryId"`
	Currency   string `json:"currency"`
	DueDay     *int32 `json:"dueDay,omitempty"`
}

// UpdateTemplateRequest represents the update template request body
type UpdateTemplateRequest struct {
	Concept    *string `json:"concept,omitempty"`
	CategoryID *int32  `json:"categoryId,omitempty"`
	Currency   *string `json:"currency,omitempty"`
	DueDay     *int32  `json:"dueDay,omitempty"`
	ClearDue   bool    `json:"clearDueDay,omitempty"`
	IsActive   *bool   `json:"isActive,omitempty"`
}

// CreateTemplate handles POST /api/v1/recurring-expenses
func (h *TemplateHandler) CreateTemplate(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req CreateTemplateRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	template, err := h.templateService.CreateTemplate(userID, service.CreateTemplateInput{
		Concept:    req.Concept,
		CategoryID: req.CategoryID,
		Currency:   req.Currency,
		DueDay:     req.DueDay,
	})
	if err != nil {
		return h.templateError(c, err, userID, "Failed to create template")
	}

	log.Info().Int32("user_id", userID).Int32("template_id", template.ID).Msg("Template created")

	return c.JSON(http.StatusCreated, toTemplateResponse(template))
}

// GetTemplates handles GET /api/v1/recurring-expenses
func (h *TemplateHandler) GetTemplates(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "Authentication required")
	}

	activeOnly := c.QueryParam("active") == "true"
	templates, err := h.templateService.ListTemplates(userID, activeOnly)
	if err != nil {
		log.Error().Err(err).Int32("user_id", userID).Msg("Failed to list templates")
		return NewInternalError(c, "Failed to list templates")
	}

	response := make([]TemplateResponse, len(templates))
	for i, template := range templates {
		response[i] = toTemplateResponse(template)
	}
	return c.JSON(http.StatusOK, response)
}

// GetTemplate handles GET /api/v1/recurring-expenses/:id
func (h *TemplateHandler) GetTemplate(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid template ID", nil)
	}

	template, err := h.templateService.GetTemplate(userID, int32(id))
	if err != nil {
		if errors.Is(err, domain.ErrTemplateNotFound) {
			return NewNotFoundError(c, "Template not found")
		}
		log.Error().Err(err).Int32("user_id", userID).Int("template_id", id).Msg("Failed to get template")
		return NewInternalError(c, "Failed to get template")
	}
	return c.JSON(http.StatusOK, toTemplateResponse(template))
}

// UpdateTemplate handles PATCH /api/v1/recurring-expenses/:id
func (h *TemplateHandler) UpdateTemplate(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid template ID", nil)
	}

	var req UpdateTemplateRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	template, err := h.templateService.UpdateTemplate(userID, int32(id), service.UpdateTemplateInput{
		Concept:    req.Concept,
		CategoryID: req.CategoryID,
		Currency:   req.Currency,
		DueDay:     req.DueDay,
		ClearDue:   req.ClearDue,
		IsActive:   req.IsActive,
	})
	if err != nil {
		return h.templateError(c, err, userID, "Failed to update template")
	}

	log.Info().Int32("user_id", userID).Int("template_id", id).Msg("Template updated")

	return c.JSON(http.StatusOK, toTemplateResponse(template))
}

// DeleteTemplate handles DELETE /api/v1/recurring-expenses/:id
func (h *TemplateHandler) DeleteTemplate(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid template ID", nil)
	}

	if err := h.templateService.DeleteTemplate(userID, int32(id)); err != nil {
		if errors.Is(err, domain.ErrTemplateNotFound) {
			return NewNotFoundError(c, "Template not found")
		}
		log.Error().Err(err).Int32("user_id", userID).Int("template_id", id).Msg("Failed to delete template")
		return NewInternalError(c, "Failed to delete template")
	}

	log.Info().Int32("user_id", userID).Int("template_id", id).Msg("Template deleted")

	return c.NoContent(http.StatusNoContent)
}

func (h *TemplateHandler) templateError(c echo.Context, err error, userID int32, logMsg string) error {
	switch {
	case errors.Is(err, domain.ErrTemplateNotFound):
		return NewNotFoundError(c, "Template not found")
	case errors.Is(err, domain.ErrCategoryNotFound):
		return NewNotFoundError(c, "Category not found")
	case errors.Is(err, domain.ErrCategoryScope):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "categoryId", Message: "Category must have the expense scope"},
		})
	case errors.Is(err, domain.ErrConceptRequired):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "concept", Message: "Concept is required"},
		})
	case errors.Is(err, domain.ErrConceptTooLong):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "concept", Message: "Concept exceeds maximum length"},
		})
	case errors.Is(err, domain.ErrInvalidCurrency):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "currency", Message: "Must be a 3-letter code"},
		})
	case errors.Is(err, domain.ErrInvalidDueDay):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "dueDay", Message: "Must be between 1 and 31"},
		})
	case errors.Is(err, domain.ErrNoFieldsToEdit):
		return NewValidationError(c, "No fields provided to edit", nil)
	default:
		log.Error().Err(err).Int32("user_id", userID).Msg(logMsg)
		return NewInternalError(c, logMsg)
	}
}

func toTemplateResponse(template *domain.RecurringExpense) TemplateResponse {
	return TemplateResponse{
		ID:         template.ID,
		Concept:    template.Concept,
		CategoryID: template.CategoryID,
		Currency:   template.Currency,
		DueDay:     template.DueDay,
		IsActive:   template.IsActive,
		CreatedAt:  template.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  template.UpdatedAt.Format(time.RFC3339),
	}
}
