package service

import (
	"strings"

	"github.com/obligo/obligo-backend/internal/domain"
)

// TemplateService manages recurring expense templates
type TemplateService struct {
	templateRepo domain.TemplateRepository
	categoryRepo domain.CategoryRepository
}

// NewTemplateService creates a new TemplateService
func NewTemplateService(templateRepo domain.TemplateRepository, categoryRepo domain.CategoryRepository) *TemplateService {
	return &TemplateService{
		templateRepo: templateRepo,
		categoryRepo: categoryRepo,
	}
}

// CreateTemplateInput holds the input for creating a recurring expense
type CreateTemplateInput struct {
	Concept    string
	CategoryID int32
	Currency   string
	DueDay     *int32
}

// CreateTemplate validates and creates a new recurring expense template.
// New templates start active.
func (s *TemplateService) CreateTemplate(userID int32, input CreateTemplateInput) (*domain.RecurringExpense, error) {
	concept, err := normalizeConcept(input.Concept)
	if err != nil {
		return nil, err
	}
	currency, err := normalizeCurrency(input.Currency)
	if err != nil {
		return nil, err
	}
	if input.DueDay != nil && (*input.DueDay < 1 || *input.DueDay > 31) {
		return nil, domain.ErrInvalidDueDay
	}
	if err := s.validateCategory(userID, input.CategoryID); err != nil {
		return nil, err
	}

	return s.templateRepo.Create(&domain.RecurringExpense{
		UserID:     userID,
		Concept:    concept,
		CategoryID: input.CategoryID,
		Currency:   currency,
		DueDay:     input.DueDay,
		IsActive:   true,
	})
}

// UpdateTemplateInput holds the fields to change on a template. Nil fields
// are left unchanged. Edits never touch already-generated instances, which
// keep their generation-time snapshots.
type UpdateTemplateInput struct {
	Concept    *string
	CategoryID *int32
	Currency   *string
	DueDay     *int32
	ClearDue   bool
	IsActive   *bool
}

// UpdateTemplate validates and applies a partial update to a template
func (s *TemplateService) UpdateTemplate(userID, id int32, input UpdateTemplateInput) (*domain.RecurringExpense, error) {
	if input.Concept == nil && input.CategoryID == nil && input.Currency == nil &&
		input.DueDay == nil && !input.ClearDue && input.IsActive == nil {
		return nil, domain.ErrNoFieldsToEdit
	}

	template, err := s.templateRepo.GetByID(userID, id)
	if err != nil {
		return nil, err
	}

	if input.Concept != nil {
		concept, err := normalizeConcept(*input.Concept)
		if err != nil {
			return nil, err
		}
		template.Concept = concept
	}
	if input.Currency != nil {
		currency, err := normalizeCurrency(*input.Currency)
		if err != nil {
			return nil, err
		}
		template.Currency = currency
	}
	if input.CategoryID != nil {
		if err := s.validateCategory(userID, *input.CategoryID); err != nil {
			return nil, err
		}
		template.CategoryID = *input.CategoryID
	}
	if input.ClearDue {
		template.DueDay = nil
	} else if input.DueDay != nil {
		if *input.DueDay < 1 || *input.DueDay > 31 {
			return nil, domain.ErrInvalidDueDay
		}
		template.DueDay = input.DueDay
	}
	if input.IsActive != nil {
		template.IsActive = *input.IsActive
	}

	return s.templateRepo.Update(template)
}

// GetTemplate retrieves one of the user's templates
func (s *TemplateService) GetTemplate(userID, id int32) (*domain.RecurringExpense, error) {
	return s.templateRepo.GetByID(userID, id)
}

// ListTemplates retrieves the user's templates, optionally active ones only
func (s *TemplateService) ListTemplates(userID int32, activeOnly bool) ([]*domain.RecurringExpense, error) {
	return s.templateRepo.ListByUser(userID, activeOnly)
}

// DeleteTemplate soft-deletes a template. Existing instances survive; the
// template just stops generating new ones.
func (s *TemplateService) DeleteTemplate(userID, id int32) error {
	return s.templateRepo.SoftDelete(userID, id)
}

// validateCategory checks that the category belongs to the user and has the
// expense scope.
func (s *TemplateService) validateCategory(userID, categoryID int32) error {
	category, err := s.categoryRepo.GetByID(userID, categoryID)
	if err != nil {
		return err
	}
	if category.Scope != domain.CategoryScopeExpense {
		return domain.ErrCategoryScope
	}
	return nil
}

func normalizeConcept(concept string) (string, error) {
	trimmed := strings.TrimSpace(concept)
	if trimmed == "" {
		return "", domain.ErrConceptRequired
	}
	if len(trimmed) > domain.MaxConceptLength {
		return "", domain.ErrConceptTooLong
	}
	return trimmed, nil
}

func normalizeCurrency(currency string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(currency))
	if len(trimmed) != 3 {
		return "", domain.ErrInvalidCurrency
	}
	for _, r := range trimmed {
		if r < 'A' || r > 'Z' {
			return "", domain.ErrInvalidCurrency
		}
	}
	return trimmed, nil
}
