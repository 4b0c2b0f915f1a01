package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/obligo/obligo-backend/internal/domain"
	"github.com/obligo/obligo-backend/internal/util"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// GenerationService instantiates monthly expense instances from active
// recurring templates. Generation is idempotent: the unique index on
// (template, year, month) is the backstop, and a uniqueness violation on
// insert counts as skipped, never as an error.
type GenerationService struct {
	templateRepo domain.TemplateRepository
	instanceRepo domain.InstanceRepository
}

// NewGenerationService creates a new GenerationService
func NewGenerationService(templateRepo domain.TemplateRepository, instanceRepo domain.InstanceRepository) *GenerationService {
	return &GenerationService{
		templateRepo: templateRepo,
		instanceRepo: instanceRepo,
	}
}

// GenerateMonthly instantiates the given period for all users' active
// templates. Invoked by the scheduler.
func (s *GenerationService) GenerateMonthly(ctx context.Context, month, year int) (*domain.GenerationResult, error) {
	return s.generate(ctx, nil, month, year)
}

// GenerateMonthlyForUser instantiates the given period for one user's
// active templates. Invoked when the user opens their monthly view.
func (s *GenerationService) GenerateMonthlyForUser(ctx context.Context, userID int32, month, year int) (*domain.GenerationResult, error) {
	return s.generate(ctx, &userID, month, year)
}

func (s *GenerationService) generate(ctx context.Context, userID *int32, month, year int) (*domain.GenerationResult, error) {
	if month < 1 || month > 12 {
		return nil, domain.ErrInvalidMonth
	}
	if year < domain.MinGenerationYear {
		return nil, domain.ErrInvalidYear
	}

	templates, err := s.templateRepo.ListActive(userID)
	if err != nil {
		return nil, err
	}

	runID := uuid.New()
	result := &domain.GenerationResult{Month: month, Year: year}

	for _, tpl := range templates {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		// One template's failure never aborts the batch
		switch err := s.generateOne(tpl, month, year); {
		case err == nil:
			result.Created++
		case errors.Is(err, domain.ErrInstanceAlreadyExists):
			result.Skipped++
		default:
			result.Errors++
			log.Error().
				Err(err).
				Str("run_id", runID.String()).
				Int32("template_id", tpl.ID).
				Int("month", month).
				Int("year", year).
				Msg("Failed to generate monthly instance")
		}
	}

	log.Info().
		Str("run_id", runID.String()).
		Int("month", month).
		Int("year", year).
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Int("errors", result.Errors).
		Msg("Monthly generation run complete")

	return result, nil
}

// generateOne creates the instance for one template and period. Each call
// is its own atomic unit. Returns ErrInstanceAlreadyExists when the period
// is already instantiated, whether found by the pre-check or raced on
// insert.
func (s *GenerationService) generateOne(tpl *domain.RecurringExpense, month, year int) error {
	_, err := s.instanceRepo.GetByTemplatePeriod(tpl.ID, year, month)
	if err == nil {
		return domain.ErrInstanceAlreadyExists
	}
	if !errors.Is(err, domain.ErrInstanceNotFound) {
		return err
	}

	previousAmount, err := s.previousPaidAmount(tpl.ID, month, year)
	if err != nil {
		return err
	}

	instance := &domain.MonthlyInstance{
		TemplateID:     tpl.ID,
		UserID:         tpl.UserID,
		Month:          month,
		Year:           year,
		Concept:        tpl.Concept,
		CategoryID:     tpl.CategoryID,
		Currency:       tpl.Currency,
		Amount:         decimal.Zero,
		PreviousAmount: previousAmount,
		Status:         domain.InstanceStatusPending,
	}
	if tpl.DueDay != nil {
		dueDate := util.ClampedDate(year, time.Month(month), int(*tpl.DueDay))
		instance.DueDate = &dueDate
	}

	_, err = s.instanceRepo.Create(instance)
	return err
}

// previousPaidAmount returns the amount of the previous period's instance
// if it was paid, zero otherwise.
func (s *GenerationService) previousPaidAmount(templateID int32, month, year int) (decimal.Decimal, error) {
	prevYear, prevMonth := util.PreviousPeriod(year, month)

	prev, err := s.instanceRepo.GetByTemplatePeriod(templateID, prevYear, prevMonth)
	if err != nil {
		if errors.Is(err, domain.ErrInstanceNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	if prev.Status != domain.InstanceStatusPaid {
		return decimal.Zero, nil
	}
	return prev.Amount, nil
}

// ListInstances retrieves a user's instances for a period, optionally
// filtered by status.
func (s *GenerationService) ListInstances(userID int32, month, year int, status *domain.InstanceStatus) ([]*domain.MonthlyInstance, error) {
	if month < 1 || month > 12 {
		return nil, domain.ErrInvalidMonth
	}
	if year < domain.MinGenerationYear {
		return nil, domain.ErrInvalidYear
	}
	return s.instanceRepo.ListByUserPeriod(userID, year, month, status)
}
