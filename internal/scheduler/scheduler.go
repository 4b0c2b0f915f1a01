package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/obligo/obligo-backend/internal/domain"
	"github.com/obligo/obligo-backend/internal/util"
)

// Generator runs a generation pass for one period across all users
type Generator interface {
	GenerateMonthly(ctx context.Context, month, year int) (*domain.GenerationResult, error)
}

// Scheduler drives the system-wide monthly generation run. Generation is
// idempotent, so an overlapping on-demand run or a restart mid-schedule is
// harmless.
type Scheduler struct {
	cron      *cron.Cron
	generator Generator
	spec      string
	now       func() time.Time
}

// New creates a Scheduler that fires generation on the given cron spec
func New(generator Generator, spec string) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		generator: generator,
		spec:      spec,
		now:       time.Now,
	}
}

// Start registers the cron entry and starts the scheduler
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, s.runOnce)
	if err != nil {
		return err
	}
	s.cron.Start()
	log.Info().Str("spec", s.spec).Msg("Generation scheduler started")
	return nil
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) runOnce() {
	year, month := util.CurrentPeriod(s.now())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	result, err := s.generator.GenerateMonthly(ctx, month, year)
	if err != nil {
		log.Error().Err(err).Int("month", month).Int("year", year).Msg("Scheduled generation failed")
		return
	}
	log.Info().
		Int("month", month).
		Int("year", year).
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Int("errors", result.Errors).
		Msg("Scheduled generation finished")
}
