/**
 * @description
 * Cron scheduler for the background expiry sweep. Read paths already sweep
 * before serving, so this job is a reconciliation pass that keeps stored
 * statuses current even when nobody is reading.
 */
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/renewly/renewal-service/internal/config"
	"github.com/robfig/cron/v3"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron    *cron.Cron
	service *Service
	logger  *slog.Logger
	config  config.Config
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(service *Service, logger *slog.Logger, cfg config.Config) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:    c,
		service: service,
		logger:  logger,
		config:  cfg,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.config.ExpirySweepSchedule, s.runExpirySweep); err != nil {
		s.logger.Error("failed to schedule expiry sweep job", "error", err)
	} else {
		s.logger.Info("scheduled expiry sweep job", "schedule", s.config.ExpirySweepSchedule)
	}

	s.cron.Start()
}

// Stop stops the scheduler and returns a context that is done once running
// jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) runExpirySweep() {
	s.logger.Info("starting expiry sweep job")
	ctx := context.Background()

	count, err := s.service.SweepExpired(ctx, time.Now())
	if err != nil {
		s.logger.Error("expiry sweep job failed", "error", err)
		return
	}

	s.logger.Info("expiry sweep job finished", "marked_expired", count)
}
