// Package jobs schedules recurring pipeline runs.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mentorlane/insights/pkg/logger"
	"github.com/mentorlane/insights/pkg/pipeline"
)

// CronManager manages scheduled jobs
type CronManager struct {
	cron   *cron.Cron
	runner *pipeline.Runner
	log    logger.Logger
}

// NewCronManager creates a new cron manager
func NewCronManager(runner *pipeline.Runner, log logger.Logger) *CronManager {
	if log == nil {
		log = logger.Default()
	}
	return &CronManager{
		cron:   cron.New(),
		runner: runner,
		log:    log,
	}
}

// SetupJobs registers the pipeline on the given cron schedule.
func (cm *CronManager) SetupJobs(schedule string) error {
	_, err := cm.cron.AddFunc(schedule, func() {
		cm.log.Info("running scheduled pipeline")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		if _, err := cm.runner.Run(ctx); err != nil {
			cm.log.Error("scheduled pipeline run failed", "error", err)
			return
		}
		cm.log.Info("scheduled pipeline run completed")
	})
	return err
}

// Start starts the cron scheduler
func (cm *CronManager) Start() {
	cm.cron.Start()
	cm.log.Info("cron scheduler started")
}

// Stop stops the cron scheduler
func (cm *CronManager) Stop() {
	ctx := cm.cron.Stop()
	<-ctx.Done()
	cm.log.Info("cron scheduler stopped")
}
