package cron

import (
	"fmt"
	"time"

	gocron "github.com/go-co-op/gocron/v2"
	"github.com/linanwx/hypebot/logger"
)

func (s *Scheduler) scheduleLocked(job Job) (gocron.Job, error) {
	if s.cron == nil {
		return nil, fmt.Errorf("scheduler is not initialized")
	}

	var def gocron.JobDefinition
	if job.Expr != "" {
		def = gocron.CronJob(job.Expr, false)
	} else {
		def = gocron.DurationJob(job.Every)
	}

	opts := []gocron.JobOption{
		gocron.WithName(job.Name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if job.RunNow {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	return s.cron.NewJob(def, gocron.NewTask(s.run, job), opts...)
}

func (s *Scheduler) run(job Job) {
	start := time.Now()
	if err := job.Task(s.ctx); err != nil {
		logger.Warn("cron job execution failed", "name", job.Name, "err", err)
		return
	}
	logger.Debug("cron job finished", "name", job.Name, "duration", time.Since(start))
}

func (s *Scheduler) unscheduleLocked(name string) {
	entry, ok := s.jobs[name]
	if !ok {
		return
	}
	if err := s.cron.RemoveJob(entry.id); err != nil {
		logger.Warn("failed to remove cron job", "name", name, "err", err)
	}
	delete(s.jobs, name)
}
