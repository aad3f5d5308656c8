// Package cron runs named recurring jobs on top of gocron.
package cron

import (
	"context"
	"sync"
	"time"

	gocron "github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

// TaskFunc is one run of a job.
type TaskFunc func(ctx context.Context) error

// Job is a named recurring task. Exactly one of Expr and Every is set.
type Job struct {
	Name   string
	Expr   string        // five-field cron expression
	Every  time.Duration // fixed interval
	RunNow bool          // also run once as soon as the scheduler starts
	Task   TaskFunc
}

// Entry describes a scheduled job.
type Entry struct {
	Name     string
	Schedule string
	NextRun  time.Time
}

// Scheduler manages named jobs. Jobs never overlap themselves.
type Scheduler struct {
	cron   gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	jobs map[string]scheduled
}

type scheduled struct {
	job Job
	id  uuid.UUID
}

// NewScheduler creates a scheduler evaluating cron expressions in loc.
// A nil loc means UTC.
func NewScheduler(loc *time.Location) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	sch, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   sch,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]scheduled),
	}, nil
}
