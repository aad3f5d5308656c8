package cron

import (
	"fmt"
	"sort"

	"github.com/linanwx/hypebot/logger"
)

// Add schedules job, replacing any job with the same name.
func (s *Scheduler) Add(job Job) error {
	job = Normalize(job)
	if err := Validate(job); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.unscheduleLocked(job.Name)
	registered, err := s.scheduleLocked(job)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", job.Name, err)
	}
	s.jobs[job.Name] = scheduled{job: job, id: registered.ID()}
	logger.Info("cron job scheduled", "name", job.Name, "schedule", describe(job))
	return nil
}

// Remove unschedules the named job.
func (s *Scheduler) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	s.unscheduleLocked(name)
	return nil
}

// Names returns the scheduled job names, sorted.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entries describes every scheduled job, sorted by name.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := make(map[string]Entry, len(s.jobs))
	for _, j := range s.cron.Jobs() {
		next, _ := j.NextRun()
		byID[j.ID().String()] = Entry{NextRun: next}
	}

	out := make([]Entry, 0, len(s.jobs))
	for name, entry := range s.jobs {
		e := byID[entry.id.String()]
		e.Name = name
		e.Schedule = describe(entry.job)
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Scheduler) Start() {
	if s.cron != nil {
		s.cron.Start()
	}
}

// Stop cancels running tasks and shuts the scheduler down.
func (s *Scheduler) Stop() {
	s.cancel()

	s.mu.Lock()
	for name := range s.jobs {
		s.unscheduleLocked(name)
	}
	s.mu.Unlock()

	if s.cron != nil {
		if err := s.cron.Shutdown(); err != nil {
			logger.Warn("cron shutdown failed", "err", err)
		}
	}
}
