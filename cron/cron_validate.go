package cron

import (
	"errors"
	"strings"
)

var (
	ErrInvalidJob = errors.New("invalid job")
	ErrNotFound   = errors.New("job not found")
)

// Normalize trims the textual fields of job.
func Normalize(job Job) Job {
	job.Name = strings.TrimSpace(job.Name)
	job.Expr = strings.TrimSpace(job.Expr)
	return job
}

// Validate checks that job has a name, a task and exactly one schedule.
func Validate(job Job) error {
	switch {
	case job.Name == "":
		return errors.Join(ErrInvalidJob, errors.New("name is required"))
	case job.Task == nil:
		return errors.Join(ErrInvalidJob, errors.New("task is required"))
	case job.Expr == "" && job.Every <= 0:
		return errors.Join(ErrInvalidJob, errors.New("expr or every is required"))
	case job.Expr != "" && job.Every > 0:
		return errors.Join(ErrInvalidJob, errors.New("expr and every are mutually exclusive"))
	}
	return nil
}

func describe(job Job) string {
	if job.Expr != "" {
		return job.Expr
	}
	return "every " + job.Every.String()
}
