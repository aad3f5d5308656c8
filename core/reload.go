package core

import (
	"context"
	"sync"

	"github.com/linanwx/hypebot/logger"
)

// Reloader is implemented by collaborators whose data can be refreshed.
type Reloader interface {
	ReloadData(ctx context.Context) error
}

// Runner schedules background work. RunAsync must mark the runner busy
// before it returns; tasks run in no particular order and their failures
// stay inside the runner.
type Runner interface {
	IsIdle() bool
	RunAsync(name string, task func(ctx context.Context) error)
}

// CacheFlusher drops cached upstream data before a sweep.
type CacheFlusher interface {
	FlushCache()
}

// NamedReloader pairs a reloadable collaborator with its registry name.
type NamedReloader struct {
	Name     string
	Reloader Reloader
}

// ReloadCoordinator gates the reload sweep behind runner idleness and fans
// the reloads out as fire-and-forget tasks.
type ReloadCoordinator struct {
	runner  Runner
	flusher CacheFlusher
	targets func() []NamedReloader

	// mu makes check-then-dispatch atomic so two triggers cannot both see
	// an idle runner.
	mu sync.Mutex
}

// NewReloadCoordinator creates a coordinator. targets is evaluated on every
// sweep so collaborators registered later are included.
func NewReloadCoordinator(runner Runner, flusher CacheFlusher, targets func() []NamedReloader) *ReloadCoordinator {
	return &ReloadCoordinator{runner: runner, flusher: flusher, targets: targets}
}

// ReloadData triggers a sweep. It returns false without scheduling anything
// when the runner is busy, and true once every reload has been scheduled.
func (c *ReloadCoordinator) ReloadData(_ context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.runner == nil {
		logger.Warn("no runner configured, can not trigger reload")
		return false
	}
	if !c.runner.IsIdle() {
		logger.Info("runner not idle, can not trigger reload")
		return false
	}

	if c.flusher != nil {
		c.flusher.FlushCache()
	}
	if c.targets == nil {
		return true
	}
	for _, target := range c.targets() {
		if target.Reloader == nil {
			continue
		}
		logger.Info("triggering reload", "collaborator", target.Name)
		c.runner.RunAsync("reload:"+target.Name, target.Reloader.ReloadData)
	}
	return true
}
