// Package runner executes fire-and-forget background tasks on a bounded
// number of goroutines.
package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/linanwx/hypebot/internal/runtimecfg"
	"github.com/linanwx/hypebot/logger"
	"github.com/sourcegraph/conc/panics"
)

// Runner runs tasks asynchronously. A task that fails or panics is logged
// and never affects other tasks.
type Runner struct {
	ctx    context.Context
	cancel context.CancelFunc
	sem    chan struct{}
	wg     sync.WaitGroup

	// mu orders wg.Add in RunAsync before the wg.Wait in Stop.
	mu       sync.Mutex
	stopped  bool
	inFlight atomic.Int64
}

// New creates a runner with at most maxWorkers tasks executing at once.
func New(maxWorkers int) *Runner {
	if maxWorkers <= 0 {
		maxWorkers = runtimecfg.RunnerDefaultMaxWorkers
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		ctx:    ctx,
		cancel: cancel,
		sem:    make(chan struct{}, maxWorkers),
	}
}

// IsIdle reports whether no task is queued or running.
func (r *Runner) IsIdle() bool {
	return r.inFlight.Load() == 0
}

// InFlight returns the number of queued or running tasks.
func (r *Runner) InFlight() int {
	return int(r.inFlight.Load())
}

// RunAsync schedules task and returns immediately. The runner counts as busy
// from the moment RunAsync is called until task returns.
func (r *Runner) RunAsync(name string, task func(ctx context.Context) error) {
	if task == nil {
		return
	}
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		logger.Warn("runner stopped, task dropped", "task", name)
		return
	}
	r.inFlight.Add(1)
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer r.inFlight.Add(-1)

		select {
		case r.sem <- struct{}{}:
		case <-r.ctx.Done():
			logger.Debug("runner stopped before task started", "task", name)
			return
		}
		defer func() { <-r.sem }()

		r.execute(name, task)
	}()
}

func (r *Runner) execute(name string, task func(ctx context.Context) error) {
	start := time.Now()
	var err error
	var pc panics.Catcher
	pc.Try(func() { err = task(r.ctx) })

	if rec := pc.Recovered(); rec != nil {
		logger.Error("task panicked", "task", name, "panic", rec.Value, "stack", string(rec.Stack))
		return
	}
	if err != nil {
		logger.Warn("task failed", "task", name, "duration", time.Since(start), "err", err)
		return
	}
	logger.Debug("task finished", "task", name, "duration", time.Since(start))
}

// Stop cancels the context handed to tasks, drops tasks that have not
// started, and waits for running ones to return or ctx to expire.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
