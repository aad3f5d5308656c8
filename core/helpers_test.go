package core

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/linanwx/hypebot/logger"
)

type sentMessage struct {
	Channel Channel
	Message Message
}

type recordingTransport struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (r *recordingTransport) SendMessage(_ context.Context, ch Channel, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMessage{Channel: ch, Message: append(Message(nil), msg...)})
	return r.err
}

func (r *recordingTransport) messages() []sentMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentMessage(nil), r.sent...)
}

// texts returns every sent message joined to a single string, in order.
func (r *recordingTransport) texts() []string {
	var out []string
	for _, m := range r.messages() {
		out = append(out, m.Message.String())
	}
	return out
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeRunner struct {
	mu        sync.Mutex
	idle      bool
	busyOnRun bool
	names     []string
	tasks     []func(ctx context.Context) error
}

func (f *fakeRunner) IsIdle() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.idle
}

func (f *fakeRunner) RunAsync(name string, task func(ctx context.Context) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, name)
	f.tasks = append(f.tasks, task)
	if f.busyOnRun {
		f.idle = false
	}
}

func (f *fakeRunner) scheduled() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.names...)
}

func (f *fakeRunner) runAll(ctx context.Context) []error {
	f.mu.Lock()
	tasks := append([]func(context.Context) error(nil), f.tasks...)
	f.mu.Unlock()

	var errs []error
	for _, task := range tasks {
		if err := task(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

type countingFlusher struct {
	mu      sync.Mutex
	flushes int
}

func (c *countingFlusher) FlushCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushes++
}

func (c *countingFlusher) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushes
}

type fakeReloader struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeReloader) ReloadData(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeReloader) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var errReload = errors.New("reload failed")

// captureLogs routes the package logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger.SetOutput(&buf, slog.LevelDebug)
	t.Cleanup(func() { logger.SetOutput(&bytes.Buffer{}, slog.LevelError) })
	return &buf
}
