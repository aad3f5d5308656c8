package cmd

import (
	"context"
	"sync"

	"github.com/linanwx/hypebot/channel"
	"github.com/linanwx/hypebot/core"
	"github.com/linanwx/hypebot/internal/runtimecfg"
	"github.com/linanwx/hypebot/logger"
)

// MessageHandler consumes one inbound event.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg core.Inbound) bool
}

// Dispatcher routes channel messages to the bot. It is the bridge between
// the channel layer (pure I/O) and the core. Messages from one user are
// handled in arrival order; different users are handled concurrently up to
// a fixed limit.
type Dispatcher struct {
	channels *channel.Manager
	handler  MessageHandler
	sem      chan struct{}

	mu     sync.Mutex
	lanes  map[core.User][]*channel.Message
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a new dispatcher. maxConcurrency <= 0 uses the
// default.
func NewDispatcher(channels *channel.Manager, handler MessageHandler, maxConcurrency int) *Dispatcher {
	if maxConcurrency <= 0 {
		maxConcurrency = runtimecfg.DispatcherMaxConcurrency
	}
	return &Dispatcher{
		channels: channels,
		handler:  handler,
		sem:      make(chan struct{}, maxConcurrency),
		lanes:    make(map[core.User][]*channel.Message),
	}
}

// Run reads every channel and dispatches its messages. It blocks until ctx
// is cancelled or every channel has closed its message stream, then waits
// for in-flight messages.
func (d *Dispatcher) Run(ctx context.Context) {
	var readers sync.WaitGroup
	d.channels.Each(func(ch channel.Channel) {
		readers.Add(1)
		go func() {
			defer readers.Done()
			d.processChannel(ctx, ch)
		}()
	})

	allClosed := make(chan struct{})
	go func() {
		readers.Wait()
		close(allClosed)
	}()

	select {
	case <-ctx.Done():
	case <-allClosed:
		logger.Info("all channels closed")
	}

	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) processChannel(ctx context.Context, ch channel.Channel) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch.Messages():
			if !ok {
				logger.Info("channel message stream closed", "channel", ch.Name())
				return
			}
			if msg == nil {
				continue
			}
			d.channels.Learn(ch.Name(), msg)
			d.enqueue(ctx, ch.Name(), msg)
		}
	}
}

func (d *Dispatcher) enqueue(ctx context.Context, source string, msg *channel.Message) {
	logger.Debug("dispatching message",
		"channel", source,
		"to", msg.Channel.String(),
		"user", msg.User,
		"text", truncate(msg.Text, 50),
	)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		logger.Debug("dispatcher stopped, message dropped", "user", msg.User)
		return
	}
	queue, busy := d.lanes[msg.User]
	d.lanes[msg.User] = append(queue, msg)
	if busy {
		return
	}

	d.wg.Add(1)
	go d.drain(ctx, msg.User)
}

// drain handles one user's queue until it is empty.
func (d *Dispatcher) drain(ctx context.Context, user core.User) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		queue := d.lanes[user]
		if len(queue) == 0 {
			delete(d.lanes, user)
			d.mu.Unlock()
			return
		}
		msg := queue[0]
		d.lanes[user] = queue[1:]
		d.mu.Unlock()

		d.sem <- struct{}{}
		handled := d.handler.HandleMessage(ctx, msg.Inbound())
		<-d.sem
		if !handled {
			logger.Debug("message not handled", "user", user, "text", truncate(msg.Text, 50))
		}
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
