package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/linanwx/hypebot/internal/runtimecfg"
	"github.com/linanwx/hypebot/logger"
)

var (
	ErrEmptyName             = errors.New("collaborator name is empty")
	ErrNilCollaborator       = errors.New("collaborator is nil")
	ErrDuplicateCollaborator = errors.New("collaborator already registered")
)

// Handler consumes inbound chat events. Handle returns true when the event
// was consumed and no later handler should see it.
type Handler interface {
	Handle(ctx context.Context, msg Inbound) bool
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg Inbound) bool

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, msg Inbound) bool {
	return f(ctx, msg)
}

// Options configures a Core.
type Options struct {
	Name           string
	Transport      Transport
	Runner         Runner
	Proxy          CacheFlusher
	DefaultChannel Channel
	Clock          Clock
	RequestTimeout time.Duration
}

// Core composes the reply path, the request tracker and the reload sweep,
// and is the single registry of collaborators.
type Core struct {
	name           string
	defaultChannel Channel
	gateway        *Gateway
	requests       *RequestTracker
	reload         *ReloadCoordinator
	output         *OutputUtil

	mu            sync.RWMutex
	order         []string
	collaborators map[string]any
	reloadables   []NamedReloader
	handlers      []Handler
}

// New wires a Core from opts.
func New(opts Options) *Core {
	name := strings.ToLower(strings.TrimSpace(opts.Name))
	if name == "" {
		name = runtimecfg.BotDefaultName
	}
	defaultChannel := opts.DefaultChannel
	if defaultChannel.ID != "" {
		defaultChannel.Visibility = Public
	}

	c := &Core{
		name:           name,
		defaultChannel: defaultChannel,
		gateway:        NewGateway(opts.Transport),
		collaborators:  make(map[string]any),
	}
	c.requests = NewRequestTracker(c.Reply, opts.Clock, opts.RequestTimeout)
	c.reload = NewReloadCoordinator(opts.Runner, opts.Proxy, c.reloadTargets)
	c.output = NewOutputUtil(c.Reply)
	return c
}

// Name returns the bot's lowercased nick.
func (c *Core) Name() string { return c.name }

// DefaultChannel returns the configured public fallback destination.
func (c *Core) DefaultChannel() Channel { return c.defaultChannel }

// Requests returns the confirmation tracker.
func (c *Core) Requests() *RequestTracker { return c.requests }

// Output returns a reply helper for collaborators that should not hold Core.
func (c *Core) Output() *OutputUtil { return c.output }

// Reply is the canonical reply path.
func (c *Core) Reply(ctx context.Context, dest Destination, msg Message, opts ...ReplyOption) {
	c.gateway.Reply(ctx, dest, msg, opts...)
}

// LogAndOutput logs msg at level and sends it to dest.
func (c *Core) LogAndOutput(ctx context.Context, level slog.Level, dest Destination, msg Message, opts ...ReplyOption) {
	c.gateway.LogAndOutput(ctx, level, dest, msg, opts...)
}

// RequestConfirmation forwards to the tracker.
func (c *Core) RequestConfirmation(ctx context.Context, user User, summary string, details Details, action ActionFunc, parse ParseFunc) {
	c.requests.RequestConfirmation(ctx, user, summary, details, action, parse)
}

// ResolveRequest forwards to the tracker and reports whether user had a
// pending request.
func (c *Core) ResolveRequest(ctx context.Context, user User, text string) bool {
	return c.requests.ResolveRequest(ctx, user, text)
}

// TriggerReload starts an asynchronous reload of every reloadable
// collaborator. It returns false when a sweep may still be running.
func (c *Core) TriggerReload(ctx context.Context) bool {
	return c.reload.ReloadData(ctx)
}

// Register adds a collaborator under name. Collaborators implementing
// Reloader join the reload sweep; those implementing Handler join the
// inbound handler chain in registration order.
func (c *Core) Register(name string, collaborator any) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if collaborator == nil {
		return ErrNilCollaborator
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.collaborators[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCollaborator, name)
	}
	c.collaborators[name] = collaborator
	c.order = append(c.order, name)

	var roles []string
	if r, ok := collaborator.(Reloader); ok {
		c.reloadables = append(c.reloadables, NamedReloader{Name: name, Reloader: r})
		roles = append(roles, "reloader")
	}
	if h, ok := collaborator.(Handler); ok {
		c.handlers = append(c.handlers, h)
		roles = append(roles, "handler")
	}
	logger.Info("collaborator registered", "name", name, "roles", strings.Join(roles, ","))
	return nil
}

// Lookup returns the collaborator registered under name.
func (c *Core) Lookup(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.collaborators[name]
	return v, ok
}

// Collaborators returns registered names in registration order.
func (c *Core) Collaborators() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

func (c *Core) reloadTargets() []NamedReloader {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]NamedReloader(nil), c.reloadables...)
}

// HandleMessage routes one inbound event: a pending confirmation for the
// sender takes the text first, otherwise handlers are tried in order. It
// reports whether anything consumed the event.
func (c *Core) HandleMessage(ctx context.Context, msg Inbound) bool {
	if strings.TrimSpace(msg.Text) == "" || msg.User == "" {
		return false
	}
	if strings.EqualFold(string(msg.User), c.name) {
		return false
	}

	if c.requests.ResolveRequest(ctx, msg.User, msg.Text) {
		return true
	}

	c.mu.RLock()
	handlers := append([]Handler(nil), c.handlers...)
	c.mu.RUnlock()

	for _, h := range handlers {
		if h.Handle(ctx, msg) {
			return true
		}
	}
	return false
}
