package core

import (
	"context"
	"log/slog"

	"github.com/linanwx/hypebot/internal/runtimecfg"
	"github.com/linanwx/hypebot/logger"
)

// Transport delivers a message to a resolved channel. Delivery is best
// effort; errors are logged by the caller and never retried.
type Transport interface {
	SendMessage(ctx context.Context, ch Channel, msg Message) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, ch Channel, msg Message) error

// SendMessage calls f.
func (f TransportFunc) SendMessage(ctx context.Context, ch Channel, msg Message) error {
	return f(ctx, ch, msg)
}

const (
	overflowNotice = "It's long so I sent it privately."
	truncationMark = "..."
)

type replyOptions struct {
	fallback       Destination
	limitLines     bool
	maxPublicLines int
	overflowUser   User
	log            bool
	logLevel       slog.Level
}

// ReplyOption tunes a single Reply call.
type ReplyOption func(*replyOptions)

// WithDefault sets the destination used when the primary one is absent.
func WithDefault(dest Destination) ReplyOption {
	return func(o *replyOptions) { o.fallback = dest }
}

// LimitLines caps public replies at n lines; n <= 0 keeps the default.
func LimitLines(n int) ReplyOption {
	return func(o *replyOptions) {
		o.limitLines = true
		if n > 0 {
			o.maxPublicLines = n
		}
	}
}

// OverflowTo sends over-long public replies privately to user instead of
// truncating them. user is used as given; sub-account addresses are not
// split the way bare User destinations are.
func OverflowTo(user User) ReplyOption {
	return func(o *replyOptions) { o.overflowUser = user }
}

// WithLog also logs the message at level before it is sent.
func WithLog(level slog.Level) ReplyOption {
	return func(o *replyOptions) {
		o.log = true
		o.logLevel = level
	}
}

func withoutLog() ReplyOption {
	return func(o *replyOptions) { o.log = false }
}

// ReplyFunc is the reply capability handed to collaborators.
type ReplyFunc func(ctx context.Context, dest Destination, msg Message, opts ...ReplyOption)

// Gateway is the single choke point for outbound text. It keeps no state
// between calls.
type Gateway struct {
	transport Transport
}

// NewGateway creates a gateway writing to transport.
func NewGateway(transport Transport) *Gateway {
	return &Gateway{transport: transport}
}

// Reply resolves dest, applies public line limiting and sends msg.
func (g *Gateway) Reply(ctx context.Context, dest Destination, msg Message, opts ...ReplyOption) {
	if msg.Empty() {
		return
	}

	o := replyOptions{
		maxPublicLines: runtimecfg.ReplyDefaultMaxPublicLines,
		logLevel:       slog.LevelInfo,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.log {
		logger.Log(o.logLevel, msg.String())
	}

	ch, ok := Resolve(dest)
	if !ok {
		ch, ok = Resolve(o.fallback)
	}
	if !ok {
		logger.Warn("attempted to send message with no destination", "message", msg.String())
		return
	}

	lines := Flatten(msg)
	if o.limitLines && ch.Visibility == Public && len(lines) > o.maxPublicLines {
		if o.overflowUser != "" {
			g.send(ctx, ch, Message{overflowNotice})
			g.send(ctx, PrivateChannel(o.overflowUser), lines)
			return
		}
		truncated := make(Message, 0, o.maxPublicLines+1)
		truncated = append(truncated, lines[:o.maxPublicLines]...)
		g.send(ctx, ch, append(truncated, truncationMark))
		return
	}
	g.send(ctx, ch, lines)
}

// LogAndOutput always logs msg at level, then replies without logging again.
func (g *Gateway) LogAndOutput(ctx context.Context, level slog.Level, dest Destination, msg Message, opts ...ReplyOption) {
	logger.Log(level, msg.String())
	g.Reply(ctx, dest, msg, append(opts, withoutLog())...)
}

func (g *Gateway) send(ctx context.Context, ch Channel, msg Message) {
	if g.transport == nil {
		logger.Warn("no transport configured, dropping message", "channel", ch.String())
		return
	}
	if err := g.transport.SendMessage(ctx, ch, msg); err != nil {
		logger.Warn("failed to send message", "channel", ch.String(), "err", err)
	}
}

// OutputUtil lets plugins send output without a reference to Core.
type OutputUtil struct {
	output ReplyFunc
}

// NewOutputUtil wraps a reply capability.
func NewOutputUtil(output ReplyFunc) *OutputUtil {
	return &OutputUtil{output: output}
}

// Output sends msg to dest.
func (u *OutputUtil) Output(ctx context.Context, dest Destination, msg Message, opts ...ReplyOption) {
	u.output(ctx, dest, msg, opts...)
}

// LogAndOutput logs msg at level, then sends it to dest.
func (u *OutputUtil) LogAndOutput(ctx context.Context, level slog.Level, dest Destination, msg Message) {
	logger.Log(level, msg.String())
	u.output(ctx, dest, msg, withoutLog())
}
