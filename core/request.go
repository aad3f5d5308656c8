package core

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/linanwx/hypebot/internal/runtimecfg"
	"github.com/linanwx/hypebot/logger"
)

// Keys the tracker reads from or injects into request details.
const (
	DetailTimestamp  = "timestamp"
	DetailRequestID  = "request_id"
	DetailActionText = "action_text"
)

const (
	msgConfirmPrior = "Confirm prior request before submitting another."
	msgCancelling   = "Cancelling request."
	msgTooLong      = "You took too long to confirm, try again."
	msgAccepted     = "Confirmation accepted."
)

// Clock abstracts time for expiry checks.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// Details is caller-supplied context carried from a confirmation prompt to
// its action.
type Details map[string]any

// ActionFunc runs when the user confirms a request.
type ActionFunc func(ctx context.Context, user User, details Details)

// ParseFunc decides whether a raw reply confirms (true) or denies a request.
type ParseFunc func(reply string) bool

// DefaultParse accepts any reply starting with "y", case-insensitively.
func DefaultParse(reply string) bool {
	return strings.HasPrefix(strings.ToLower(reply), "y")
}

type pendingRequest struct {
	id        string
	createdAt time.Time
	details   Details
	action    ActionFunc
	parse     ParseFunc
}

// userTurn serializes all tracker operations for one user, including their
// chat output, without holding the map lock across a send.
type userTurn struct {
	mu   sync.Mutex
	refs int
}

// RequestTracker owns per-user pending confirmations. At most one request is
// pending per user; expiry is evaluated lazily on the next call for that user.
type RequestTracker struct {
	reply   ReplyFunc
	clock   Clock
	timeout time.Duration

	mu      sync.Mutex
	pending map[User]*pendingRequest
	turns   map[User]*userTurn
}

// NewRequestTracker creates a tracker that talks to users through reply.
// A nil clock uses the system clock; timeout <= 0 uses the default.
func NewRequestTracker(reply ReplyFunc, clock Clock, timeout time.Duration) *RequestTracker {
	if clock == nil {
		clock = SystemClock{}
	}
	if timeout <= 0 {
		timeout = runtimecfg.RequestConfirmTimeout
	}
	return &RequestTracker{
		reply:   reply,
		clock:   clock,
		timeout: timeout,
		pending: make(map[User]*pendingRequest),
		turns:   make(map[User]*userTurn),
	}
}

// Timeout returns how long a request stays confirmable.
func (t *RequestTracker) Timeout() time.Duration {
	return t.timeout
}

// HasPendingRequest reports whether user has an entry awaiting resolution,
// expired or not.
func (t *RequestTracker) HasPendingRequest(user User) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[user]
	return ok
}

// PendingCount returns the number of users with a pending request.
func (t *RequestTracker) PendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// RequestConfirmation asks user to confirm summary before action runs. A
// live prior request rejects the new one; an expired prior request is
// silently replaced. A nil parse uses DefaultParse.
func (t *RequestTracker) RequestConfirmation(ctx context.Context, user User, summary string, details Details, action ActionFunc, parse ParseFunc) {
	release := t.acquire(user)
	defer release()

	if parse == nil {
		parse = DefaultParse
	}
	if details == nil {
		details = Details{}
	}
	now := t.clock.Now()

	t.mu.Lock()
	if prev, ok := t.pending[user]; ok {
		if now.Sub(prev.createdAt) < t.timeout {
			t.mu.Unlock()
			t.send(ctx, user, msgConfirmPrior)
			return
		}
		logger.Debug("replacing expired request", "user", user, "requestID", prev.id)
		delete(t.pending, user)
	}

	req := &pendingRequest{
		id:        uuid.NewString(),
		createdAt: now,
		details:   details,
		action:    action,
		parse:     parse,
	}
	details[DetailTimestamp] = now
	details[DetailRequestID] = req.id
	t.pending[user] = req
	t.mu.Unlock()

	logger.Debug("confirmation requested", "user", user, "requestID", req.id)
	t.send(ctx, user, "Confirm "+summary+"?")
}

// ResolveRequest interprets text as the user's answer to their pending
// request and reports whether there was one. The entry is removed whatever
// the outcome; the action runs only for a timely confirmation, after the
// acknowledgement and outside the user's turn so it may itself request a
// new confirmation.
func (t *RequestTracker) ResolveRequest(ctx context.Context, user User, text string) bool {
	release := t.acquire(user)
	now := t.clock.Now()

	t.mu.Lock()
	req, ok := t.pending[user]
	if ok {
		delete(t.pending, user)
	}
	t.mu.Unlock()
	if !ok {
		release()
		return false
	}

	switch {
	case !req.parse(text):
		logger.Debug("request denied", "user", user, "requestID", req.id)
		t.send(ctx, user, msgCancelling)
	case now.Sub(req.createdAt) >= t.timeout:
		logger.Debug("request expired", "user", user, "requestID", req.id)
		t.send(ctx, user, msgTooLong)
	default:
		ack := msgAccepted
		if s, ok := req.details[DetailActionText].(string); ok && s != "" {
			ack = s
		}
		t.send(ctx, user, ack)
		release()
		if req.action != nil {
			req.action(ctx, user, req.details)
		}
		return true
	}
	release()
	return true
}

func (t *RequestTracker) send(ctx context.Context, user User, text string) {
	if t.reply == nil {
		return
	}
	t.reply(ctx, user, Text(text))
}

// acquire takes the per-user turn and returns its release.
func (t *RequestTracker) acquire(user User) func() {
	t.mu.Lock()
	turn, ok := t.turns[user]
	if !ok {
		turn = &userTurn{}
		t.turns[user] = turn
	}
	turn.refs++
	t.mu.Unlock()

	turn.mu.Lock()
	return func() {
		turn.mu.Unlock()
		t.mu.Lock()
		turn.refs--
		if turn.refs == 0 {
			delete(t.turns, user)
		}
		t.mu.Unlock()
	}
}
