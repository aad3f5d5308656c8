package core

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	consume bool
	seen    []Inbound
}

func (h *recordingHandler) Handle(_ context.Context, msg Inbound) bool {
	h.seen = append(h.seen, msg)
	return h.consume
}

type reloadingHandler struct {
	recordingHandler
	fakeReloader
}

func newTestCore(runner Runner) (*Core, *recordingTransport) {
	tr := &recordingTransport{}
	c := New(Options{
		Name:           "HypeBot",
		Transport:      tr,
		Runner:         runner,
		DefaultChannel: Channel{ID: "general", Name: "#general"},
		Clock:          newManualClock(),
	})
	return c, tr
}

func TestNewNormalizesNameAndDefaultChannel(t *testing.T) {
	c, _ := newTestCore(nil)

	assert.Equal(t, "hypebot", c.Name())
	assert.Equal(t, Public, c.DefaultChannel().Visibility)
	assert.Equal(t, "general", c.DefaultChannel().ID)
}

func TestRegisterValidatesAndLooksUp(t *testing.T) {
	captureLogs(t)
	c, _ := newTestCore(nil)
	h := &recordingHandler{}

	require.NoError(t, c.Register("greeter", h))
	assert.ErrorIs(t, c.Register("greeter", h), ErrDuplicateCollaborator)
	assert.ErrorIs(t, c.Register(" ", h), ErrEmptyName)
	assert.ErrorIs(t, c.Register("nothing", nil), ErrNilCollaborator)

	got, ok := c.Lookup("greeter")
	require.True(t, ok)
	assert.Same(t, h, got)
	_, ok = c.Lookup("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"greeter"}, c.Collaborators())
}

func TestHandleMessageTriesHandlersInOrder(t *testing.T) {
	captureLogs(t)
	c, _ := newTestCore(nil)
	first := &recordingHandler{}
	second := &recordingHandler{consume: true}
	third := &recordingHandler{consume: true}
	require.NoError(t, c.Register("first", first))
	require.NoError(t, c.Register("second", second))
	require.NoError(t, c.Register("third", third))

	msg := Inbound{Channel: PublicChannel("general", ""), User: "alice", Text: "!balance"}
	assert.True(t, c.HandleMessage(context.Background(), msg))

	assert.Len(t, first.seen, 1)
	assert.Len(t, second.seen, 1)
	assert.Empty(t, third.seen)
}

func TestHandleMessageIgnoresSelfAndBlank(t *testing.T) {
	captureLogs(t)
	c, _ := newTestCore(nil)
	h := &recordingHandler{consume: true}
	require.NoError(t, c.Register("h", h))

	assert.False(t, c.HandleMessage(context.Background(), Inbound{User: "hypebot", Text: "echo"}))
	assert.False(t, c.HandleMessage(context.Background(), Inbound{User: "alice", Text: "  "}))
	assert.False(t, c.HandleMessage(context.Background(), Inbound{Text: "anon"}))
	assert.Empty(t, h.seen)
}

func TestHandleMessageResolvesPendingConfirmationFirst(t *testing.T) {
	captureLogs(t)
	c, tr := newTestCore(nil)
	h := &recordingHandler{consume: true}
	require.NoError(t, c.Register("h", h))

	var confirmed bool
	c.RequestConfirmation(context.Background(), "alice", "buying a hat", nil, func(context.Context, User, Details) {
		confirmed = true
	}, nil)

	assert.True(t, c.HandleMessage(context.Background(), Inbound{User: "alice", Text: "yes please"}))
	assert.True(t, confirmed)
	assert.Empty(t, h.seen)
	assert.Equal(t, []string{"Confirm buying a hat?", "Confirmation accepted."}, tr.texts())

	assert.True(t, c.HandleMessage(context.Background(), Inbound{User: "alice", Text: "!hat"}))
	assert.Len(t, h.seen, 1)
}

func TestHandleMessageFallsThroughOnceRequestIsGone(t *testing.T) {
	captureLogs(t)
	c, _ := newTestCore(nil)
	h := &recordingHandler{consume: true}
	require.NoError(t, c.Register("h", h))

	c.RequestConfirmation(context.Background(), "alice", "buying a hat", nil, nil, nil)
	assert.True(t, c.ResolveRequest(context.Background(), "alice", "no"))
	assert.False(t, c.ResolveRequest(context.Background(), "alice", "no"))

	assert.True(t, c.HandleMessage(context.Background(), Inbound{User: "alice", Text: "!hat"}))
	require.Len(t, h.seen, 1)
	assert.Equal(t, "!hat", h.seen[0].Text)
}

func TestTriggerReloadUsesRegisteredReloaders(t *testing.T) {
	captureLogs(t)
	runner := &fakeRunner{idle: true}
	c, _ := newTestCore(runner)
	both := &reloadingHandler{}
	require.NoError(t, c.Register("plain", &recordingHandler{}))
	require.NoError(t, c.Register("both", both))

	assert.True(t, c.TriggerReload(context.Background()))
	assert.Equal(t, []string{"reload:both"}, runner.scheduled())

	require.NoError(t, c.Register("late", &fakeReloader{}))
	assert.True(t, c.TriggerReload(context.Background()))
	assert.Equal(t, []string{"reload:both", "reload:both", "reload:late"}, runner.scheduled())
}

func TestCoreReplyPaths(t *testing.T) {
	captureLogs(t)
	c, tr := newTestCore(nil)

	c.Reply(context.Background(), nil, Text("fallback"), WithDefault(c.DefaultChannel()))
	c.LogAndOutput(context.Background(), slog.LevelInfo, User("bob"), Text("logged"))
	c.Output().Output(context.Background(), User("carol"), Text("util"))

	sent := tr.messages()
	require.Len(t, sent, 3)
	assert.Equal(t, "general", sent[0].Channel.ID)
	assert.Equal(t, "bob", sent[1].Channel.ID)
	assert.Equal(t, "carol", sent[2].Channel.ID)
}

func TestHandlerFuncAndTransportFunc(t *testing.T) {
	var got Channel
	tf := TransportFunc(func(_ context.Context, ch Channel, _ Message) error {
		got = ch
		return errors.New("unreachable")
	})
	captureLogs(t)
	NewGateway(tf).Reply(context.Background(), User("dave"), Text("x"))
	assert.Equal(t, "dave", got.ID)

	hf := HandlerFunc(func(context.Context, Inbound) bool { return true })
	assert.True(t, hf.Handle(context.Background(), Inbound{}))
}
