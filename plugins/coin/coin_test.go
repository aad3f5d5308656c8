package coin

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/linanwx/hypebot/core"
	"github.com/linanwx/hypebot/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	channel core.Channel
	text    string
}

type recorder struct {
	mu   sync.Mutex
	msgs []sent
}

func (r *recorder) SendMessage(_ context.Context, ch core.Channel, msg core.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, sent{channel: ch, text: strings.Join(msg, "\n")})
	return nil
}

func (r *recorder) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.msgs))
	for _, m := range r.msgs {
		out = append(out, m.text)
	}
	return out
}

func newBank(t *testing.T) (*core.Core, *Bank, *recorder, store.Store) {
	t.Helper()
	rec := &recorder{}
	c := core.New(core.Options{Transport: rec})
	st := store.NewMemory()
	bank := NewBank(c, st, 100)
	require.NoError(t, c.Register("coin", bank))
	return c, bank, rec, st
}

var general = core.PublicChannel("general", "#general")

func say(c *core.Core, user core.User, text string) bool {
	return c.HandleMessage(context.Background(), core.Inbound{Channel: general, User: user, Text: text})
}

func TestBalanceStartsAtDefault(t *testing.T) {
	c, _, rec, _ := newBank(t)

	assert.True(t, say(c, "alice", "!balance"))
	assert.Equal(t, []string{"alice has 100 coins."}, rec.texts())
	assert.Equal(t, "general", rec.msgs[0].channel.ID)
}

func TestGiveRequiresConfirmation(t *testing.T) {
	c, bank, rec, _ := newBank(t)
	ctx := context.Background()

	assert.True(t, say(c, "alice", "!give @bob 5"))
	assert.Equal(t, "Confirm giving 5 coins to bob?", rec.texts()[0])

	balance, err := bank.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 100, balance, "nothing moves before confirmation")

	assert.True(t, say(c, "alice", "yes"))
	assert.Equal(t, []string{
		"Confirm giving 5 coins to bob?",
		"Sending 5 coins to bob.",
		"alice gave 5 coins to bob.",
	}, rec.texts())

	alice, _ := bank.Balance(ctx, "alice")
	bob, _ := bank.Balance(ctx, "bob")
	assert.Equal(t, 95, alice)
	assert.Equal(t, 105, bob)
}

func TestGiveCancelled(t *testing.T) {
	c, bank, rec, _ := newBank(t)

	say(c, "alice", "!give bob 5")
	say(c, "alice", "no")

	assert.Equal(t, "Cancelling request.", rec.texts()[1])
	bob, _ := bank.Balance(context.Background(), "bob")
	assert.Equal(t, 100, bob)
}

func TestGiveValidation(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{text: "!give bob", want: "Usage: !give <user> <amount>"},
		{text: "!give bob lots", want: "Amount must be a positive whole number."},
		{text: "!give bob -3", want: "Amount must be a positive whole number."},
		{text: "!give Alice 1", want: "You can't give coins to yourself."},
		{text: "!give bob 101", want: "You only have 100 coins."},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			c, _, rec, _ := newBank(t)
			assert.True(t, say(c, "alice", tc.text))
			assert.Equal(t, []string{tc.want}, rec.texts())
			assert.False(t, c.Requests().HasPendingRequest("alice"))
		})
	}
}

func TestTransferRejectsOverdraft(t *testing.T) {
	_, bank, _, st := newBank(t)
	ctx := context.Background()
	require.NoError(t, st.SetValue(ctx, storeKey, "alice", "3"))

	assert.ErrorIs(t, bank.Transfer(ctx, "alice", "bob", 4), ErrInsufficientFunds)
	require.NoError(t, bank.Transfer(ctx, "alice", "bob", 3))

	alice, _ := bank.Balance(ctx, "alice")
	bob, _ := bank.Balance(ctx, "bob")
	assert.Equal(t, 0, alice)
	assert.Equal(t, 103, bob)
}

func TestOtherCommandsPassThrough(t *testing.T) {
	c, _, rec, _ := newBank(t)
	assert.False(t, say(c, "alice", "hello there"))
	assert.Empty(t, rec.texts())
}
