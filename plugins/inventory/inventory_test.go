package inventory

import (
	"context"
	"fmt"
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
	lines   core.Message
}

type recorder struct {
	mu   sync.Mutex
	msgs []sent
}

func (r *recorder) SendMessage(_ context.Context, ch core.Channel, msg core.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, sent{channel: ch, lines: msg})
	return nil
}

func newManager(t *testing.T, items int) (*Manager, *recorder) {
	t.Helper()
	rec := &recorder{}
	gw := core.NewGateway(rec)
	m := NewManager(gw, store.NewMemory(), 3)
	for i := 0; i < items; i++ {
		require.NoError(t, m.Put(context.Background(), Item{Name: fmt.Sprintf("Item%d", i), Price: i + 1, Stock: 2}))
	}
	require.NoError(t, m.ReloadData(context.Background()))
	return m, rec
}

var general = core.PublicChannel("general", "#general")

func TestReloadDataLoadsSortedCatalog(t *testing.T) {
	m, _ := newManager(t, 0)
	ctx := context.Background()
	require.NoError(t, m.Put(ctx, Item{Name: "Scarf", Price: 3, Stock: 1}))
	require.NoError(t, m.Put(ctx, Item{Name: "Hat", Price: 5, Stock: 4, Description: "very tall"}))

	assert.Empty(t, m.Items(), "puts are invisible until reload")
	require.NoError(t, m.ReloadData(ctx))

	items := m.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "Hat", items[0].Name)
	assert.Equal(t, "Hat: 5 coins, 4 left (very tall)", items[0].line())
}

func TestReloadDataKeepsCatalogOnCorruptEntry(t *testing.T) {
	m, _ := newManager(t, 2)
	require.NoError(t, m.store.SetValue(context.Background(), catalogKey, "zzz", "{"))

	assert.Error(t, m.ReloadData(context.Background()))
	assert.Len(t, m.Items(), 2)
}

func TestPutRequiresName(t *testing.T) {
	m, _ := newManager(t, 0)
	assert.Error(t, m.Put(context.Background(), Item{Name: "  "}))
}

func TestInventoryShortListingIsPublic(t *testing.T) {
	m, rec := newManager(t, 2)

	assert.True(t, m.Handle(context.Background(), core.Inbound{Channel: general, User: "alice", Text: "!inventory"}))
	require.Len(t, rec.msgs, 1)
	assert.Equal(t, "general", rec.msgs[0].channel.ID)
	assert.Len(t, rec.msgs[0].lines, 2)
}

func TestInventoryLongListingOverflowsPrivately(t *testing.T) {
	m, rec := newManager(t, 5)

	assert.True(t, m.Handle(context.Background(), core.Inbound{Channel: general, User: "alice", Text: "!INVENTORY"}))
	require.Len(t, rec.msgs, 2)
	assert.Equal(t, "general", rec.msgs[0].channel.ID)
	assert.Equal(t, "It's long so I sent it privately.", strings.Join(rec.msgs[0].lines, "\n"))
	assert.Equal(t, core.Private, rec.msgs[1].channel.Visibility)
	assert.Equal(t, "alice", rec.msgs[1].channel.ID)
	assert.Len(t, rec.msgs[1].lines, 5)
}

func TestInventoryEmptyShopAndOtherText(t *testing.T) {
	m, rec := newManager(t, 0)

	assert.False(t, m.Handle(context.Background(), core.Inbound{Channel: general, User: "alice", Text: "!balance"}))
	assert.True(t, m.Handle(context.Background(), core.Inbound{User: "alice", Text: "!inventory"}))
	require.Len(t, rec.msgs, 1)
	assert.Equal(t, core.Private, rec.msgs[0].channel.Visibility)
	assert.Equal(t, core.Message{"The shop is empty."}, rec.msgs[0].lines)
}
