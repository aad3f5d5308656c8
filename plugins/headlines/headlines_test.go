package headlines

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/linanwx/hypebot/core"
	"github.com/linanwx/hypebot/proxy"
	"github.com/linanwx/hypebot/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	msgs []core.Message
	chs  []core.Channel
}

func (r *recorder) SendMessage(_ context.Context, ch core.Channel, msg core.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	r.chs = append(r.chs, ch)
	return nil
}

func newsServer(t *testing.T, n int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		var b strings.Builder
		b.WriteString("<html><body>")
		for i := 1; i <= n; i++ {
			fmt.Fprintf(&b, "<h2 class=\"title\">  Story\n number %d </h2>", i)
		}
		b.WriteString(`<h2 class="title">Story number 1</h2></body></html>`)
		fmt.Fprint(w, b.String())
	}))
	t.Cleanup(srv.Close)
	return srv
}

var general = core.PublicChannel("general", "#general")

func TestReloadDataScrapesAndPersists(t *testing.T) {
	srv := newsServer(t, 3)
	st := store.NewMemory()
	rec := &recorder{}
	h := New(core.NewGateway(rec), proxy.New(0), st, Config{URL: srv.URL, Selector: "h2.title"})

	require.NoError(t, h.ReloadData(context.Background()))
	assert.Equal(t, []string{"Story number 1", "Story number 2", "Story number 3"}, h.Current().Items)

	restored := New(core.NewGateway(rec), proxy.New(0), st, Config{URL: srv.URL})
	require.NoError(t, restored.Load(context.Background()))
	assert.Equal(t, h.Current().Items, restored.Current().Items)
	assert.Equal(t, srv.URL, restored.Current().Source)
}

func TestReloadDataCapsItems(t *testing.T) {
	srv := newsServer(t, 20)
	h := New(core.NewGateway(&recorder{}), proxy.New(0), store.NewMemory(), Config{URL: srv.URL, MaxItems: 4})

	require.NoError(t, h.ReloadData(context.Background()))
	assert.Len(t, h.Current().Items, 4)
}

type failingFetcher struct{}

func (failingFetcher) FetchDocument(context.Context, string) (*goquery.Document, error) {
	return nil, errors.New("offline")
}

func TestReloadDataKeepsPreviousOnFailure(t *testing.T) {
	srv := newsServer(t, 2)
	p := proxy.New(0)
	h := New(core.NewGateway(&recorder{}), p, store.NewMemory(), Config{URL: srv.URL})
	require.NoError(t, h.ReloadData(context.Background()))

	h.cfg.Selector = "article"
	p.FlushCache()
	assert.Error(t, h.ReloadData(context.Background()))
	assert.Len(t, h.Current().Items, 2)

	h.fetcher = failingFetcher{}
	assert.Error(t, h.ReloadData(context.Background()))
	assert.Len(t, h.Current().Items, 2)
}

func TestReloadDataWithoutURLIsNoop(t *testing.T) {
	h := New(core.NewGateway(&recorder{}), failingFetcher{}, store.NewMemory(), Config{})
	assert.NoError(t, h.ReloadData(context.Background()))
}

func TestNewsReplies(t *testing.T) {
	srv := newsServer(t, 8)
	rec := &recorder{}
	h := New(core.NewGateway(rec), proxy.New(0), store.NewMemory(), Config{URL: srv.URL})
	ctx := context.Background()

	assert.True(t, h.Handle(ctx, core.Inbound{Channel: general, User: "alice", Text: "!news"}))
	assert.Equal(t, core.Message{"No headlines yet."}, rec.msgs[0])

	require.NoError(t, h.ReloadData(ctx))
	assert.True(t, h.Handle(ctx, core.Inbound{Channel: general, User: "alice", Text: "!news"}))
	require.Len(t, rec.msgs, 3)
	assert.Equal(t, core.Message{"It's long so I sent it privately."}, rec.msgs[1])
	assert.Equal(t, "alice", rec.chs[2].ID)
	assert.Equal(t, "1. Story number 1", rec.msgs[2][0])

	assert.False(t, h.Handle(ctx, core.Inbound{Channel: general, User: "alice", Text: "news"}))
}
