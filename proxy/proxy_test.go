package proxy

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCountingServer(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestFetchCachesUntilTTL(t *testing.T) {
	srv, hits := newCountingServer(t, http.StatusOK, "hello")
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	p := New(time.Minute, WithNow(func() time.Time { return now }))

	for i := 0; i < 3; i++ {
		body, err := p.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(body))
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(hits))

	now = now.Add(time.Minute)
	_, err := p.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(hits))
}

func TestFlushCacheForcesRefetch(t *testing.T) {
	srv, hits := newCountingServer(t, http.StatusOK, "hello")
	p := New(time.Hour)

	_, err := p.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 1, p.CacheSize())

	p.FlushCache()
	assert.Zero(t, p.CacheSize())

	_, err = p.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(hits))
}

func TestFetchErrors(t *testing.T) {
	srv, _ := newCountingServer(t, http.StatusBadGateway, "down")
	p := New(0)

	_, err := p.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrStatus)
	assert.Zero(t, p.CacheSize(), "failed responses are not cached")

	_, err = p.Fetch(context.Background(), "ftp://example.com/file")
	assert.Error(t, err)
}

func TestFetchDocument(t *testing.T) {
	srv, _ := newCountingServer(t, http.StatusOK, `<html><body>
<ul><li class="headline">First</li><li class="headline">Second</li></ul>
</body></html>`)
	p := New(time.Hour)

	doc, err := p.FetchDocument(context.Background(), srv.URL)
	require.NoError(t, err)
	var got []string
	doc.Find("li.headline").Each(func(_ int, s *goquery.Selection) {
		got = append(got, s.Text())
	})
	assert.Equal(t, []string{"First", "Second"}, got)
}
