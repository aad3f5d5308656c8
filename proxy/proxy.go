// Package proxy fetches remote pages for plugins and caches the responses
// until they expire or the cache is flushed.
package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/linanwx/hypebot/internal/runtimecfg"
	"github.com/linanwx/hypebot/logger"
)

var ErrStatus = errors.New("unexpected http status")

const userAgent = "hypebot/1.0 (+https://github.com/linanwx/hypebot)"

type entry struct {
	body    []byte
	fetched time.Time
}

// Proxy is a caching HTTP GET client. It is safe for concurrent use.
type Proxy struct {
	client *http.Client
	ttl    time.Duration
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]entry
}

// Option configures a Proxy.
type Option func(*Proxy)

// WithClient replaces the HTTP client.
func WithClient(c *http.Client) Option {
	return func(p *Proxy) {
		if c != nil {
			p.client = c
		}
	}
}

// WithNow replaces the clock used for cache expiry.
func WithNow(now func() time.Time) Option {
	return func(p *Proxy) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a proxy whose cached responses live for ttl.
// A non-positive ttl uses the default.
func New(ttl time.Duration, opts ...Option) *Proxy {
	if ttl <= 0 {
		ttl = runtimecfg.ProxyDefaultCacheTTL
	}
	p := &Proxy{
		client: &http.Client{Timeout: runtimecfg.ProxyDefaultHTTPTimeout},
		ttl:    ttl,
		now:    time.Now,
		cache:  make(map[string]entry),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fetch returns the body of rawURL, from cache when fresh.
func (p *Proxy) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if body, ok := p.cached(rawURL); ok {
		logger.Debug("proxy cache hit", "url", rawURL)
		return body, nil
	}

	body, err := p.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.cache[rawURL] = entry{body: body, fetched: p.now()}
	p.mu.Unlock()
	return body, nil
}

// FetchDocument fetches rawURL and parses it as HTML.
func (p *Proxy) FetchDocument(ctx context.Context, rawURL string) (*goquery.Document, error) {
	body, err := p.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	return doc, nil
}

// FlushCache drops every cached response.
func (p *Proxy) FlushCache() {
	p.mu.Lock()
	n := len(p.cache)
	p.cache = make(map[string]entry)
	p.mu.Unlock()
	logger.Debug("proxy cache flushed", "entries", n)
}

// CacheSize returns the number of cached responses, fresh or not.
func (p *Proxy) CacheSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cache)
}

func (p *Proxy) cached(rawURL string) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.cache[rawURL]
	if !ok {
		return nil, false
	}
	if p.now().Sub(e.fetched) >= p.ttl {
		delete(p.cache, rawURL)
		return nil, false
	}
	return e.body, true
}

func (p *Proxy) get(ctx context.Context, rawURL string) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", parsed.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrStatus, rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, runtimecfg.ProxyMaxReadBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	return body, nil
}
