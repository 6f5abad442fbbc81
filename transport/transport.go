// Package transport pools *http.Client instances keyed by timeout and
// proxy settings so adapters sharing a provider's configuration reuse one
// connection pool instead of creating an http.Client per request.
//
// Grounded on core.py's LLMHttpClient/get_httpx_client factory (which
// memoizes a client per (timeout, proxy) pair) and alfred-ai's
// NewPooledTransport/NewHTTPClient connection-pool tuning.
package transport

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// PoolConfig tunes the underlying http.Transport's connection pool.
// Grounded on alfred-ai's PooledTransportConfig.
type PoolConfig struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
}

const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 20
	defaultMaxConnsPerHost     = 100
	defaultIdleConnTimeout     = 120 * time.Second
	defaultConnTimeout         = 30 * time.Second
)

func (p PoolConfig) withDefaults() PoolConfig {
	if p.MaxIdleConns <= 0 {
		p.MaxIdleConns = defaultMaxIdleConns
	}
	if p.MaxIdleConnsPerHost <= 0 {
		p.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
	}
	if p.MaxConnsPerHost <= 0 {
		p.MaxConnsPerHost = defaultMaxConnsPerHost
	}
	if p.IdleConnTimeout <= 0 {
		p.IdleConnTimeout = defaultIdleConnTimeout
	}
	return p
}

func newTransport(proxy string, pool PoolConfig) (*http.Transport, error) {
	pool = pool.withDefaults()

	t := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   defaultConnTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: defaultConnTimeout,
		MaxIdleConns:          pool.MaxIdleConns,
		MaxIdleConnsPerHost:   pool.MaxIdleConnsPerHost,
		MaxConnsPerHost:       pool.MaxConnsPerHost,
		IdleConnTimeout:       pool.IdleConnTimeout,
		ForceAttemptHTTP2:     true,
	}

	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("parsing proxy url %q: %w", proxy, err)
		}
		t.Proxy = http.ProxyURL(proxyURL)
	}
	return t, nil
}

// key identifies one distinct pooled client configuration.
type key struct {
	timeout time.Duration
	proxy   string
}

// Manager caches *http.Client instances by (timeout, proxy), so every
// adapter calling the same provider configuration shares one connection
// pool instead of paying a fresh TLS handshake per request.
type Manager struct {
	mu      sync.Mutex
	clients map[key]*http.Client
	pool    PoolConfig
}

// NewManager builds an empty client cache using the given default pool
// tuning for every client it creates.
func NewManager(pool PoolConfig) *Manager {
	return &Manager{
		clients: make(map[key]*http.Client),
		pool:    pool,
	}
}

// Client returns the cached *http.Client for (timeout, proxy), creating
// one on first use.
func (m *Manager) Client(timeout time.Duration, proxy string) (*http.Client, error) {
	k := key{timeout: timeout, proxy: proxy}

	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.clients[k]; ok {
		return c, nil
	}

	t, err := newTransport(proxy, m.pool)
	if err != nil {
		return nil, err
	}
	c := &http.Client{Transport: t, Timeout: timeout}
	m.clients[k] = c
	return c, nil
}

// CloseIdleConnections closes idle connections on every cached client,
// used on graceful shutdown.
func (m *Manager) CloseIdleConnections() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.clients {
		c.CloseIdleConnections()
	}
}

// Len reports how many distinct clients are currently cached, for tests
// and diagnostics.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}
