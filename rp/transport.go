package rp

import (
	"net/url"
	"sync"
	"time"
)

// TransportLimiters hands out one Protector per distinct host, lazily
// created, so every driver that fetches over the network can bound its own
// concurrency against a given endpoint without the drivers needing to share
// a registry of their own.
type TransportLimiters struct {
	maxPerHost     int
	releaseTimeout time.Duration
	mu             sync.Mutex
	byHost         map[string]*Protector
}

// NewTransportLimiters returns a registry handing out Protectors that each
// allow maxPerHost concurrent in-flight requests, releasing automatically
// after releaseTimeout if a caller forgets to Release.
func NewTransportLimiters(maxPerHost int, releaseTimeout time.Duration) *TransportLimiters {
	return &TransportLimiters{maxPerHost: maxPerHost, releaseTimeout: releaseTimeout, byHost: make(map[string]*Protector)}
}

// ForURL returns the Protector for rawURL's host, creating it on first use.
func (t *TransportLimiters) ForURL(rawURL string) *Protector {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return t.ForHost(host)
}

// ForHost returns the Protector for host, creating it on first use.
func (t *TransportLimiters) ForHost(host string) *Protector {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.byHost[host]; ok {
		return p
	}
	p := New(host, 0, t.maxPerHost, t.releaseTimeout)
	t.byHost[host] = p
	return p
}
