// Package limiter provides the per-client rate limiter guarding the SSR
// fallback. Static serving is cheap; rendering is not.
package limiter

import (
	"net"
	"sync"

	"golang.org/x/time/rate"
)

// Config holds the limiter tunables. Zero values fall back to defaults.
type Config struct {
	RPS   float64
	Burst int
}

// Pool keeps one rate.Limiter per client key (normally the client IP).
type Pool struct {
	mu  sync.Mutex
	m   map[string]*rate.Limiter
	cfg Config
}

// NewPool builds a limiter pool.
func NewPool(cfg Config) *Pool {
	return &Pool{cfg: cfg, m: make(map[string]*rate.Limiter)}
}

func (p *Pool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.m[key]; ok {
		return l
	}
	rps := p.cfg.RPS
	if rps <= 0 {
		rps = 5
	}
	burst := p.cfg.Burst
	if burst <= 0 {
		burst = 10
	}
	l := rate.NewLimiter(rate.Limit(rps), burst)
	p.m[key] = l
	return l
}

// Allow reports whether the client identified by key may proceed.
func (p *Pool) Allow(key string) bool {
	return p.get(ClientKey(key)).Allow()
}

// ClientKey strips a port from host:port addresses so one client maps to
// one limiter regardless of the ephemeral port.
func ClientKey(addr string) string {
	if h, _, err := net.SplitHostPort(addr); err == nil {
		return h
	}
	return addr
}
