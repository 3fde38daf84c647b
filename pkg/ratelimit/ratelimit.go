// Package ratelimit throttles HTTP clients with one token bucket per client IP.
package ratelimit

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dreamplay/rewards/pkg/clock"
)

// ErrRateLimited is reported to clients that exceed their budget.
var ErrRateLimited = errors.New("too many requests")

// idleTTL is how long an idle client's bucket is kept.
const idleTTL = 10 * time.Minute

// Config sets the sustained rate and the burst per client.
// TrustProxy keys clients by X-Real-IP / X-Forwarded-For; enable it only
// behind a proxy that overwrites those headers.
type Config struct {
	RequestsPerMinute float64
	Burst             int
	TrustProxy        bool
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter tracks a token bucket per client.
type Limiter struct {
	cfg   Config
	clock clock.Clock

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

// New creates a limiter. A zero or negative rate disables limiting.
func New(cfg Config, clk clock.Clock) *Limiter {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &Limiter{
		cfg:       cfg,
		clock:     clk,
		visitors:  make(map[string]*visitor),
		lastSweep: clk.Now(),
	}
}

// Enabled reports whether requests are limited at all.
func (l *Limiter) Enabled() bool {
	return l.cfg.RequestsPerMinute > 0
}

// Allow consumes one token for id.
func (l *Limiter) Allow(id string) bool {
	if !l.Enabled() {
		return true
	}

	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= idleTTL {
		l.sweep(now)
	}

	v, ok := l.visitors[id]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerMinute/60.0), l.cfg.Burst)}
		l.visitors[id] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// sweep drops idle buckets. Caller holds l.mu.
func (l *Limiter) sweep(now time.Time) {
	for id, v := range l.visitors {
		if now.Sub(v.lastSeen) >= idleTTL {
			delete(l.visitors, id)
		}
	}
	l.lastSweep = now
}

// Tracked returns the number of client buckets held.
func (l *Limiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// Middleware rejects over-budget requests with onLimit.
// CORS preflight requests are never limited.
func (l *Limiter) Middleware(onLimit http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || l.Allow(ClientID(r, l.cfg.TrustProxy)) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", "60")
			onLimit.ServeHTTP(w, r)
		})
	}
}

// ClientID identifies the caller by its socket address. With trustProxy the
// proxy headers take precedence.
func ClientID(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			first = strings.TrimSpace(first)
			if parsed := net.ParseIP(first); parsed != nil {
				return parsed.String()
			}
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
