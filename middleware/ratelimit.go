package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ts4z/wtapicks/he"
	"github.com/ts4z/wtapicks/varz"
)

var rateLimited = varz.NewCounter("rate_limited_total", "Requests refused by the per-address limiter.")

const (
	// Entries are only pruned once there are this many.
	pruneThreshold = 500
	maxIdle        = 10 * time.Minute
)

type addrEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// AddrLimiter keeps one token bucket per remote address.  It guards login
// and registration.
type AddrLimiter struct {
	mu    sync.Mutex
	addrs map[string]*addrEntry
	r     rate.Limit
	b     int
	clock Clock
}

func NewAddrLimiter(r rate.Limit, b int, clock Clock) *AddrLimiter {
	return &AddrLimiter{
		addrs: map[string]*addrEntry{},
		r:     r,
		b:     b,
		clock: clock,
	}
}

func (al *AddrLimiter) limiter(addr string) *rate.Limiter {
	al.mu.Lock()
	defer al.mu.Unlock()

	now := al.clock.Now()
	if len(al.addrs) > pruneThreshold {
		cutoff := now.Add(-maxIdle)
		for k, e := range al.addrs {
			if e.lastSeen.Before(cutoff) {
				delete(al.addrs, k)
			}
		}
	}

	e, ok := al.addrs[addr]
	if !ok {
		e = &addrEntry{limiter: rate.NewLimiter(al.r, al.b)}
		al.addrs[addr] = e
	}
	e.lastSeen = now
	return e.limiter
}

func (al *AddrLimiter) Allow(r *http.Request) bool {
	addr, _, err := net.SplitHostPort(remoteAddr(r))
	if err != nil {
		addr = remoteAddr(r)
	}
	return al.limiter(addr).AllowN(al.clock.Now(), 1)
}

// Wrap refuses requests over the limit with 429.
func (al *AddrLimiter) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !al.Allow(r) {
			rateLimited.Inc()
			he.SendErrorToHTTPClient(w, "accept request", he.HTTPCodedErrorf(http.StatusTooManyRequests, "too many requests; slow down"))
			return
		}
		next(w, r)
	}
}
