package web

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP. Buckets idle for longer
// than it takes them to refill are dropped.
type RateLimiter struct {
	visitors  map[string]*visitor
	mutex     sync.Mutex
	limit     rate.Limit
	burst     int
	trusted   []netip.Prefix
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter allows perSecond requests per client with bursts of burst.
// Proxy headers are honoured only on requests coming from a trusted prefix.
func NewRateLimiter(perSecond float64, burst int, trusted []netip.Prefix) *RateLimiter {
	burst = max(burst, 1)
	idle := time.Hour
	if perSecond > 0 {
		idle = max(time.Minute, time.Duration(float64(burst)/perSecond*float64(time.Second)))
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		trusted:  trusted,
		idle:     idle,
		now:      time.Now,
	}
}

// ClientIP picks the client address of r. X-Real-IP and X-Forwarded-For are
// only read when the peer is a trusted proxy.
func (rl *RateLimiter) ClientIP(r *http.Request) string {
	peer := remoteHost(r)
	if !rl.trustedPeer(peer) {
		return peer
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	// Walk right to left, skipping our own proxies.
	var hops []string
	for _, header := range r.Header.Values("X-Forwarded-For") {
		hops = append(hops, strings.Split(header, ",")...)
	}
	for i := len(hops) - 1; i >= 0; i-- {
		ip := net.ParseIP(strings.TrimSpace(hops[i]))
		if ip == nil {
			continue
		}
		if !rl.trustedPeer(ip.String()) {
			return ip.String()
		}
	}
	return peer
}

func (rl *RateLimiter) trustedPeer(host string) bool {
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range rl.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func remoteHost(r *http.Request) string {
	h, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return h
}

// Allow reports whether client ip may make a request now.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mutex.Lock()
	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.idle {
		rl.sweep(now)
	}
	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	rl.mutex.Unlock()
	return v.limiter.AllowN(now, 1)
}

// sweep drops idle buckets. Callers hold the mutex.
func (rl *RateLimiter) sweep(now time.Time) {
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) >= rl.idle {
			delete(rl.visitors, ip)
		}
	}
	rl.lastSweep = now
}

// Clients returns the number of buckets currently kept.
func (rl *RateLimiter) Clients() int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	return len(rl.visitors)
}
