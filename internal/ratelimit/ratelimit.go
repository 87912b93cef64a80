package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter gates incoming connections globally and per remote host.
// A rate of 0 disables that check.
type Limiter struct {
	mu      sync.Mutex
	global  *rate.Limiter
	perHost map[string]*rate.Limiter
	rate    int
	burst   int
}

// New creates a limiter allowing globalRate connections per second overall
// and perHostRate per remote host, each with its own burst.
func New(globalRate, globalBurst, perHostRate, perHostBurst int) *Limiter {
	l := &Limiter{
		perHost: make(map[string]*rate.Limiter),
		rate:    perHostRate,
		burst:   max(perHostBurst, 1),
	}
	if globalRate > 0 {
		l.global = rate.NewLimiter(rate.Limit(globalRate), max(globalBurst, 1))
	}
	return l
}

// Allow reports whether a new connection from host may proceed and consumes
// tokens if so. The per-host bucket is checked first so a throttled host does
// not drain the global budget; its token is returned when the global check fails.
func (l *Limiter) Allow(host string) bool {
	now := time.Now()
	var r *rate.Reservation
	if l.rate > 0 {
		r = l.hostLimiter(host).ReserveN(now, 1)
		if !r.OK() || r.DelayFrom(now) > 0 {
			r.CancelAt(now)
			return false
		}
	}
	if l.global != nil && !l.global.AllowN(now, 1) {
		if r != nil {
			r.CancelAt(now)
		}
		return false
	}
	return true
}

func (l *Limiter) hostLimiter(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.perHost[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.rate), l.burst)
		l.perHost[host] = lim
	}
	return lim
}

// Cleanup drops per-host state for hosts not in active whose bucket has
// refilled completely. Dropping a partially drained bucket would hand the
// host a fresh burst.
func (l *Limiter) Cleanup(active map[string]bool) {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for host, lim := range l.perHost {
		if !active[host] && lim.TokensAt(now) >= float64(l.burst) {
			delete(l.perHost, host)
		}
	}
}

// Hosts returns the number of hosts currently tracked.
func (l *Limiter) Hosts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.perHost)
}
