package ratelimit

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type localUsage struct {
	Usage
	lastSeen time.Time
}

// Local is an in-process Limiter used when Redis is not configured.
// Each key gets a token bucket refilled at rpm per minute with a burst of rpm.
type Local struct {
	mu      sync.Mutex
	rpm     int
	entries map[string]*localEntry
	usage   map[string]*localUsage
	now     func() time.Time
}

func NewLocal(rpm int) *Local {
	return &Local{
		rpm:     rpm,
		entries: make(map[string]*localEntry),
		usage:   make(map[string]*localUsage),
		now:     time.Now,
	}
}

func (l *Local) Allow(ctx context.Context, key string) (Decision, error) {
	if l.rpm <= 0 {
		return Decision{Allowed: true}, nil
	}

	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		e = &localEntry{limiter: rate.NewLimiter(rate.Limit(float64(l.rpm)/60), l.rpm)}
		l.entries[key] = e
	}
	e.lastSeen = now

	allowed := e.limiter.AllowN(now, 1)
	tokens := e.limiter.TokensAt(now)
	remaining := int(math.Floor(tokens))
	if remaining < 0 {
		remaining = 0
	}

	reset := 0
	if tokens < 1 {
		reset = int(math.Ceil((1 - tokens) * 60 / float64(l.rpm)))
	}
	return Decision{Allowed: allowed, Limit: l.rpm, Remaining: remaining, ResetSeconds: reset}, nil
}

func (l *Local) RecordUsage(ctx context.Context, key, endpoint string, now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	period := monthKey(now)
	u := l.usage[key]
	if u == nil || u.Period != period {
		u = &localUsage{Usage: Usage{Period: period, Endpoints: map[string]int{}}}
		l.usage[key] = u
	}
	u.Total++
	u.Endpoints[endpoint]++
	u.lastSeen = now
	return nil
}

func (l *Local) Usage(ctx context.Context, key string, now time.Time) (Usage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	period := monthKey(now)
	out := Usage{Period: period, Endpoints: map[string]int{}}
	if u := l.usage[key]; u != nil && u.Period == period {
		out.Total = u.Total
		for k, v := range u.Endpoints {
			out.Endpoints[k] = v
		}
	}
	return out, nil
}

// Prune drops buckets idle for longer than maxIdle and returns how many went.
// Usage counters from an earlier month are dropped too. Counters for API keys
// are kept for the whole month so the aggregator can persist them; counters
// for anonymous and session principals go once they are idle for maxIdle.
func (l *Local) Prune(maxIdle time.Duration) int {
	now := l.now()
	cutoff := now.Add(-maxIdle)
	period := monthKey(now)
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for k, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, k)
			n++
		}
	}
	for k, u := range l.usage {
		if u.Period != period || (!strings.HasPrefix(k, "key:") && u.lastSeen.Before(cutoff)) {
			delete(l.usage, k)
		}
	}
	return n
}

// RunPruner prunes idle buckets and usage every interval until ctx is done.
func (l *Local) RunPruner(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Prune(10 * time.Minute)
		}
	}
}
