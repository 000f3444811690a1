package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Decision is the outcome of one rate check.
type Decision struct {
	Allowed      bool
	Limit        int
	Remaining    int
	ResetSeconds int
}

// Usage is the request count for one principal in the current month.
type Usage struct {
	Period    string         `json:"period"`
	Total     int            `json:"total"`
	Endpoints map[string]int `json:"endpoints"`
}

// Limiter enforces a per-minute budget and keeps usage counters per principal key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
	RecordUsage(ctx context.Context, key, endpoint string, now time.Time) error
	Usage(ctx context.Context, key string, now time.Time) (Usage, error)
}

// Manager provides Redis-backed rate limiting and usage accounting
type Manager struct {
	redis *redis.Client
	rpm   int
	now   func() time.Time
}

func NewManager(redisURL string, rpm int) (*Manager, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Manager{redis: client, rpm: rpm, now: time.Now}, nil
}

func (m *Manager) Close() error { return m.redis.Close() }

// Ping checks Redis connectivity for readiness probes.
func (m *Manager) Ping(ctx context.Context) error { return m.redis.Ping(ctx).Err() }

// SetRPM allows tests to override the per-minute limit
func (m *Manager) SetRPM(rpm int) { m.rpm = rpm }

// Keys helpers
func monthKey(t time.Time) string { return t.UTC().Format("200601") }

func usageTotalKey(key string, t time.Time) string {
	return fmt.Sprintf("usage:%s:%s:total", key, monthKey(t))
}

func usageEndpointKey(key string, t time.Time, endpoint string) string {
	return fmt.Sprintf("usage:%s:%s:ep:%s", key, monthKey(t), endpoint)
}

func monthEnd(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}

// Allow counts one request in the current minute window
func (m *Manager) Allow(ctx context.Context, key string) (Decision, error) {
	now := m.now().UTC()
	window := now.Unix() / 60
	rk := fmt.Sprintf("rl:%s:%d", key, window)
	reset := 60 - int(now.Unix()%60)

	pipe := m.redis.TxPipeline()
	incr := pipe.Incr(ctx, rk)
	pipe.Expire(ctx, rk, time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, err
	}

	count := int(incr.Val())
	remaining := m.rpm - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:      m.rpm <= 0 || count <= m.rpm,
		Limit:        m.rpm,
		Remaining:    remaining,
		ResetSeconds: reset,
	}, nil
}

// RecordUsage increments the monthly totals after a request was served
func (m *Manager) RecordUsage(ctx context.Context, key, endpoint string, now time.Time) error {
	totalKey := usageTotalKey(key, now)
	epKey := usageEndpointKey(key, now, endpoint)
	exp := monthEnd(now).Sub(now.UTC())

	pipe := m.redis.TxPipeline()
	pipe.Incr(ctx, totalKey)
	pipe.Expire(ctx, totalKey, exp)
	pipe.Incr(ctx, epKey)
	pipe.Expire(ctx, epKey, exp)
	_, err := pipe.Exec(ctx)
	return err
}

// Usage scans Redis for the principal's counters in the current month
func (m *Manager) Usage(ctx context.Context, key string, now time.Time) (Usage, error) {
	out := Usage{Period: monthKey(now), Endpoints: map[string]int{}}

	total, err := m.redis.Get(ctx, usageTotalKey(key, now)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Usage{}, err
	}
	out.Total = total

	pattern := usageEndpointKey(key, now, "*")
	var cursor uint64
	for {
		keys, cur, err := m.redis.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return Usage{}, err
		}
		cursor = cur
		for _, k := range keys {
			v, err := m.redis.Get(ctx, k).Int()
			if err != nil {
				continue
			}
			// k format: usage:<key>:<month>:ep:<endpoint>
			if parts := strings.SplitN(k, ":ep:", 2); len(parts) == 2 {
				out.Endpoints[parts[1]] = v
			}
		}
		if cursor == 0 {
			break
		}
	}
	return out, nil
}
