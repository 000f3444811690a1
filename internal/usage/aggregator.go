package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rajasatyajit/TravelSafe/internal/logger"
	"github.com/rajasatyajit/TravelSafe/internal/ratelimit"
)

// KeyLister returns the API keys whose usage should be persisted.
type KeyLister interface {
	ListActiveKeyIDs(ctx context.Context) ([]string, error)
}

// Execer is the write side of *database.DB.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
}

// Aggregator copies the limiter's monthly per-key counters into usage_aggregates.
type Aggregator struct {
	db     Execer
	keys   KeyLister
	source ratelimit.Limiter
	now    func() time.Time
}

func NewAggregator(db Execer, keys KeyLister, source ratelimit.Limiter) *Aggregator {
	return &Aggregator{db: db, keys: keys, source: source, now: time.Now}
}

// Run flushes every interval until ctx is cancelled, then flushes once more.
func (a *Aggregator) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if _, err := a.FlushOnce(flushCtx); err != nil {
				logger.Warn("final usage flush failed", "error", err)
			}
			cancel()
			return
		case <-ticker.C:
			if _, err := a.FlushOnce(ctx); err != nil {
				logger.Warn("usage flush failed", "error", err)
			}
		}
	}
}

// FlushOnce runs a single aggregation cycle and returns the number of rows written.
// Keys with no traffic this month are skipped.
func (a *Aggregator) FlushOnce(ctx context.Context) (int, error) {
	ids, err := a.keys.ListActiveKeyIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list keys: %w", err)
	}

	now := a.now().UTC()
	periodStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0)

	written := 0
	for _, id := range ids {
		u, err := a.source.Usage(ctx, "key:"+id, now)
		if err != nil {
			logger.Warn("usage read failed", "key_id", id, "error", err)
			continue
		}
		if u.Total == 0 {
			continue
		}
		endpoints, err := json.Marshal(u.Endpoints)
		if err != nil {
			return written, err
		}
		_, err = a.db.Exec(ctx, `
			INSERT INTO usage_aggregates (key_id, period_start, period_end, total_requests, per_endpoint, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (key_id, period_start)
			DO UPDATE SET total_requests = EXCLUDED.total_requests,
			              per_endpoint = EXCLUDED.per_endpoint,
			              updated_at = EXCLUDED.updated_at
		`, id, periodStart, periodEnd, u.Total, string(endpoints), now)
		if err != nil {
			return written, fmt.Errorf("write usage for %s: %w", id, err)
		}
		written++
	}

	logger.Debug("usage flushed", "keys", len(ids), "rows", written)
	return written, nil
}
