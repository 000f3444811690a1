package usage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajasatyajit/TravelSafe/internal/ratelimit"
)

type staticKeys struct {
	ids []string
	err error
}

func (s staticKeys) ListActiveKeyIDs(ctx context.Context) ([]string, error) { return s.ids, s.err }

type execCall struct {
	sql  string
	args []any
}

type recordingExec struct {
	calls []execCall
	err   error
}

func (r *recordingExec) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	r.calls = append(r.calls, execCall{sql: sql, args: args})
	return 1, r.err
}

func TestAggregator_FlushOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 17, 12, 0, 0, 0, time.UTC)

	lim := ratelimit.NewLocal(60)
	require.NoError(t, lim.RecordUsage(ctx, "key:k1", "GET /api/advisory/{code}", now))
	require.NoError(t, lim.RecordUsage(ctx, "key:k1", "GET /api/advisory/{code}", now))
	require.NoError(t, lim.RecordUsage(ctx, "key:k1", "GET /api/combined", now))
	require.NoError(t, lim.RecordUsage(ctx, "ip:abc", "GET /api/ipinfo", now))

	db := &recordingExec{}
	agg := NewAggregator(db, staticKeys{ids: []string{"k1", "idle"}}, lim)
	agg.now = func() time.Time { return now }

	n, err := agg.FlushOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "idle keys are skipped")
	require.Len(t, db.calls, 1)

	args := db.calls[0].args
	assert.Contains(t, db.calls[0].sql, "ON CONFLICT (key_id, period_start)")
	assert.Equal(t, "k1", args[0])
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), args[1])
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), args[2])
	assert.Equal(t, 3, args[3])

	var endpoints map[string]int
	require.NoError(t, json.Unmarshal([]byte(args[4].(string)), &endpoints))
	assert.Equal(t, map[string]int{"GET /api/advisory/{code}": 2, "GET /api/combined": 1}, endpoints)
}

func TestAggregator_FlushOnceErrors(t *testing.T) {
	ctx := context.Background()
	lim := ratelimit.NewLocal(60)
	require.NoError(t, lim.RecordUsage(ctx, "key:k1", "GET /api/ipinfo", time.Now()))

	t.Run("list failure", func(t *testing.T) {
		agg := NewAggregator(&recordingExec{}, staticKeys{err: errors.New("db down")}, lim)
		_, err := agg.FlushOnce(ctx)
		assert.ErrorContains(t, err, "db down")
	})

	t.Run("write failure", func(t *testing.T) {
		db := &recordingExec{err: errors.New("constraint")}
		agg := NewAggregator(db, staticKeys{ids: []string{"k1"}}, lim)
		n, err := agg.FlushOnce(ctx)
		assert.Error(t, err)
		assert.Equal(t, 0, n)
	})
}

func TestAggregator_RunFlushesOnShutdown(t *testing.T) {
	lim := ratelimit.NewLocal(60)
	require.NoError(t, lim.RecordUsage(context.Background(), "key:k1", "GET /api/ipinfo", time.Now()))

	db := &recordingExec{}
	agg := NewAggregator(db, staticKeys{ids: []string{"k1"}}, lim)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	agg.Run(ctx, time.Hour)

	assert.Len(t, db.calls, 1)
}
