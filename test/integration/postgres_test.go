//go:build integration

package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rajasatyajit/TravelSafe/config"
	"github.com/rajasatyajit/TravelSafe/internal/auth"
	"github.com/rajasatyajit/TravelSafe/internal/database"
	apperrors "github.com/rajasatyajit/TravelSafe/internal/errors"
	"github.com/rajasatyajit/TravelSafe/internal/models"
	"github.com/rajasatyajit/TravelSafe/internal/ratelimit"
	"github.com/rajasatyajit/TravelSafe/internal/store"
	"github.com/rajasatyajit/TravelSafe/internal/usage"
)

// startPostgres runs postgres:15-alpine and returns a migrated DB.
func startPostgres(t *testing.T) *database.DB {
	t.Helper()
	if !containersAvailable() {
		t.Skip("no container runtime available")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	req := testcontainers.ContainerRequest{
		Image: "postgres:15-alpine",
		Env: map[string]string{
			"POSTGRES_DB":       "travelsafe",
			"POSTGRES_USER":     "travelsafe",
			"POSTGRES_PASSWORD": "password",
		},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "start container")
	t.Cleanup(func() { _ = pg.Terminate(context.Background()) })

	host, err := pg.Host(ctx)
	require.NoError(t, err)
	port, err := pg.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := "postgres://travelsafe:password@" + host + ":" + port.Port() + "/travelsafe?sslmode=disable"

	// the metrics loop lives as long as the test
	dbCtx, dbCancel := context.WithCancel(context.Background())
	t.Cleanup(dbCancel)

	db, err := database.New(dbCtx, config.DatabaseConfig{
		URL:             dsn,
		MaxConns:        5,
		MinConns:        1,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
		AutoMigrate:     true,
	})
	require.NoError(t, err, "database.New")
	t.Cleanup(func() { db.Close(context.Background()) })
	return db
}

func TestPostgres_Migrations(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()

	// a second run is a no-op
	require.NoError(t, db.Migrate(ctx))

	for _, table := range []string{"users", "advisory_records", "api_keys", "usage_aggregates"} {
		var n int
		err := db.QueryRow(ctx, "SELECT count(*) FROM information_schema.tables WHERE table_name = $1", table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "table %s", table)
	}
}

func TestPostgresStore_History(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()
	st := store.New(db)
	require.NoError(t, st.Health(ctx))

	ada, err := st.UpsertUser(ctx, models.User{GoogleID: "g-ada", DisplayName: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	again, err := st.UpsertUser(ctx, models.User{GoogleID: "g-ada", DisplayName: "Ada L.", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, ada.ID, again.ID, "upsert keeps the user id")
	assert.Equal(t, "Ada L.", again.DisplayName)

	bob, err := st.UpsertUser(ctx, models.User{GoogleID: "g-bob", DisplayName: "Bob"})
	require.NoError(t, err)

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i, code := range []string{"FR", "LK", "UA"} {
		_, err := st.SaveRecord(ctx, models.HistoryRecord{
			UserID:    ada.ID,
			IPInfo:    &models.IPInfo{IP: "203.0.113.7", CountryCode: "FR"},
			Advisory:  models.AdvisoryResult{CountryCode: code, CountryName: code, Score: float64(i + 1)},
			Meta:      map[string]string{"n": code},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	recs, err := st.ListRecords(ctx, models.HistoryQuery{UserID: ada.ID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "UA", recs[0].Advisory.CountryCode, "newest first")
	assert.Equal(t, "LK", recs[1].Advisory.CountryCode)
	require.NotNil(t, recs[0].IPInfo)
	assert.Equal(t, "203.0.113.7", recs[0].IPInfo.IP)
	assert.Equal(t, "UA", recs[0].Meta["n"])

	err = st.DeleteRecord(ctx, bob.ID, recs[0].ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound), "other users cannot delete")

	require.NoError(t, st.DeleteRecord(ctx, ada.ID, recs[0].ID))
	recs, err = st.ListRecords(ctx, models.HistoryQuery{UserID: ada.ID})
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestPostgres_APIKeys(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()
	v := auth.NewVerifier(nil, auth.NewRepository(db))

	raw, rec, err := v.IssueKey(ctx, "acme", "pro", "test")
	require.NoError(t, err)

	p, err := v.Verify(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, rec.KeyID, p.KeyID)
	assert.Equal(t, "acme", p.Owner)
	assert.Equal(t, auth.SourceAPIKey, p.Source)

	stored, err := auth.NewRepository(db).Lookup(ctx, rec.KeyID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastUsedAt, "verification records last use")

	require.NoError(t, v.RevokeKey(ctx, rec.KeyID))
	_, err = v.Verify(ctx, raw)
	assert.ErrorIs(t, err, auth.ErrKeyRevoked)

	assert.ErrorIs(t, v.RevokeKey(ctx, "missing"), apperrors.ErrNotFound)
}

func TestPostgres_UsageAggregates(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()
	repo := auth.NewRepository(db)
	v := auth.NewVerifier(nil, repo)

	_, live, err := v.IssueKey(ctx, "acme", "pro", "live")
	require.NoError(t, err)
	_, gone, err := v.IssueKey(ctx, "acme", "pro", "live")
	require.NoError(t, err)
	require.NoError(t, v.RevokeKey(ctx, gone.KeyID))

	ids, err := repo.ListActiveKeyIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{live.KeyID}, ids)

	lim := ratelimit.NewLocal(60)
	now := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, lim.RecordUsage(ctx, "key:"+live.KeyID, "GET /api/ipinfo", now))
	}

	agg := usage.NewAggregator(db, repo, lim)
	for i := 0; i < 2; i++ {
		n, err := agg.FlushOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}

	var rows, total int
	require.NoError(t, db.QueryRow(ctx, "SELECT count(*), max(total_requests) FROM usage_aggregates WHERE key_id = $1", live.KeyID).Scan(&rows, &total))
	assert.Equal(t, 1, rows, "flush is an upsert")
	assert.Equal(t, 3, total)
}
