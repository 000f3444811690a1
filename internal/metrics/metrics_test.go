package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ensure NoOpMetrics methods do not panic and global functions delegate without error
func TestNoOpMetricsAndDelegates(t *testing.T) {
	Set(nil)

	m := &NoOpMetrics{}
	m.RecordHTTPRequest("GET", "/x", 200, time.Millisecond)
	m.RecordAdvisoryLookup(OutcomeOK)
	m.RecordAdvisoryScore(3)
	m.RecordUpstreamCall("advisory", "ok", time.Millisecond)
	m.SetDBConnectionsActive(1)
	m.RecordDBQuery("exec", "ok")

	RecordHTTPRequest("GET", "/x", 200, time.Millisecond)
	RecordAdvisoryLookup(OutcomeNotFound)
	RecordAdvisoryScore(0)
	RecordUpstreamCall("geo", "error", time.Millisecond)
	SetDBConnectionsActive(2)
	RecordDBQuery("query", "ok")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPrometheusMetrics(t *testing.T) {
	m := NewPrometheus()

	m.RecordAdvisoryLookup(OutcomeOK)
	m.RecordAdvisoryLookup(OutcomeOK)
	m.RecordAdvisoryLookup(OutcomeFallback)
	m.RecordDBQuery("save_record", "ok")
	m.SetDBConnectionsActive(4)
	m.RecordHTTPRequest("GET", "/api/advisory/{code}", 200, 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.advisoryLookups.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.advisoryLookups.WithLabelValues(OutcomeFallback)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dbQueries.WithLabelValues("save_record", "ok")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.dbConnections))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "travelsafe_http_requests_total"))
	assert.True(t, strings.Contains(string(body), `outcome="fallback"`))
}

func TestInitInstallsPrometheus(t *testing.T) {
	Init()
	defer Set(nil)

	_, ok := globalMetrics.(*PrometheusMetrics)
	assert.True(t, ok, "Init should install Prometheus metrics")

	// fresh registry per Init, so a second call must not panic on duplicate registration
	assert.NotPanics(t, Init)
}
