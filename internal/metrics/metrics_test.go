package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazz-dev/depprobe/internal/health"
)

func result(name string, status health.Status) health.Result {
	return health.Result{Name: name, Status: status, Duration: 20 * time.Millisecond}
}

func TestObserve_Status(t *testing.T) {
	c := New()

	c.Observe(result("db", health.StatusHealthy), true)
	c.Observe(result("queue", health.StatusDegraded), true)
	c.Observe(health.Unhealthy("down", errors.New("boom")), true)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.status.WithLabelValues("db")))
	assert.Equal(t, 0.5, testutil.ToFloat64(c.status.WithLabelValues("queue")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.status.WithLabelValues("")))
}

func TestObserve_FreshAndCached(t *testing.T) {
	c := New()

	c.Observe(result("db", health.StatusHealthy), true)
	c.Observe(result("db", health.StatusHealthy), false)
	c.Observe(result("db", health.StatusHealthy), false)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.executions.WithLabelValues("db", "healthy")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.cacheHits.WithLabelValues("db")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.duration))
}

func TestHandler(t *testing.T) {
	c := New()
	c.Observe(result("db", health.StatusHealthy), true)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `depprobe_check_status{check="db"} 1`))
	assert.True(t, strings.Contains(string(body), "go_goroutines"))
}
