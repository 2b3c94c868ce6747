package metrics_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itemsapi/internal/metrics"
	"itemsapi/internal/session"
)

type fixedPool session.Stats

func (p fixedPool) Stats() session.Stats { return session.Stats(p) }

type fixedCache struct{ hits, misses uint64 }

func (c fixedCache) Stats() (uint64, uint64, float64) {
	return c.hits, c.misses, float64(c.hits) / float64(c.hits+c.misses)
}

func TestExposition_CoreThenRuntimeFamilies(t *testing.T) {
	reg := metrics.NewRegistry()
	httpMetrics, err := metrics.NewHTTPMetrics(reg, newTestLogger())
	require.NoError(t, err)
	httpMetrics.RecordHTTP(metrics.HTTPMetric{
		Method:     "GET",
		Path:       "/api/items",
		StatusCode: 200,
		Duration:   20 * time.Millisecond,
	})

	runtime := metrics.NewRuntimeRegistry(
		fixedPool{Acquired: 1, Idle: 2, Total: 3, Max: 15, AcquireTimeouts: 4},
		fixedCache{hits: 3, misses: 1},
	)
	exp := metrics.NewExposition(reg, runtime)

	var buf bytes.Buffer
	require.NoError(t, exp.Expose(&buf))
	body := buf.String()

	assert.Contains(t, body, `http_requests_total{method="GET",endpoint="/api/items",status="200"} 1`)
	assert.Contains(t, body, `http_request_duration_seconds_bucket{method="GET",endpoint="/api/items",le="0.025"} 1`)
	assert.Contains(t, body, `http_request_duration_seconds_count{method="GET",endpoint="/api/items"} 1`)
	assert.Contains(t, body, "db_pool_acquired_connections 1")
	assert.Contains(t, body, "db_pool_max_connections 15")
	assert.Contains(t, body, "db_pool_acquire_timeouts_total 4")
	assert.Contains(t, body, "item_cache_hits_total 3")
	assert.Contains(t, body, "go_goroutines")

	core := strings.Index(body, "# TYPE http_requests_total counter")
	pool := strings.Index(body, "# TYPE db_pool_idle_connections gauge")
	require.NotEqual(t, -1, core)
	require.NotEqual(t, -1, pool)
	assert.Less(t, core, pool, "request metrics come first")
}

func TestExposition_WithoutExtra(t *testing.T) {
	reg := newRegistry(t, requests)
	exp := metrics.NewExposition(reg, nil)

	var buf bytes.Buffer
	require.NoError(t, exp.Expose(&buf))
	assert.Equal(t, "# HELP requests_total Requests handled\n# TYPE requests_total counter\n", buf.String())
	assert.Equal(t, "text/plain; version=0.0.4; charset=utf-8", exp.ContentType())
}
