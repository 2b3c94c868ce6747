package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itemsapi/internal/config"
	"itemsapi/internal/middleware"
)

func newLimitedEcho(cfg *config.RateLimitConfig, exempt ...string) *echo.Echo {
	e := echo.New()
	e.Use(middleware.RateLimit(cfg, newTestLogger(), exempt...))
	e.GET("/api/items", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	return e
}

func doFrom(e *echo.Echo, path, ip string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = ip + ":12345"
	if len(header) == 2 {
		req.Header.Set(header[0], header[1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_AllowsRequestsUnderLimit(t *testing.T) {
	e := newLimitedEcho(&config.RateLimitConfig{RPS: 10, Burst: 5, ExpireMinutes: 1})

	for i := range 5 {
		rec := doFrom(e, "/api/items", "192.168.1.1")
		assert.Equal(t, http.StatusOK, rec.Code, "request %d should succeed", i)
	}
}

func TestRateLimit_Returns429WithRetryAfter(t *testing.T) {
	e := newLimitedEcho(&config.RateLimitConfig{RPS: 0.1, Burst: 1, ExpireMinutes: 1})

	doFrom(e, "/api/items", "192.168.1.3")
	rec := doFrom(e, "/api/items", "192.168.1.3")

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	var resp struct {
		Error      string `json:"error"`
		RetryAfter int    `json:"retry_after"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "rate limit exceeded", resp.Error)
	assert.Equal(t, 1, resp.RetryAfter)
}

func TestRateLimit_DifferentIPsHaveSeparateLimits(t *testing.T) {
	e := newLimitedEcho(&config.RateLimitConfig{RPS: 0.1, Burst: 1, ExpireMinutes: 1})

	assert.Equal(t, http.StatusOK, doFrom(e, "/api/items", "192.168.1.4").Code)
	assert.Equal(t, http.StatusOK, doFrom(e, "/api/items", "192.168.1.5").Code)
}

func TestRateLimit_ExemptPathsNeverLimited(t *testing.T) {
	e := newLimitedEcho(&config.RateLimitConfig{RPS: 0.1, Burst: 1, ExpireMinutes: 1}, "/health")

	for i := range 10 {
		rec := doFrom(e, "/health", "192.168.1.9")
		assert.Equal(t, http.StatusOK, rec.Code, "request %d to an exempt path should not be limited", i)
	}

	doFrom(e, "/api/items", "192.168.1.9")
	assert.Equal(t, http.StatusTooManyRequests, doFrom(e, "/api/items", "192.168.1.9").Code)
}

func TestRateLimit_Bypass(t *testing.T) {
	tests := []struct {
		name     string
		secret   string
		provided string
		want     int
	}{
		{"correct secret", "test_secret", "test_secret", http.StatusOK},
		{"wrong secret", "test_secret", "wrong_secret", http.StatusTooManyRequests},
		{"bypass disabled when secret empty", "", "any_value", http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newLimitedEcho(&config.RateLimitConfig{
				RPS:           0.1,
				Burst:         1,
				ExpireMinutes: 1,
				BypassSecret:  tt.secret,
			})

			doFrom(e, "/api/items", "192.168.1.6", "X-Rate-Limit-Bypass", tt.provided)
			rec := doFrom(e, "/api/items", "192.168.1.6", "X-Rate-Limit-Bypass", tt.provided)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
