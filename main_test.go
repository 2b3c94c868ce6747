package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"itemsapi/internal/config"
	"itemsapi/internal/domain"
	"itemsapi/internal/handler"
	"itemsapi/internal/handler/mocks"
	"itemsapi/internal/metrics"
	"itemsapi/internal/session"
	"itemsapi/internal/validation"
)

type testServer struct {
	e    *echo.Echo
	svc  *mocks.MockItemService
	pool *mocks.MockPoolStatser
}

func newTestServer(t *testing.T, opts ...func(*config.Config)) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg, err := config.LoadFiles()
	require.NoError(t, err)
	for _, opt := range opts {
		opt(cfg)
	}

	registry := metrics.NewRegistry()
	httpMetrics, err := metrics.NewHTTPMetrics(registry, logger)
	require.NoError(t, err)

	svc := mocks.NewMockItemService(t)
	pool := mocks.NewMockPoolStatser(t)
	h := handler.New(svc, validation.NewItemValidator(100, 500), pool,
		metrics.NewExposition(registry, nil), cfg, logger)

	return &testServer{e: newRouter(cfg, logger, h, httpMetrics), svc: svc, pool: pool}
}

func (s *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) scrape(t *testing.T) string {
	t.Helper()
	rec := s.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func sampleValue(t *testing.T, body, series string) float64 {
	t.Helper()
	re := regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(series) + ` (\S+)$`)
	m := re.FindStringSubmatch(body)
	require.NotNil(t, m, "series %s missing from:\n%s", series, body)
	v, err := strconv.ParseFloat(m[1], 64)
	require.NoError(t, err)
	return v
}

func TestEndToEnd_ListCreateThenScrape(t *testing.T) {
	s := newTestServer(t)
	s.svc.EXPECT().ListItems(mock.Anything).Return([]domain.Item{}, nil).Once()
	s.svc.EXPECT().CreateItem(mock.Anything, &domain.CreateItemRequest{Name: "widget"}).
		Return(&domain.Item{ID: 1, Name: "widget"}, nil).Once()

	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/items", "").Code)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/items", `{"name":"widget"}`).Code)

	body := s.scrape(t)

	assert.Equal(t, float64(1), sampleValue(t, body, `http_requests_total{method="GET",endpoint="/api/items",status="200"}`))
	assert.Equal(t, float64(1), sampleValue(t, body, `http_requests_total{method="POST",endpoint="/api/items",status="201"}`))

	for _, method := range []string{"GET", "POST"} {
		labels := fmt.Sprintf(`{method=%q,endpoint="/api/items"}`, method)
		assert.GreaterOrEqual(t, sampleValue(t, body, "http_request_duration_seconds_count"+labels), float64(1))
		assert.Greater(t, sampleValue(t, body, "http_request_duration_seconds_sum"+labels), float64(0))
		assert.Equal(t, float64(1), sampleValue(t, body,
			fmt.Sprintf(`http_request_duration_seconds_bucket{method=%q,endpoint="/api/items",le="+Inf"}`, method)))
	}
}

func TestEndToEnd_ScrapeIsCounted(t *testing.T) {
	s := newTestServer(t)

	s.scrape(t)
	body := s.scrape(t)

	assert.Equal(t, float64(1), sampleValue(t, body, `http_requests_total{method="GET",endpoint="/metrics",status="200"}`))
}

func TestEndToEnd_PathParametersShareSeries(t *testing.T) {
	s := newTestServer(t)
	for _, id := range []int64{1, 2, 3} {
		s.svc.EXPECT().GetItem(mock.Anything, id).Return(&domain.Item{ID: id, Name: "x"}, nil).Once()
		require.Equal(t, http.StatusOK, s.do(http.MethodGet, fmt.Sprintf("/api/items/%d", id), "").Code)
	}

	body := s.scrape(t)
	assert.Equal(t, float64(3), sampleValue(t, body, `http_requests_total{method="GET",endpoint="/api/items/:id",status="200"}`))
	assert.NotContains(t, body, `endpoint="/api/items/1"`)
}

func TestEndToEnd_PoolExhaustionRecordedAs503(t *testing.T) {
	s := newTestServer(t)
	s.svc.EXPECT().ListItems(mock.Anything).Return(nil, session.ErrPoolExhausted).Once()

	rec := s.do(http.MethodGet, "/api/items", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	body := s.scrape(t)
	assert.Equal(t, float64(1), sampleValue(t, body, `http_requests_total{method="GET",endpoint="/api/items",status="503"}`))
}

func TestEndToEnd_ValidationFailureRecorded(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/items", `{"name":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := s.scrape(t)
	assert.Equal(t, float64(1), sampleValue(t, body, `http_requests_total{method="POST",endpoint="/api/items",status="422"}`))
}

func TestEndToEnd_PanicRecordedAs500(t *testing.T) {
	s := newTestServer(t)
	s.e.GET("/boom", func(c echo.Context) error {
		panic("handler bug")
	})

	rec := s.do(http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	body := s.scrape(t)
	assert.Equal(t, float64(1), sampleValue(t, body, `http_requests_total{method="GET",endpoint="/boom",status="500"}`))
	assert.Equal(t, float64(1), sampleValue(t, body, `http_request_duration_seconds_count{method="GET",endpoint="/boom"}`))
}

func TestEndToEnd_HealthAndInfo(t *testing.T) {
	s := newTestServer(t)
	s.pool.EXPECT().Stats().Return(session.Stats{Idle: 1, Total: 1, Max: 15}).Once()

	health := s.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, health.Code)
	assert.Contains(t, health.Body.String(), `"status":"healthy"`)
	assert.NotEmpty(t, health.Header().Get(echo.HeaderXRequestID))

	info := s.do(http.MethodGet, "/api/info", "")
	assert.Equal(t, http.StatusOK, info.Code)
	assert.Contains(t, info.Body.String(), `"max":15`)
}

func TestEndToEnd_OversizedBodyRecordedAs413(t *testing.T) {
	s := newTestServer(t)

	body := `{"name":"` + strings.Repeat("a", 128<<10) + `"}`
	rec := s.do(http.MethodPost, "/api/items", body)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	scrape := s.scrape(t)
	assert.Equal(t, float64(1), sampleValue(t, scrape, `http_requests_total{method="POST",endpoint="/api/items",status="413"}`))
	assert.Equal(t, float64(1), sampleValue(t, scrape, `http_request_duration_seconds_count{method="POST",endpoint="/api/items"}`))
}

func TestEndToEnd_PreflightIsCounted(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/items", nil)
	req.Header.Set(echo.HeaderOrigin, "https://ui.local")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	scrape := s.scrape(t)
	assert.Equal(t, float64(1), sampleValue(t, scrape, `http_requests_total{method="OPTIONS",endpoint="/api/items",status="204"}`))
	assert.Equal(t, float64(1), sampleValue(t, scrape, `http_request_duration_seconds_count{method="OPTIONS",endpoint="/api/items"}`))
}

func TestEndToEnd_RateLimitedRequestRecordedAs429(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.RateLimit.Enabled = true
		cfg.RateLimit.RPS = 1
		cfg.RateLimit.Burst = 1
	})
	s.svc.EXPECT().ListItems(mock.Anything).Return([]domain.Item{}, nil).Once()

	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/items", "").Code)
	require.Equal(t, http.StatusTooManyRequests, s.do(http.MethodGet, "/api/items", "").Code)

	scrape := s.scrape(t)
	assert.Equal(t, float64(1), sampleValue(t, scrape, `http_requests_total{method="GET",endpoint="/api/items",status="200"}`))
	assert.Equal(t, float64(1), sampleValue(t, scrape, `http_requests_total{method="GET",endpoint="/api/items",status="429"}`))
	assert.Equal(t, float64(2), sampleValue(t, scrape, `http_request_duration_seconds_count{method="GET",endpoint="/api/items"}`))
}
