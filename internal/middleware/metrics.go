package middleware

import (
	"cmp"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"itemsapi/internal/metrics"
)

type HTTPRecorder interface {
	RecordHTTP(m metrics.HTTPMetric)
}

var knownMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// Metrics records one count and one latency observation per request, labeled
// with the route template rather than the raw path. A panic downstream is
// recorded as a 500 and then re-raised.
func Metrics(recorder HTTPRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			start := time.Now()

			panicked := true
			defer func() {
				statusCode := http.StatusInternalServerError
				if !panicked {
					statusCode = resultStatus(c, err)
				}

				recorder.RecordHTTP(metrics.HTTPMetric{
					Method:     methodLabel(c.Request().Method),
					Path:       cmp.Or(c.Path(), "/"),
					StatusCode: statusCode,
					Duration:   time.Since(start),
				})
			}()

			err = next(c)
			panicked = false
			return err
		}
	}
}

func resultStatus(c echo.Context, err error) int {
	if err == nil {
		return cmp.Or(c.Response().Status, http.StatusOK)
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	if c.Response().Committed {
		return c.Response().Status
	}
	return http.StatusInternalServerError
}

func methodLabel(method string) string {
	if knownMethods[method] {
		return method
	}
	return "OTHER"
}
