package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"itemsapi/internal/config"
)

const (
	bypassHeader = "X-Rate-Limit-Bypass"
	retryAfter   = 1
)

type throttledResponse struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retry_after"`
}

var errLimiterInternal = map[string]string{"error": "internal server error"}

// RateLimit throttles clients by real IP. Requests to exempt route templates,
// such as health probes and the scrape endpoint, are never limited.
func RateLimit(cfg *config.RateLimitConfig, logger *slog.Logger, exempt ...string) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(cfg.RPS),
			Burst:     cfg.Burst,
			ExpiresIn: time.Duration(cfg.ExpireMinutes) * time.Minute,
		},
	)

	secret := []byte(cfg.BypassSecret)
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		Skipper: func(c echo.Context) bool {
			if slices.Contains(exempt, c.Path()) {
				return true
			}
			if len(secret) == 0 {
				return false
			}
			provided := c.Request().Header.Get(bypassHeader)
			return subtle.ConstantTimeCompare([]byte(provided), secret) == 1
		},
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			logger.Warn("rate limit exceeded",
				slog.String("ip", identifier),
				slog.String("endpoint", c.Path()),
			)
			c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
			return c.JSON(http.StatusTooManyRequests, throttledResponse{
				Error:      "rate limit exceeded",
				RetryAfter: retryAfter,
			})
		},
		ErrorHandler: func(c echo.Context, err error) error {
			logger.Error("rate limiter error", slog.String("error", err.Error()))
			return c.JSON(http.StatusInternalServerError, errLimiterInternal)
		},
	})
}
