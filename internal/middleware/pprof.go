package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"

	"github.com/labstack/echo/v4"

	"itemsapi/internal/config"
)

const (
	PprofPrefix     = "/debug/pprof"
	pprofAuthHeader = "X-Pprof-Secret"
)

var errPprofUnauthorized = map[string]string{"error": "unauthorized"}

// ErrPprofSecretRequired is returned when profiling is enabled without a secret
// outside the development environment.
var ErrPprofSecretRequired = errors.New("pprof secret is required outside development")

var pprofProfiles = []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"}

// PprofAuth requires the configured secret in the X-Pprof-Secret header.
// An empty secret leaves the group open.
func PprofAuth(secret string) echo.MiddlewareFunc {
	secretBytes := []byte(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(secretBytes) == 0 {
				return next(c)
			}
			provided := c.Request().Header.Get(pprofAuthHeader)
			if subtle.ConstantTimeCompare([]byte(provided), secretBytes) != 1 {
				return c.JSON(http.StatusUnauthorized, errPprofUnauthorized)
			}
			return next(c)
		}
	}
}

// MountPprof registers the runtime profiling endpoints under PprofPrefix when
// enabled and reports whether anything was mounted. An open group is only
// allowed in development.
func MountPprof(e *echo.Echo, cfg *config.PprofConfig, environment string) (bool, error) {
	if !cfg.Enabled {
		return false, nil
	}
	if cfg.Secret == "" && environment != "development" {
		return false, ErrPprofSecretRequired
	}

	g := e.Group(PprofPrefix, PprofAuth(cfg.Secret))
	wrap := func(f http.HandlerFunc) echo.HandlerFunc { return echo.WrapHandler(f) }
	g.GET("/", wrap(pprof.Index))
	g.GET("/cmdline", wrap(pprof.Cmdline))
	g.GET("/profile", wrap(pprof.Profile))
	g.Match([]string{http.MethodGet, http.MethodPost}, "/symbol", wrap(pprof.Symbol))
	g.GET("/trace", wrap(pprof.Trace))
	for _, profile := range pprofProfiles {
		g.GET("/"+profile, echo.WrapHandler(pprof.Handler(profile)))
	}
	return true, nil
}
