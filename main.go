package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/net/netutil"

	"itemsapi/internal/cache"
	"itemsapi/internal/config"
	"itemsapi/internal/handler"
	"itemsapi/internal/metrics"
	custommiddleware "itemsapi/internal/middleware"
	"itemsapi/internal/repository"
	"itemsapi/internal/service"
	"itemsapi/internal/session"
	"itemsapi/internal/validation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(ctx, logger); err != nil {
		logger.Error("application failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	registry := metrics.NewRegistry(metrics.WithMaxSeries(cfg.Metrics.MaxSeries))
	httpMetrics, err := metrics.NewHTTPMetrics(registry, logger)
	if err != nil {
		return fmt.Errorf("failed to register http metrics: %w", err)
	}

	connect, err := session.PgxConnector(cfg.Database.URL())
	if err != nil {
		return fmt.Errorf("failed to parse database config: %w", err)
	}
	provider := session.New(connect, logger)
	if err := provider.Configure(sessionConfig(&cfg.Database)); err != nil {
		return fmt.Errorf("failed to configure session provider: %w", err)
	}
	defer provider.Close()

	repo := repository.NewItemRepository(provider)
	if err := repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	itemCache, err := cache.New(cfg.Cache.MaxSizePow2)
	if err != nil {
		return fmt.Errorf("failed to create cache: %w", err)
	}
	defer itemCache.Close()

	itemValidator := validation.NewItemValidator(
		cfg.Validation.MaxNameLength,
		cfg.Validation.MaxDescriptionLength,
	)
	itemService := service.NewItemService(repo, itemCache)
	exposition := metrics.NewExposition(registry, metrics.NewRuntimeRegistry(provider, itemCache))
	h := handler.New(itemService, itemValidator, provider, exposition, cfg, logger)

	e := newRouter(cfg, logger, h, httpMetrics)

	httpAddr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	logger.Info("starting HTTP server",
		slog.String("addr", httpAddr),
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.Int("max_connections", cfg.Server.MaxConnections))

	httpListener, err := listen(httpAddr, cfg.Server.MaxConnections)
	if err != nil {
		return fmt.Errorf("failed to create HTTP listener: %w", err)
	}

	httpServer := newServer(e, &cfg.Server)
	go serve(httpServer, httpListener, logger, "http")

	var httpsServer *http.Server
	if cfg.TLS.Enabled {
		httpsAddr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.TLS.Port))
		logger.Info("starting HTTPS server", slog.String("addr", httpsAddr))

		cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		if err != nil {
			return fmt.Errorf("failed to load TLS certificate: %w", err)
		}

		httpsListener, err := listen(httpsAddr, cfg.Server.MaxConnections)
		if err != nil {
			return fmt.Errorf("failed to create HTTPS listener: %w", err)
		}

		tlsListener := tls.NewListener(httpsListener, &tls.Config{
			MinVersion:   tls.VersionTLS13,
			Certificates: []tls.Certificate{cert},
		})

		httpsServer = newServer(e, &cfg.Server)
		go serve(httpsServer, tlsListener, logger, "https")
	}

	<-ctx.Done()
	logger.Info("shutting down servers")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}

	if httpsServer != nil {
		if err := httpsServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("https server shutdown failed: %w", err)
		}
	}

	stats := provider.Stats()
	logger.Info("closing database sessions",
		slog.Int("acquired", int(stats.Acquired)),
		slog.Int("total", int(stats.Total)))
	return nil
}

func sessionConfig(db *config.DatabaseConfig) session.Config {
	return session.Config{
		BaseSize:           db.PoolBaseSize,
		MaxOverflow:        db.PoolMaxOverflow,
		ValidateOnCheckout: db.PoolPrePing,
		AcquireTimeout:     db.PoolAcquireTimeout,
		IdleTimeout:        db.PoolIdleTimeout,
		HealthCheckPeriod:  db.PoolHealthCheck,
	}
}

// newRouter assembles the middleware chain and routes. Recover sits outermost
// so the instrumentation sees a panic before it is turned into a response.
// Metrics comes next so requests rejected by CORS, body size or rate limiting
// are still observed.
func newRouter(cfg *config.Config, logger *slog.Logger, h *handler.Handler, recorder custommiddleware.HTTPRecorder) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(custommiddleware.Metrics(recorder))
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(requestLogger(logger))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.CORS.AllowOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowCredentials: cfg.CORS.AllowCredentials,
	}))
	e.Use(middleware.BodyLimit(cfg.Validation.MaxRequestBodySize))
	if cfg.RateLimit.Enabled {
		e.Use(custommiddleware.RateLimit(&cfg.RateLimit, logger, "/health", "/metrics"))
	}

	h.Register(e)

	mounted, err := custommiddleware.MountPprof(e, &cfg.Pprof, cfg.App.Environment)
	switch {
	case err != nil:
		logger.Warn("pprof endpoints not mounted", slog.String("error", err.Error()))
	case mounted:
		logger.Info("pprof endpoints enabled", slog.String("path", custommiddleware.PprofPrefix+"/*"))
	}

	return e
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("request_id", v.RequestID),
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				level = slog.LevelError
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			logger.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	})
}

func listen(addr string, maxConnections int) (net.Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if maxConnections > 0 {
		l = netutil.LimitListener(l, maxConnections)
	}
	return l, nil
}

func newServer(h http.Handler, cfg *config.ServerConfig) *http.Server {
	return &http.Server{
		Handler:        h,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: 1 << 14, // 16KB
	}
}

func serve(srv *http.Server, l net.Listener, logger *slog.Logger, name string) {
	if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error(name+" server error", slog.String("error", err.Error()))
	}
}
