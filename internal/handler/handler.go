package handler

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"itemsapi/internal/config"
	"itemsapi/internal/domain"
	"itemsapi/internal/service"
	"itemsapi/internal/session"
	"itemsapi/internal/validation"
)

const healthyStatus = "healthy"

var (
	errInvalidBody         = map[string]string{"error": "invalid request body"}
	errInvalidID           = map[string]string{"error": "invalid item id"}
	errNameRequired        = map[string]string{"error": "name is required"}
	errNameTooLong         = map[string]string{"error": "name exceeds maximum length"}
	errDescriptionTooLong  = map[string]string{"error": "description exceeds maximum length"}
	errItemNotFound        = map[string]string{"error": "item not found"}
	errListFailed          = map[string]string{"error": "failed to list items"}
	errCreateFailed        = map[string]string{"error": "failed to create item"}
	errGetFailed           = map[string]string{"error": "failed to get item"}
	errDatabaseUnavailable = map[string]string{"error": "database unavailable"}
	errMetricsFailed       = map[string]string{"error": "failed to render metrics"}
)

type Handler struct {
	items     ItemService
	validator ItemValidator
	pool      PoolStatser
	exposer   Exposer
	app       config.AppConfig
	database  config.DatabaseConfig
	logger    *slog.Logger
	now       func() time.Time
}

func New(
	items ItemService,
	validator ItemValidator,
	pool PoolStatser,
	exposer Exposer,
	cfg *config.Config,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		items:     items,
		validator: validator,
		pool:      pool,
		exposer:   exposer,
		app:       cfg.App,
		database:  cfg.Database,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (h *Handler) Register(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.GET("/metrics", h.Metrics)

	api := e.Group("/api")
	api.GET("/info", h.Info)
	api.GET("/items", h.ListItems)
	api.POST("/items", h.CreateItem)
	api.GET("/items/:id", h.GetItem)
}

// Health never touches the database.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, domain.HealthResponse{
		Status:      healthyStatus,
		App:         h.app.Name,
		Version:     h.app.Version,
		Environment: h.app.Environment,
		Timestamp:   h.now(),
	})
}

func (h *Handler) Info(c echo.Context) error {
	hostname, err := os.Hostname()
	if err != nil {
		h.logger.Warn("failed to resolve hostname", slog.String("error", err.Error()))
		hostname = "unknown"
	}

	stats := h.pool.Stats()
	return c.JSON(http.StatusOK, domain.InfoResponse{
		AppName:     h.app.Name,
		Version:     h.app.Version,
		Environment: h.app.Environment,
		Hostname:    hostname,
		Database: domain.DatabaseInfo{
			Host:     h.database.Host,
			Port:     h.database.Port,
			Database: h.database.Name,
		},
		Pool: domain.PoolInfo{
			Acquired: stats.Acquired,
			Idle:     stats.Idle,
			Total:    stats.Total,
			Max:      stats.Max,
		},
		Timestamp: h.now(),
	})
}

func (h *Handler) ListItems(c echo.Context) error {
	items, err := h.items.ListItems(c.Request().Context())
	if err != nil {
		return h.storeFailure(c, err, errListFailed)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) CreateItem(c echo.Context) error {
	var req domain.CreateItemRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Error("failed to bind request", slog.String("error", err.Error()))
		return c.JSON(http.StatusBadRequest, errInvalidBody)
	}

	if err := h.validator.ValidateCreate(&req); err != nil {
		return h.handleValidationError(c, err)
	}

	item, err := h.items.CreateItem(c.Request().Context(), &req)
	if err != nil {
		return h.storeFailure(c, err, errCreateFailed)
	}

	return c.JSON(http.StatusCreated, item)
}

func (h *Handler) GetItem(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return c.JSON(http.StatusBadRequest, errInvalidID)
	}

	item, err := h.items.GetItem(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrItemNotFound) {
			return c.JSON(http.StatusNotFound, errItemNotFound)
		}
		return h.storeFailure(c, err, errGetFailed)
	}

	return c.JSON(http.StatusOK, item)
}

// Metrics renders into a buffer first so a failed scrape never sends a
// partial body.
func (h *Handler) Metrics(c echo.Context) error {
	var buf bytes.Buffer
	if err := h.exposer.Expose(&buf); err != nil {
		h.logger.Error("failed to render metrics", slog.String("error", err.Error()))
		return c.JSON(http.StatusInternalServerError, errMetricsFailed)
	}
	return c.Blob(http.StatusOK, h.exposer.ContentType(), buf.Bytes())
}

func (h *Handler) storeFailure(c echo.Context, err error, body map[string]string) error {
	if errors.Is(err, session.ErrPoolExhausted) || errors.Is(err, session.ErrConnectionBroken) {
		h.logger.Warn("database unavailable",
			slog.String("endpoint", c.Path()),
			slog.String("error", err.Error()))
		return c.JSON(http.StatusServiceUnavailable, errDatabaseUnavailable)
	}

	h.logger.Error(body["error"], slog.String("error", err.Error()))
	return c.JSON(http.StatusInternalServerError, body)
}

func (h *Handler) handleValidationError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, validation.ErrEmptyName):
		return c.JSON(http.StatusUnprocessableEntity, errNameRequired)
	case errors.Is(err, validation.ErrNameTooLong):
		return c.JSON(http.StatusUnprocessableEntity, errNameTooLong)
	case errors.Is(err, validation.ErrDescriptionTooLong):
		return c.JSON(http.StatusUnprocessableEntity, errDescriptionTooLong)
	default:
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": "validation failed"})
	}
}
