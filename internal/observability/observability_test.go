package observability

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/personahub/chat-backend/internal/config"
	"github.com/personahub/chat-backend/internal/result"
)

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "chatty", Service: "chat-backend"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = NewLogger(config.LoggerConfig{Level: "DEBUG"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestDispatchObserverRecordsAndLogs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	metrics := NewMetrics()
	obs := NewDispatchObserver(metrics, zap.New(core))

	obs.Observe(context.Background(), "create_ticket", result.StatusOK, 3*time.Millisecond, nil)
	obs.Observe(context.Background(), "create_ticket", result.StatusConflict, time.Millisecond, nil)
	obs.Observe(context.Background(), "create_ticket", result.StatusInternal, time.Millisecond, errors.New("db down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.dispatchRequests.WithLabelValues("create_ticket", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.dispatchRequests.WithLabelValues("create_ticket", "conflict")))
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	assert.Equal(t, 2, logs.FilterLevelExact(zapcore.DebugLevel).Len())
}

func TestRequestLoggerUsesRoutePattern(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	metrics := NewMetrics()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(RequestLogger(zap.New(core), metrics))
	app.Get("/tickets/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNotFound) })

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/tickets/abc", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.httpRequests.WithLabelValues("GET", "/tickets/:id", "404")))
	require.Equal(t, 1, logs.FilterMessage("http request").Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "NOT_FOUND")
	NewDispatchObserver(nil, nil).Observe(context.Background(), "x", result.StatusOK, 0, nil)
}

func TestNewLoggerDevelopmentHonorsLevel(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: " warn ", Development: true})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
}
