package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mrops-br/product-catalog-api/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var testOTLP = &config.OTLPConfig{ServiceName: "catalog-test", Environment: "test"}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLoggerInjectsTraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, testOTLP, slog.LevelInfo)

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()
	ctx = WithHTTPRoute(ctx, "/products/{id}")

	logger.InfoContext(ctx, "hello", slog.String("product_id", "p-1"))

	entry := decodeLine(t, &buf)
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "catalog-test", entry["service.name"])
	assert.Equal(t, "test", entry["environment"])
	assert.Equal(t, "p-1", entry["product_id"])
	assert.Equal(t, span.SpanContext().TraceID().String(), entry["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), entry["span_id"])
	assert.Equal(t, "/products/{id}", entry["http.route"])
}

func TestLoggerWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, testOTLP, slog.LevelInfo)

	logger.InfoContext(context.Background(), "plain")

	entry := decodeLine(t, &buf)
	assert.NotContains(t, entry, "trace_id")
	assert.NotContains(t, entry, "http.route")
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, testOTLP, ParseLevel("warn"))

	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")
	assert.NotZero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

func TestHTTPRouteFromContext(t *testing.T) {
	assert.Empty(t, HTTPRouteFromContext(context.Background()))
	assert.Equal(t, "/health", HTTPRouteFromContext(WithHTTPRoute(context.Background(), "/health")))
}

func TestNoOpTelemetryServesMetrics(t *testing.T) {
	telem, err := NewNoOpTelemetry(testOTLP, &config.LogConfig{Level: "error"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = telem.Shutdown(context.Background()) })

	counter, err := telem.MeterProvider.Meter("test").Int64Counter("products.operations")
	require.NoError(t, err)
	counter.Add(context.Background(), 2)

	rec := httptest.NewRecorder()
	telem.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "products_operations")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
