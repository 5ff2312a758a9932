package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOTelInitialization(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.TraceExporter = "none"

	providers, err := InitializeOTel(cfg, quietLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)

	assert.Nil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestOTelConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*OTelConfig)
		wantErr bool
	}{
		{name: "everything disabled", mutate: func(c *OTelConfig) { c.EnableMetrics = false; c.EnableTracing = false }},
		{name: "stdout tracing", mutate: func(c *OTelConfig) { c.EnableMetrics = false }},
		{name: "unsupported trace exporter", mutate: func(c *OTelConfig) { c.TraceExporter = "jaeger" }, wantErr: true},
		{name: "unsupported metric exporter", mutate: func(c *OTelConfig) { c.EnableTracing = false; c.MetricExporter = "statsd" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultOTelConfig()
			tt.mutate(cfg)

			providers, err := InitializeOTel(cfg, quietLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, providers.Tracer)
			assert.NotNil(t, providers.Meter)
			assert.NoError(t, providers.Shutdown(context.Background()))
		})
	}
}

func TestTraceCorrelation(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.EnableMetrics = false
	providers, err := InitializeOTel(cfg, quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	ctx, span := providers.Tracer.Start(context.Background(), "refresh")
	defer span.End()

	traceID := TraceIDFromContext(ctx)
	assert.Len(t, traceID, 32)
	assert.Equal(t, traceID, GetTraceID(ctx))

	RecordError(ctx, errors.New("boom"))
	assert.Empty(t, TraceIDFromContext(context.Background()))
}

func TestBusinessMetricsExposed(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.EnableTracing = false
	providers, err := InitializeOTel(cfg, quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	RecordRefreshMetrics(ctx, metrics, "manual", 3, 1, 42, 250*time.Millisecond, nil)
	RecordCacheLookup(ctx, metrics, "memory", true)
	RecordCacheLookup(ctx, metrics, "memory", false)
	RecordLogin(ctx, metrics, "admin", false)
	RecordChatMessage(ctx, metrics, "agent")
	RecordWebSocketClient(ctx, metrics, 1)
	RecordBroadcast(ctx, metrics, "dashboard:refreshed", 1)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "dashboard_refresh_total")
	assert.Contains(t, body, "dashboard_records_total")
	assert.Contains(t, body, "dashboard_cache_hits_total")
	assert.Contains(t, body, "auth_login_failures_total")
	assert.Contains(t, body, "chat_messages_total")
	assert.Contains(t, body, "websocket_broadcasts_total")
	assert.Contains(t, body, "websocket_dropped_clients_total")
}

func TestNilMetricsAreIgnored(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordRefreshMetrics(context.Background(), nil, "cron", 0, 0, 0, 0, errors.New("x"))
		RecordCacheLookup(context.Background(), nil, "redis", false)
		RecordLogin(context.Background(), nil, "agent", true)
		RecordChatMessage(context.Background(), nil, "agent")
		RecordWebSocketClient(context.Background(), nil, -1)
		RecordBroadcast(context.Background(), nil, "x", 2)
	})
	assert.NotNil(t, NoopBusinessMetrics())
}
