package services

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"collectdash/internal/shared/testutil"
)

type mockRefreshStatus struct {
	mock.Mock
}

func (m *mockRefreshStatus) Status() (time.Time, error) {
	args := m.Called()
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *mockRefreshStatus) CacheBackend() string {
	return m.Called().String(0)
}

type mockPinger struct {
	mock.Mock
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type fixedClients int

func (c fixedClients) ClientCount() int { return int(c) }

func TestHealthService_ReadinessCheck(t *testing.T) {
	recent := time.Now().Add(-10 * time.Second)

	tests := []struct {
		name        string
		lastRefresh time.Time
		lastErr     error
		pingErr     error
		withCache   bool
		wantStatus  string
		wantFailing string
	}{
		{name: "ready", lastRefresh: recent, wantStatus: "ready"},
		{name: "ready with redis", lastRefresh: recent, withCache: true, wantStatus: "ready"},
		{name: "no refresh yet", wantStatus: "not_ready", wantFailing: "dashboard"},
		{name: "last refresh failed", lastRefresh: recent, lastErr: errors.New("quota"), wantStatus: "not_ready", wantFailing: "dashboard"},
		{name: "cache down", lastRefresh: recent, withCache: true, pingErr: errors.New("connection refused"), wantStatus: "not_ready", wantFailing: "cache"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dash := new(mockRefreshStatus)
			dash.On("Status").Return(tt.lastRefresh, tt.lastErr)
			dash.On("CacheBackend").Return("memory").Maybe()

			deps := HealthDeps{Dashboard: dash, Hub: fixedClients(3)}
			if tt.withCache {
				p := new(mockPinger)
				p.On("Ping", mock.Anything).Return(tt.pingErr)
				deps.Cache = p
			}

			hs := NewHealthService("0.3.0", "", "", deps, testutil.Logger(t))
			status := hs.ReadinessCheck(context.Background())

			assert.Equal(t, tt.wantStatus, status.Status)
			assert.Equal(t, "0.3.0", status.Version)
			require.Contains(t, status.Services, "websocket")
			assert.Equal(t, "3 clients connected", status.Services["websocket"].(ServiceHealth).Message)
			if tt.wantFailing != "" {
				assert.Equal(t, "not_ready", status.Services[tt.wantFailing].(ServiceHealth).Status)
			}
		})
	}
}

func TestHealthService_LivenessAndVersion(t *testing.T) {
	hs := NewHealthService("0.3.0", "2026-01-01T00:00:00Z", "abc123", HealthDeps{}, testutil.Logger(t))
	ctx := context.Background()

	assert.Equal(t, "ok", hs.HealthCheck(ctx).Status)

	live := hs.LivenessCheck(ctx)
	assert.Equal(t, "alive", live.Status)
	assert.Equal(t, runtime.Version(), live.Runtime["go_version"])

	v := hs.Version()
	assert.Equal(t, "0.3.0", v["version"])
	assert.Equal(t, "abc123", v["git_commit"])
	assert.Equal(t, "2026-01-01T00:00:00Z", v["build_time"])

	detailed := hs.GetDetailedHealth(ctx)
	assert.Equal(t, "not_ready", detailed["readiness"].(HealthStatus).Status)
}

type fixedStats map[string]any

func (f fixedStats) Stats() map[string]any { return f }

func TestHealthService_DetailedComponents(t *testing.T) {
	hs := NewHealthService("0.3.0", "", "", HealthDeps{
		Stats: map[string]StatsReporter{"cache": fixedStats{"entries": 2}},
	}, testutil.Logger(t))

	detailed := hs.GetDetailedHealth(context.Background())
	components, ok := detailed["components"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"entries": 2}, components["cache"])

	bare := NewHealthService("0.3.0", "", "", HealthDeps{}, testutil.Logger(t)).GetDetailedHealth(context.Background())
	assert.NotContains(t, bare, "components")
}
