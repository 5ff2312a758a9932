package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"
)

// RefreshStatus reports the outcome of the last dashboard pass.
type RefreshStatus interface {
	Status() (time.Time, error)
	CacheBackend() string
}

// ClientCounter reports connected WebSocket clients.
type ClientCounter interface {
	ClientCount() int
}

// Pinger checks a remote dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsReporter exposes internal counters for the detailed health view.
type StatsReporter interface {
	Stats() map[string]any
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	gitCommit string
	dashboard RefreshStatus
	cache     Pinger
	hub       ClientCounter
	stats     map[string]StatsReporter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Version   string         `json:"version"`
	Runtime   map[string]any `json:"runtime,omitempty"`
	Services  map[string]any `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// HealthDeps are the components whose state the health service reports.
// Cache and Hub may be nil.
type HealthDeps struct {
	Dashboard RefreshStatus
	Cache     Pinger
	Hub       ClientCounter
	// Stats are reported by name under "components" in the detailed view.
	Stats map[string]StatsReporter
}

// NewHealthService creates a new health service
func NewHealthService(version, buildTime, gitCommit string, deps HealthDeps, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "health_service"))

	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("build_time", buildTime),
		slog.String("git_commit", gitCommit))

	return &HealthService{
		version:   version,
		buildTime: buildTime,
		gitCommit: gitCommit,
		dashboard: deps.Dashboard,
		cache:     deps.Cache,
		hub:       deps.Hub,
		stats:     deps.Stats,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "performing health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck returns readiness status
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]any{
			"dashboard": hs.checkDashboardHealth(),
			"cache":     hs.checkCacheHealth(ctx),
			"websocket": hs.checkWebSocketHealth(),
		},
	}

	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]any{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]any {
	result := map[string]any{
		"version":      hs.version,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	if hs.gitCommit != "" {
		result["git_commit"] = hs.gitCommit
	}
	return result
}

// checkDashboardHealth reports the last refresh pass. A dashboard that has
// not refreshed yet is not ready.
func (hs *HealthService) checkDashboardHealth() ServiceHealth {
	if hs.dashboard == nil {
		return ServiceHealth{Status: "not_ready", Message: "dashboard service not initialized"}
	}

	last, err := hs.dashboard.Status()
	switch {
	case last.IsZero():
		return ServiceHealth{Status: "not_ready", Message: "no refresh completed yet"}
	case err != nil:
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("last refresh failed: %v", err),
			Uptime:  time.Since(last).Round(time.Second).String(),
		}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("last refresh %s ago, cache %s", time.Since(last).Round(time.Second), hs.dashboard.CacheBackend()),
	}
}

func (hs *HealthService) checkCacheHealth(ctx context.Context) ServiceHealth {
	if hs.cache == nil {
		return ServiceHealth{Status: "ready", Message: "in-process cache"}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := hs.cache.Ping(ctx); err != nil {
		hs.logger.WarnContext(ctx, "cache ping failed", slog.String("error", err.Error()))
		return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("cache unreachable: %v", err)}
	}
	return ServiceHealth{Status: "ready", Message: "cache reachable"}
}

func (hs *HealthService) checkWebSocketHealth() ServiceHealth {
	clients := 0
	if hs.hub != nil {
		clients = hs.hub.ClientCount()
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d clients connected", clients),
		Uptime:  time.Since(hs.startTime).String(),
	}
}

// GetDetailedHealth returns comprehensive health information
func (hs *HealthService) GetDetailedHealth(ctx context.Context) map[string]any {
	detailed := map[string]any{
		"health":    hs.HealthCheck(ctx),
		"readiness": hs.ReadinessCheck(ctx),
		"liveness":  hs.LivenessCheck(ctx),
		"version":   hs.Version(),
	}
	if len(hs.stats) > 0 {
		components := make(map[string]any, len(hs.stats))
		for name, r := range hs.stats {
			components[name] = r.Stats()
		}
		detailed["components"] = components
	}
	return detailed
}
