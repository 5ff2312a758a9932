package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"collectdash/internal/cache"
	"collectdash/internal/collections"
	apperrors "collectdash/internal/errors"
	"collectdash/internal/infrastructure"
	"collectdash/pkg/contracts/domain"
)

// Refresh triggers, used as metric attributes.
const (
	TriggerRequest  = "request"
	TriggerManual   = "manual"
	TriggerSchedule = "schedule"
)

// DashboardOptions configures a DashboardService.
type DashboardOptions struct {
	// TTL is the cache epoch length.
	TTL time.Duration
	// FetchTimeout bounds one full aggregation pass. Zero means no bound.
	FetchTimeout time.Duration
	Metrics      *infrastructure.BusinessMetrics
	Tracer       trace.Tracer
	Logger       *slog.Logger
}

// DashboardService produces dashboard snapshots. Snapshots are memoized per
// cache epoch, and concurrent computations of the same epoch are collapsed
// into one pass over the source.
type DashboardService struct {
	source       collections.BatchSource
	aggregator   *collections.Aggregator
	cache        cache.SnapshotCache
	ttl          time.Duration
	fetchTimeout time.Duration
	group        singleflight.Group
	now          func() time.Time
	metrics      *infrastructure.BusinessMetrics
	tracer       trace.Tracer
	logger       *slog.Logger

	mu          sync.RWMutex
	lastRefresh time.Time
	lastErr     error
}

// NewDashboardService creates a dashboard service.
func NewDashboardService(source collections.BatchSource, aggregator *collections.Aggregator, snapshots cache.SnapshotCache, opts DashboardOptions) *DashboardService {
	if opts.TTL <= 0 {
		opts.TTL = time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = infrastructure.NoopBusinessMetrics()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(infrastructure.ServiceName)
	}
	if snapshots == nil {
		snapshots = cache.NewMemoryCache(4, 0)
	}

	return &DashboardService{
		source:       source,
		aggregator:   aggregator,
		cache:        snapshots,
		ttl:          opts.TTL,
		fetchTimeout: opts.FetchTimeout,
		now:          time.Now,
		metrics:      opts.Metrics,
		tracer:       opts.Tracer,
		logger:       opts.Logger.With(slog.String("component", "dashboard_service")),
	}
}

// Snapshot returns the snapshot of the current cache epoch, computing it when
// the cache holds none. The result is owned by the caller. When ctx ends
// first, Snapshot returns ctx.Err() without waiting for the pass.
func (s *DashboardService) Snapshot(ctx context.Context) (*domain.DashboardSnapshot, error) {
	epoch := cache.Epoch(s.now(), s.ttl)

	if snap, ok := s.cached(ctx, epoch); ok {
		return snap, nil
	}

	pass := context.WithoutCancel(ctx)
	ch := s.group.DoChan(strconv.FormatInt(epoch, 10), func() (any, error) {
		// Another caller may have filled the epoch while we waited.
		if snap, ok := s.cached(pass, epoch); ok {
			return snap, nil
		}
		return s.compute(pass, epoch, TriggerRequest)
	})
	res, err := await(ctx, ch)
	if err != nil {
		return nil, err
	}
	if res.Shared {
		s.logger.DebugContext(ctx, "snapshot computation shared", slog.Int64("epoch", epoch))
	}
	return res.Val.(*domain.DashboardSnapshot).Clone(), nil
}

// Refresh drops every cached snapshot and recomputes the current epoch.
// Concurrent refreshes share one pass.
func (s *DashboardService) Refresh(ctx context.Context, trigger string) (*domain.DashboardSnapshot, error) {
	if trigger == "" {
		trigger = TriggerManual
	}

	pass := context.WithoutCancel(ctx)
	ch := s.group.DoChan("refresh", func() (any, error) {
		if err := s.cache.Invalidate(pass); err != nil {
			s.logger.WarnContext(pass, "cache invalidation failed",
				slog.String("backend", s.cache.Backend()),
				slog.String("error", err.Error()))
		}
		return s.compute(pass, cache.Epoch(s.now(), s.ttl), trigger)
	})
	res, err := await(ctx, ch)
	if err != nil {
		return nil, err
	}
	return res.Val.(*domain.DashboardSnapshot).Clone(), nil
}

// await waits for a shared pass or for ctx to end. An abandoned pass keeps
// running for the other callers and still fills the cache.
func await(ctx context.Context, ch <-chan singleflight.Result) (singleflight.Result, error) {
	select {
	case res := <-ch:
		return res, res.Err
	case <-ctx.Done():
		return singleflight.Result{}, ctx.Err()
	}
}

// Status reports when the last pass finished and its error, if any.
func (s *DashboardService) Status() (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRefresh, s.lastErr
}

// CacheBackend names the snapshot cache in use.
func (s *DashboardService) CacheBackend() string {
	return s.cache.Backend()
}

// Agents returns the sorted agent names offered at login.
func (s *DashboardService) Agents(ctx context.Context) ([]string, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Agents, nil
}

// IsAgent reports whether name is a known, non-excluded agent batch.
func (s *DashboardService) IsAgent(ctx context.Context, name string) (bool, error) {
	agents, err := s.Agents(ctx)
	if err != nil {
		return false, err
	}
	i := sort.SearchStrings(agents, name)
	return i < len(agents) && agents[i] == name, nil
}

func (s *DashboardService) cached(ctx context.Context, epoch int64) (*domain.DashboardSnapshot, bool) {
	snap, ok, err := s.cache.Get(ctx, epoch)
	if err != nil {
		s.logger.WarnContext(ctx, "snapshot cache read failed",
			slog.String("backend", s.cache.Backend()),
			slog.String("error", err.Error()))
		ok = false
	}
	infrastructure.RecordCacheLookup(ctx, s.metrics, s.cache.Backend(), ok)
	return snap, ok
}

// compute runs one full pass and caches the result for epoch. ctx must be
// detached from any single caller since the pass may be shared; only
// FetchTimeout bounds it.
func (s *DashboardService) compute(ctx context.Context, epoch int64, trigger string) (*domain.DashboardSnapshot, error) {
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}

	ctx, span := s.tracer.Start(ctx, "dashboard.refresh",
		trace.WithAttributes(
			attribute.String("trigger", trigger),
			attribute.Int64("epoch", epoch),
		))
	defer span.End()

	start := time.Now()
	coll, err := s.aggregator.Aggregate(ctx, s.source)

	var batches, warnings, records int
	if coll != nil {
		batches, warnings, records = len(coll.Batches), len(coll.Warnings), len(coll.Records)
	}
	span.SetAttributes(
		attribute.Int("batches", batches),
		attribute.Int("warnings", warnings),
		attribute.Int("records", records),
	)
	infrastructure.RecordRefreshMetrics(ctx, s.metrics, trigger, batches, warnings, records, time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.setStatus(err)

		if errors.Is(err, collections.ErrEmptyData) {
			s.logger.WarnContext(ctx, "no collections data",
				slog.Int("warnings", warnings))
			return nil, apperrors.NewDataError("No data available", err).
				WithContext("warnings", warnings)
		}
		s.logger.ErrorContext(ctx, "refresh failed", slog.String("error", err.Error()))
		return nil, apperrors.NewNetworkError("collections source unavailable", fmt.Errorf("refresh: %w", err))
	}

	agents := append([]string(nil), coll.Listed...)
	sort.Strings(agents)

	snap := &domain.DashboardSnapshot{
		Epoch:      epoch,
		ComputedAt: s.now().UTC(),
		Report:     collections.Compute(coll.Records),
		Warnings:   coll.Warnings,
		Agents:     agents,
	}

	if err := s.cache.Set(ctx, snap, cache.EpochEnd(epoch, s.ttl)); err != nil {
		s.logger.WarnContext(ctx, "snapshot cache write failed",
			slog.String("backend", s.cache.Backend()),
			slog.String("error", err.Error()))
	}
	s.setStatus(nil)

	s.logger.InfoContext(ctx, "dashboard refreshed",
		slog.String("trigger", trigger),
		slog.Int64("epoch", epoch),
		slog.Int("batches", batches),
		slog.Int("warnings", warnings),
		slog.Int("records", records),
		slog.Float64("total_collected", snap.Report.TotalCollected),
		slog.Duration("duration", time.Since(start)))
	return snap, nil
}

func (s *DashboardService) setStatus(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRefresh = s.now()
	s.lastErr = err
}
