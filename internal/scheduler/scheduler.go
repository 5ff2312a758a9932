package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"collectdash/internal/infrastructure"
	"collectdash/internal/services"
	"collectdash/internal/websocket"
	"collectdash/pkg/contracts/domain"
)

// DefaultInterval is used when Options.Interval is unset.
const DefaultInterval = time.Minute

// Refresher recomputes the dashboard.
type Refresher interface {
	Refresh(ctx context.Context, trigger string) (*domain.DashboardSnapshot, error)
}

// Broadcaster pushes an event to connected clients.
type Broadcaster interface {
	Broadcast(ctx context.Context, eventType string, data any) error
}

// Options configures a Scheduler.
type Options struct {
	Interval time.Duration
	// Timeout bounds one refresh run; zero means no bound beyond Stop.
	Timeout  time.Duration
	Location *time.Location
	Logger   *slog.Logger
}

// RefreshedEvent is the payload of websocket.TypeDashboardRefreshed.
type RefreshedEvent struct {
	Epoch          int64     `json:"epoch"`
	ComputedAt     time.Time `json:"computed_at"`
	TotalCollected float64   `json:"total_collected"`
	Warnings       int       `json:"warnings"`
}

// Scheduler refreshes the dashboard on a fixed interval. Runs never overlap:
// a tick that fires while the previous run is busy is skipped.
type Scheduler struct {
	cron      *cron.Cron
	refresher Refresher
	notify    Broadcaster
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler. notify may be nil.
func New(refresher Refresher, notify Broadcaster, opts Options) (*Scheduler, error) {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = infrastructure.GetLogger()
	}
	logger := opts.Logger.With(slog.String("component", "refresh_scheduler"))

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		refresher: refresher,
		notify:    notify,
		interval:  opts.Interval,
		timeout:   opts.Timeout,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}

	cl := cronLogger{logger}
	s.cron = cron.New(
		cron.WithLocation(opts.Location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", opts.Interval), s.run); err != nil {
		cancel()
		return nil, fmt.Errorf("schedule refresh every %s: %w", opts.Interval, err)
	}
	return s, nil
}

// Start begins ticking in the background.
func (s *Scheduler) Start() {
	s.logger.Info("refresh scheduler started", slog.Duration("interval", s.interval))
	s.cron.Start()
}

// Stop stops ticking and abandons any running refresh: the job returns at
// once and its result is discarded. It waits for the job to return or for
// ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("refresh scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run() {
	ctx := infrastructure.WithTraceID(s.ctx, infrastructure.GenerateTraceID())
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if err := s.RunOnce(ctx); err != nil {
		s.logger.WarnContext(ctx, "scheduled refresh failed", slog.String("error", err.Error()))
	}
}

// RunOnce performs one scheduled refresh and broadcasts its outcome.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	snap, err := s.refresher.Refresh(ctx, services.TriggerSchedule)
	if err != nil {
		s.broadcast(ctx, websocket.TypeRefreshFailed, map[string]string{"error": err.Error()})
		return err
	}

	s.broadcast(ctx, websocket.TypeDashboardRefreshed, RefreshedEvent{
		Epoch:          snap.Epoch,
		ComputedAt:     snap.ComputedAt,
		TotalCollected: snap.Report.TotalCollected,
		Warnings:       len(snap.Warnings),
	})
	return nil
}

func (s *Scheduler) broadcast(ctx context.Context, eventType string, data any) {
	if s.notify == nil {
		return
	}
	if err := s.notify.Broadcast(ctx, eventType, data); err != nil {
		s.logger.WarnContext(ctx, "refresh broadcast failed",
			slog.String("event", eventType),
			slog.String("error", err.Error()))
	}
}

// cronLogger routes cron's own logging into slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, slog.String("error", err.Error()))...)
}
