package scheduler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"MarketPulse/internal/metrics"
	"MarketPulse/internal/notifier"
	"MarketPulse/internal/pipeline"
	"MarketPulse/internal/recorder"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ErrRunInProgress is returned by RunNow while another run is active.
var ErrRunInProgress = errors.New("a run is already in progress")

// Runner executes one batch run.
type Runner interface {
	Run(ctx context.Context, symbols []string) (*pipeline.RunResult, error)
}

// Notifier delivers messages to the user.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// recentAlertsLimit caps the /alerts reply.
const recentAlertsLimit = 10

// Scheduler manages the daily cron task and bot commands.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   Runner
	Recorder recorder.Recorder
	Notifier Notifier // nil disables notifications
	Health   *metrics.HealthStatus
	Ctx      context.Context

	log     *zap.Logger
	running sync.Mutex
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, runner Runner, rec recorder.Recorder, n Notifier, health *metrics.HealthStatus, log *zap.Logger) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Runner:   runner,
		Recorder: rec,
		Notifier: n,
		Health:   health,
		Ctx:      ctx,
		log:      log.Named("scheduler"),
	}
}

// Register adds the daily run.
func (s *Scheduler) Register(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyTask); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started", zap.Int("entries", len(s.Cron.Entries())))
}

// Stop stops the cron scheduler and waits for a running job.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) dailyTask() {
	if _, err := s.RunNow(s.Ctx); err != nil && !errors.Is(err, ErrRunInProgress) {
		s.log.Error("daily run", zap.Error(err))
	}
}

// RunNow executes a run immediately, records it and sends the digest.
// Overlapping runs are rejected with ErrRunInProgress.
func (s *Scheduler) RunNow(ctx context.Context) (*pipeline.RunResult, error) {
	if !s.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.running.Unlock()

	s.log.Info("running pipeline")
	run, err := s.Runner.Run(ctx, nil)
	if s.Health != nil {
		id, failed := "", 0
		if run != nil {
			id, failed = run.ID, run.FailedCount()
		}
		s.Health.SetRun(id, time.Now(), failed, err)
	}
	if err != nil {
		s.trySend(ctx, fmt.Sprintf("❌ Pipeline run failed: %s", html.EscapeString(err.Error())))
		return run, err
	}

	rec := recorder.NewRunRecord(run.ID, run.StartedAt, run.FinishedAt, &run.Snapshot, run.Alerts)
	if err := s.Recorder.RecordRun(ctx, rec); err != nil {
		s.log.Error("record run", zap.String("run_id", run.ID), zap.Error(err))
	}
	s.trySend(ctx, notifier.FormatDigest(run))
	return run, nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.HelpText
	}
	switch fields[0] {
	case "/run":
		// RunNow sends the digest or the failure itself.
		if _, err := s.RunNow(ctx); errors.Is(err, ErrRunInProgress) {
			return "⏳ A run is already in progress"
		}
		return ""
	case "/status":
		last, err := s.Recorder.LastRun(ctx)
		if errors.Is(err, recorder.ErrNoRuns) {
			return "No runs recorded yet"
		}
		if err != nil {
			s.log.Error("load last run", zap.Error(err))
			return "Could not load run history"
		}
		return notifier.FormatStatus(last)
	case "/alerts":
		if len(fields) < 2 {
			return "Usage: /alerts SYMBOL"
		}
		symbol := strings.ToUpper(fields[1])
		alerts, err := s.Recorder.RecentAlerts(ctx, symbol, recentAlertsLimit)
		if err != nil {
			s.log.Error("load alerts", zap.String("symbol", symbol), zap.Error(err))
			return "Could not load alerts"
		}
		return notifier.FormatAlerts(symbol, alerts)
	default:
		return notifier.HelpText
	}
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(ctx, text, 3); err != nil {
		s.log.Error("send notification", zap.Error(err))
	}
}
