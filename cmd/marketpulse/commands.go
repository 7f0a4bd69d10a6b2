package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"MarketPulse/internal/collector"
	"MarketPulse/internal/config"
	"MarketPulse/internal/logger"
	"MarketPulse/internal/metrics"
	"MarketPulse/internal/model"
	"MarketPulse/internal/notifier"
	"MarketPulse/internal/output"
	"MarketPulse/internal/pipeline"
	"MarketPulse/internal/recorder"
	"MarketPulse/internal/scheduler"
	"MarketPulse/internal/validate"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// setup loads and validates the config and builds the logger.
func setup(cmd *cli.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, nil, err
	}
	if s := cmd.String("symbols"); s != "" {
		cfg.Symbols = config.ParseSymbols(s)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, &config.ConfigError{Field: "log", Err: err}
	}
	return cfg, log, nil
}

func newSource(cfg *config.Config) collector.Source {
	if cfg.DataSource.Type == "yahoo" {
		return collector.NewYahooSource(cfg.Symbols, cfg.DataSource.HistoryDays, cfg.DataSource.Proxy)
	}
	return collector.NewCSVSource(cfg.Paths.DataDir)
}

func newRecorder(cfg *config.Config, log *zap.Logger) recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	rec, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
	if err != nil {
		log.Warn("init sqlite recorder failed, using noop", zap.Error(err))
		return recorder.NewNoopRecorder()
	}
	return rec
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	source := newSource(cfg)
	engine := pipeline.New(cfg, source, output.NewWriter(cfg.Paths.OutputDir), nil, log)
	log.Info("data source", zap.String("name", source.Name()))

	symbols, err := engine.Symbols(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("progress") {
		bar := progressbar.Default(int64(len(symbols)), "processing")
		engine.OnSymbolDone = func(model.SymbolResult) { _ = bar.Add(1) }
		defer bar.Finish()
	}

	run, err := engine.Run(ctx, symbols)
	if err != nil {
		return err
	}

	rec := newRecorder(cfg, log)
	defer rec.Close()
	if err := rec.RecordRun(ctx, recorder.NewRunRecord(run.ID, run.StartedAt, run.FinishedAt, &run.Snapshot, run.Alerts)); err != nil {
		log.Error("record run", zap.Error(err))
	}

	fmt.Printf("run %s: %d symbols, %d alerts, %d failed in %s\n",
		run.ID, len(run.Results), len(run.Alerts), run.FailedCount(), run.Duration().Round(time.Millisecond))
	fmt.Printf("alerts:   %s\nsnapshot: %s\n", run.AlertsPath, run.SnapshotPath)
	return nil
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()
	log.Info("MarketPulse starting")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)
	health := metrics.NewHealthStatus()

	engine := pipeline.New(cfg, newSource(cfg), output.NewWriter(cfg.Paths.OutputDir), m, log)
	rec := newRecorder(cfg, log)
	defer rec.Close()

	var tn *notifier.TelegramNotifier
	var n scheduler.Notifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.DataSource.Proxy, log)
		n = tn
	}

	sched := scheduler.NewScheduler(ctx, engine, rec, n, health, log)
	if err := sched.Register(cfg.Schedule.DailyCron); err != nil {
		return &config.ConfigError{Field: "schedule.daily_cron", Err: err}
	}
	sched.Start()
	defer sched.Stop()

	if cfg.Metrics.Addr != "" {
		srv := metrics.NewServer(cfg.Metrics.Addr, reg, health, log)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn("metrics server shutdown", zap.Error(err))
			}
		}()
	}

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info("telegram polling started")
	}

	if cfg.RunOnStart {
		log.Info("run on start enabled, executing pipeline now")
		go func() {
			if _, err := sched.RunNow(ctx); err != nil {
				log.Error("startup run", zap.Error(err))
			}
		}()
	}

	log.Info("MarketPulse is running, press Ctrl+C to stop", zap.String("cron", cfg.Schedule.DailyCron))
	<-ctx.Done()
	log.Info("shutdown signal received, stopping")
	return nil
}

func fetchAction(ctx context.Context, cmd *cli.Command) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()
	if len(cfg.Symbols) == 0 {
		return &config.ConfigError{Field: "symbols", Err: errors.New("fetch needs at least one symbol")}
	}

	days := cfg.DataSource.HistoryDays
	if d := cmd.Int("days"); d > 0 {
		days = int(d)
	}
	source := collector.NewYahooSource(cfg.Symbols, days, cfg.DataSource.Proxy)
	v := validate.New(cfg.Alerts.GapDays)
	w := output.NewWriter(cfg.Paths.DataDir)
	today := time.Now()

	bar := progressbar.Default(int64(len(cfg.Symbols)), "fetching")
	failed := make([]error, len(cfg.Symbols))

	var g errgroup.Group
	g.SetLimit(cfg.Workers(len(cfg.Symbols)))
	for i, sym := range cfg.Symbols {
		g.Go(func() error {
			defer bar.Add(1)
			failed[i] = fetchOne(ctx, source, v, w, sym, today, log)
			return nil
		})
	}
	_ = g.Wait()
	_ = bar.Finish()

	if err := errors.Join(failed...); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	return nil
}

func fetchOne(ctx context.Context, source collector.Source, v *validate.Validator, w *output.Writer, symbol string, day time.Time, log *zap.Logger) error {
	sctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	raw, err := source.Load(sctx, symbol)
	if err != nil {
		log.Warn("fetch failed", zap.String("symbol", symbol), zap.Error(err))
		return err
	}
	series, issues, err := v.Validate(*raw)
	if err != nil {
		return err
	}
	for _, issue := range issues {
		log.Debug("data quality", zap.String("symbol", symbol), zap.String("issue", issue.Error()))
	}
	path, err := w.WriteRaw(series, day)
	if err != nil {
		return err
	}
	log.Info("saved", zap.String("symbol", symbol), zap.Int("bars", series.Len()), zap.String("path", path))
	return nil
}
