package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"MarketPulse/internal/aggregator"
	"MarketPulse/internal/calculator"
	"MarketPulse/internal/collector"
	"MarketPulse/internal/config"
	"MarketPulse/internal/metrics"
	"MarketPulse/internal/model"
	"MarketPulse/internal/output"
	"MarketPulse/internal/signal"
	"MarketPulse/internal/validate"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNoSymbols means neither the config nor the source named any symbol.
var ErrNoSymbols = errors.New("no symbols to process")

// RunResult is the outcome of one batch run.
type RunResult struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	RunDate      time.Time // date stamped into output file names
	Results      []model.SymbolResult
	Alerts       []model.Alert
	Snapshot     model.MarketSnapshot
	AlertsPath   string
	SnapshotPath string
}

// Duration is the wall time of the run.
func (r *RunResult) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// FailedCount is the number of symbols without an enriched series.
func (r *RunResult) FailedCount() int { return len(r.Snapshot.Failed) }

// Engine runs load → validate → enrich → detect → write for every symbol on
// a bounded worker pool, then aggregates once all symbols are done.
type Engine struct {
	cfg       *config.Config
	source    collector.Source
	writer    *output.Writer
	validator *validate.Validator
	detector  *signal.Detector
	metrics   *metrics.Metrics
	log       *zap.Logger

	// OnSymbolDone, when set, is called from worker goroutines as each
	// symbol finishes.
	OnSymbolDone func(model.SymbolResult)

	now func() time.Time
}

// New creates an Engine. m may be nil when metrics are disabled.
func New(cfg *config.Config, source collector.Source, writer *output.Writer, m *metrics.Metrics, log *zap.Logger) *Engine {
	return &Engine{
		cfg:       cfg,
		source:    source,
		writer:    writer,
		validator: validate.New(cfg.Alerts.GapDays),
		detector:  signal.NewDetector(cfg.Thresholds()),
		metrics:   m,
		log:       log.Named("pipeline"),
		now:       time.Now,
	}
}

// Symbols resolves the universe: the configured list, or whatever the source offers.
func (e *Engine) Symbols(ctx context.Context) ([]string, error) {
	if len(e.cfg.Symbols) > 0 {
		return e.cfg.Symbols, nil
	}
	syms, err := e.source.Symbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover symbols: %w", err)
	}
	if len(syms) == 0 {
		return nil, ErrNoSymbols
	}
	return syms, nil
}

// Run processes symbols, or the resolved universe when symbols is empty. A
// failing symbol never aborts the others; it is reported in the snapshot.
// Errors are returned only for run-level failures (no symbols, unwritable
// alert feed or snapshot, cancellation).
func (e *Engine) Run(ctx context.Context, symbols []string) (*RunResult, error) {
	var err error
	if len(symbols) == 0 {
		if symbols, err = e.Symbols(ctx); err != nil {
			return nil, err
		}
	}
	if err := calculator.CheckWindows(e.cfg.Windows()); err != nil {
		return nil, &config.ConfigError{Field: "indicators", Err: err}
	}

	run := &RunResult{
		ID:        uuid.NewString(),
		StartedAt: e.now(),
		Results:   make([]model.SymbolResult, len(symbols)),
	}
	run.RunDate = run.StartedAt
	log := e.log.With(zap.String("run_id", run.ID))

	workers := e.cfg.Workers(len(symbols))
	log.Info("run started", zap.Int("symbols", len(symbols)), zap.Int("workers", workers))

	var g errgroup.Group
	var stragglers sync.WaitGroup
	g.SetLimit(workers)
	for i, sym := range symbols {
		g.Go(func() error {
			res := e.processSymbol(ctx, sym, run.RunDate, &stragglers)
			run.Results[i] = res
			if e.OnSymbolDone != nil {
				e.OnSymbolDone(res)
			}
			return nil
		})
	}
	_ = g.Wait()
	// Timed-out work stops at its next context check and writes nothing;
	// no goroutine outlives the run.
	stragglers.Wait()

	sort.SliceStable(run.Results, func(i, j int) bool { return run.Results[i].Symbol < run.Results[j].Symbol })
	for _, r := range run.Results {
		run.Alerts = append(run.Alerts, r.Alerts...)
	}
	run.Snapshot = aggregator.Build(run.Results, e.cfg.Alerts.VolumeMultiplier)

	if err := ctx.Err(); err != nil {
		run.FinishedAt = e.now()
		return run, fmt.Errorf("run %s cancelled: %w", run.ID, err)
	}

	if run.AlertsPath, err = e.writer.WriteAlerts(run.Alerts, run.RunDate); err != nil {
		return run, err
	}
	if run.SnapshotPath, err = e.writer.WriteSnapshot(&run.Snapshot, run.RunDate); err != nil {
		return run, err
	}
	run.FinishedAt = e.now()

	e.observe(run)
	log.Info("run finished",
		zap.Duration("duration", run.Duration()),
		zap.Int("alerts", len(run.Alerts)),
		zap.Int("failed", run.FailedCount()),
		zap.Int("incomplete", len(run.Snapshot.Incomplete)),
	)
	return run, nil
}

func (e *Engine) observe(run *RunResult) {
	if e.metrics == nil {
		return
	}
	durations := make(map[string]time.Duration, len(run.Results))
	for _, r := range run.Results {
		durations[r.Symbol] = r.Duration
	}
	for _, st := range run.Snapshot.Statuses {
		e.metrics.ObserveSymbol(st.State, durations[st.Symbol])
	}
	e.metrics.ObserveAlerts(run.Alerts)
	e.metrics.ObserveRun(run.Duration(), run.FinishedAt)
}

// Ownership of a symbol's output once its deadline is in play.
const (
	slotOpen int32 = iota
	slotWriting
	slotAbandoned
)

// processSymbol runs one symbol under its own timeout. CPU-bound stages do
// not watch the context, so the task is raced against the deadline. The
// worker must claim the slot before writing; a timeout claims it first and
// the late worker then writes nothing. Abandoned workers are tracked in
// stragglers.
func (e *Engine) processSymbol(ctx context.Context, symbol string, runDate time.Time, stragglers *sync.WaitGroup) model.SymbolResult {
	start := time.Now()
	sctx, cancel := context.WithTimeout(ctx, e.cfg.Pipeline.SymbolTimeout)
	defer cancel()

	var slot atomic.Int32
	claim := func() bool { return slot.CompareAndSwap(slotOpen, slotWriting) }

	done := make(chan model.SymbolResult, 1)
	stragglers.Add(1)
	go func() {
		defer stragglers.Done()
		done <- e.work(sctx, symbol, runDate, claim)
	}()

	var res model.SymbolResult
	select {
	case res = <-done:
	case <-sctx.Done():
		if slot.CompareAndSwap(slotOpen, slotAbandoned) {
			err := sctx.Err()
			if errors.Is(err, context.DeadlineExceeded) {
				err = fmt.Errorf("%s: timed out after %s: %w", symbol, e.cfg.Pipeline.SymbolTimeout, err)
			}
			res = model.SymbolResult{Symbol: symbol, Err: err}
		} else {
			// the write already started; let it finish
			res = <-done
		}
	}
	res.Duration = time.Since(start)

	log := e.log.With(zap.String("symbol", symbol), zap.Duration("took", res.Duration))
	if res.Err != nil {
		log.Warn("symbol failed", zap.Error(res.Err))
	} else {
		log.Debug("symbol done", zap.Int("bars", res.Series.Len()), zap.Int("alerts", len(res.Alerts)))
	}
	return res
}

func (e *Engine) work(ctx context.Context, symbol string, runDate time.Time, claim func() bool) model.SymbolResult {
	res := model.SymbolResult{Symbol: symbol}

	raw, err := e.source.Load(ctx, symbol)
	if err != nil {
		res.Err = fmt.Errorf("load: %w", err)
		return res
	}

	series, issues, err := e.validator.Validate(*raw)
	res.Issues = issues
	if err != nil {
		res.Err = err
		res.Alerts = e.detector.QualityAlerts(symbol, time.Time{}, issues)
		return res
	}

	es, err := calculator.Enrich(series, e.cfg.Windows())
	if err != nil {
		res.Err = err
		res.Alerts = e.detector.QualityAlerts(symbol, series.Bars[len(series.Bars)-1].Date, issues)
		return res
	}
	alerts := e.detector.Detect(es, issues)

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	if !claim() {
		res.Err = fmt.Errorf("%s: abandoned after deadline", symbol)
		return res
	}
	path, err := e.writer.WriteEnriched(es, runDate)
	if err != nil {
		res.Err = err
		res.Alerts = e.detector.QualityAlerts(symbol, es.AsOf(), issues)
		return res
	}

	res.Series = es
	res.Alerts = alerts
	res.OutputPath = path
	return res
}
