package aggregator

import (
	"sort"
	"time"

	"MarketPulse/internal/model"
	"MarketPulse/internal/signal"
)

// Build combines per-symbol results into the cross-sectional snapshot.
// A failed symbol never aborts the snapshot; it is listed under Failed.
func Build(results []model.SymbolResult, volumeMultiplier float64) model.MarketSnapshot {
	snap := model.MarketSnapshot{
		Gainers:     []model.Mover{},
		Losers:      []model.Mover{},
		HighVolume:  []model.Mover{},
		Significant: []model.SignificantMover{},
		Incomplete:  []string{},
		Failed:      []model.SymbolFailure{},
		Statuses:    make([]model.SymbolStatus, 0, len(results)),
	}

	ordered := make([]*model.SymbolResult, len(results))
	for i := range results {
		ordered[i] = &results[i]
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Symbol < ordered[j].Symbol })

	var ranked []model.Mover
	for _, r := range ordered {
		if r.Failed() {
			reason := "no enriched series"
			if r.Err != nil {
				reason = r.Err.Error()
			}
			snap.Failed = append(snap.Failed, model.SymbolFailure{Symbol: r.Symbol, Reason: reason})
			snap.Statuses = append(snap.Statuses, model.SymbolStatus{Symbol: r.Symbol, State: model.StateFailed, Reason: reason})
			continue
		}

		status := model.SymbolStatus{Symbol: r.Symbol, State: model.StateQuiet}
		bar, set, ok := r.Series.Latest()
		if !ok || set.DailyReturn.IsNone() {
			snap.Incomplete = append(snap.Incomplete, r.Symbol)
			status.State = model.StateIncomplete
			status.Reason = "no daily return on the latest bar"
		} else {
			m := model.Mover{
				Symbol:      r.Symbol,
				Close:       bar.Close,
				DailyReturn: set.DailyReturn.Unwrap(),
				Volume:      bar.Volume,
				VolumeRatio: set.VolumeRatio,
			}
			ranked = append(ranked, m)
			if set.VolumeRatio.IsSome() && set.VolumeRatio.Unwrap() >= volumeMultiplier {
				snap.HighVolume = append(snap.HighVolume, m)
			}
			if bar.Date.After(snap.AsOf) {
				snap.AsOf = bar.Date
			}
		}

		if len(r.Alerts) > 0 {
			snap.Significant = append(snap.Significant, model.SignificantMover{
				Symbol:     r.Symbol,
				Alerts:     r.Alerts,
				Highlights: signal.Highlights(r.Series),
			})
			status.State = model.StateAlerted
		}
		snap.Statuses = append(snap.Statuses, status)
	}

	snap.Gainers = append(snap.Gainers, ranked...)
	sort.SliceStable(snap.Gainers, func(i, j int) bool {
		a, b := snap.Gainers[i], snap.Gainers[j]
		if a.DailyReturn != b.DailyReturn {
			return a.DailyReturn > b.DailyReturn
		}
		return a.Symbol < b.Symbol
	})
	snap.Losers = append(snap.Losers, ranked...)
	sort.SliceStable(snap.Losers, func(i, j int) bool {
		a, b := snap.Losers[i], snap.Losers[j]
		if a.DailyReturn != b.DailyReturn {
			return a.DailyReturn < b.DailyReturn
		}
		return a.Symbol < b.Symbol
	})
	sort.SliceStable(snap.HighVolume, func(i, j int) bool {
		a, b := snap.HighVolume[i].VolumeRatio.Unwrap(), snap.HighVolume[j].VolumeRatio.Unwrap()
		if a != b {
			return a > b
		}
		return snap.HighVolume[i].Symbol < snap.HighVolume[j].Symbol
	})
	return snap
}

// Top returns at most n movers from list.
func Top(list []model.Mover, n int) []model.Mover {
	if len(list) <= n {
		return list
	}
	return list[:n]
}

// AlertCount totals alerts across all results.
func AlertCount(results []model.SymbolResult) int {
	n := 0
	for _, r := range results {
		n += len(r.Alerts)
	}
	return n
}

// LatestDate is the newest bar date among results that produced a series.
func LatestDate(results []model.SymbolResult) time.Time {
	var latest time.Time
	for _, r := range results {
		if r.Series != nil && r.Series.AsOf().After(latest) {
			latest = r.Series.AsOf()
		}
	}
	return latest
}
