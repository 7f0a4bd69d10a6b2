package signal

import (
	"fmt"
	"math"
	"time"

	"MarketPulse/internal/model"
)

// Thresholds are the alert trigger levels. Percentages are in percent
// units, so 5 means a 5% move.
type Thresholds struct {
	PriceChangePct   float64
	VolumeMultiplier float64
	SevereMovePct    float64
}

// DefaultThresholds returns 5% price move, 2x volume and 10% severe move.
func DefaultThresholds() Thresholds {
	return Thresholds{PriceChangePct: 5.0, VolumeMultiplier: 2.0, SevereMovePct: 10.0}
}

// Detector turns the latest bar of an enriched series into alerts.
// It keeps no state between calls.
type Detector struct {
	th Thresholds
}

// NewDetector creates a Detector with the given thresholds.
func NewDetector(th Thresholds) *Detector {
	return &Detector{th: th}
}

// Thresholds returns the configured trigger levels.
func (d *Detector) Thresholds() Thresholds { return d.th }

// Detect evaluates the latest bar of es. Alerts come out ordered
// data_quality, price_move, volume_spike.
func (d *Detector) Detect(es *model.EnrichedSeries, issues []model.DataQualityError) []model.Alert {
	asOf := es.AsOf()
	alerts := d.QualityAlerts(es.Symbol, asOf, issues)

	_, set, ok := es.Latest()
	if !ok {
		return alerts
	}

	if set.DailyReturn.IsSome() {
		r := set.DailyReturn.Unwrap()
		if math.Abs(r) >= d.th.PriceChangePct/100 {
			sev := model.SeverityWarn
			if math.Abs(r) >= d.th.SevereMovePct/100 {
				sev = model.SeverityError
			}
			alerts = append(alerts, model.Alert{
				Symbol:       es.Symbol,
				Kind:         model.AlertPriceMove,
				Severity:     sev,
				Message:      fmt.Sprintf("%s moved %+.2f%% today", es.Symbol, r*100),
				TriggerValue: r,
				AsOf:         asOf,
			})
		}
	}

	if set.VolumeRatio.IsSome() {
		ratio := set.VolumeRatio.Unwrap()
		if ratio >= d.th.VolumeMultiplier {
			alerts = append(alerts, model.Alert{
				Symbol:       es.Symbol,
				Kind:         model.AlertVolumeSpike,
				Severity:     model.SeverityInfo,
				Message:      fmt.Sprintf("%s traded %.1fx its %d-day average volume", es.Symbol, ratio, es.Windows.VolumeWindow),
				TriggerValue: ratio,
				AsOf:         asOf,
			})
		}
	}

	return alerts
}

// QualityAlerts turns validator issues into data_quality alerts, one per
// issue in input order. It also serves symbols whose validation failed and
// that never reach Detect; asOf may be zero for those.
func (d *Detector) QualityAlerts(symbol string, asOf time.Time, issues []model.DataQualityError) []model.Alert {
	var alerts []model.Alert
	for _, is := range issues {
		alerts = append(alerts, model.Alert{
			Symbol:   symbol,
			Kind:     model.AlertDataQuality,
			Severity: is.Severity,
			Message:  qualityMessage(is),
			AsOf:     asOf,
		})
	}
	return alerts
}

func qualityMessage(is model.DataQualityError) string {
	switch {
	case !is.Date.IsZero():
		return fmt.Sprintf("%s on %s: %s", is.Code, is.Date.Format("2006-01-02"), is.Message)
	case is.Row > 0:
		return fmt.Sprintf("%s at row %d: %s", is.Code, is.Row, is.Message)
	default:
		return fmt.Sprintf("%s: %s", is.Code, is.Message)
	}
}
