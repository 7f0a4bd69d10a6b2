package model

import "time"

// AlertKind identifies the rule that produced an alert.
type AlertKind string

const (
	AlertPriceMove   AlertKind = "price_move"
	AlertVolumeSpike AlertKind = "volume_spike"
	AlertDataQuality AlertKind = "data_quality"
)

// Severity grades alerts and data quality issues.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Alert is a single actionable finding for one symbol. Treat as immutable.
type Alert struct {
	Symbol       string    `json:"symbol"`
	Kind         AlertKind `json:"kind"`
	Severity     Severity  `json:"severity"`
	Message      string    `json:"message"`
	TriggerValue float64   `json:"trigger_value"`
	AsOf         time.Time `json:"as_of_date"`
}
