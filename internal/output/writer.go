package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"MarketPulse/internal/model"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

const stampLayout = "20060102"

// Writer emits run artifacts under Dir. Every file is written to a temp
// file and renamed into place, so readers never see a partial file.
type Writer struct {
	Dir string
}

// NewWriter creates a Writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir}
}

// EnrichedPath is where WriteEnriched puts symbol's file for runDate.
func (w *Writer) EnrichedPath(symbol string, runDate time.Time) string {
	return filepath.Join(w.Dir, fmt.Sprintf("%s_processed_%s.csv", symbol, runDate.Format(stampLayout)))
}

// EnrichedHeader returns the enriched CSV columns for the given windows.
func EnrichedHeader(win model.Windows) []string {
	return []string{
		model.ColDate, model.ColOpen, model.ColHigh, model.ColLow, model.ColClose, model.ColVolume,
		fmt.Sprintf("SMA_%d", win.SMAShort),
		fmt.Sprintf("SMA_%d", win.SMALong),
		fmt.Sprintf("EMA_%d", win.EMA),
		fmt.Sprintf("RSI_%d", win.RSI),
		"MACD", "MACD_Signal", "MACD_Histogram",
		"BB_Middle", "BB_Upper", "BB_Lower",
		"OBV", "Volume_MA", "Volume_Ratio", "Volatility",
		"Support", "Resistance",
		"Daily_Return", "Price_Change", "Price_Change_Pct", "HL_Spread", "HL_Spread_Pct",
	}
}

// WriteEnriched writes the input columns plus one column per indicator.
// Absent values are empty cells.
func (w *Writer) WriteEnriched(es *model.EnrichedSeries, runDate time.Time) (string, error) {
	path := w.EnrichedPath(es.Symbol, runDate)
	err := writeAtomic(path, func(f io.Writer) error {
		cw := csv.NewWriter(f)
		if err := cw.Write(EnrichedHeader(es.Windows)); err != nil {
			return err
		}
		for i, b := range es.Bars {
			set := es.Indicators[i]
			obv := ""
			if set.OBV.IsSome() {
				obv = strconv.FormatInt(set.OBV.Unwrap(), 10)
			}
			rec := append(barRecord(b),
				formatOpt(set.SMAShort),
				formatOpt(set.SMALong),
				formatOpt(set.EMA),
				formatOpt(set.RSI),
				formatOpt(set.MACD),
				formatOpt(set.MACDSignal),
				formatOpt(set.MACDHist),
				formatOpt(set.BBMid),
				formatOpt(set.BBUpper),
				formatOpt(set.BBLower),
				obv,
				formatOpt(set.VolumeSMA),
				formatOpt(set.VolumeRatio),
				formatOpt(set.Volatility),
				formatOpt(set.Support),
				formatOpt(set.Resistance),
				formatOpt(set.DailyReturn),
				formatOpt(set.PriceChange),
				formatOpt(set.PriceChangePct),
				formatOpt(set.HLSpread),
				formatOpt(set.HLSpreadPct),
			)
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return "", fmt.Errorf("%s: write enriched: %w", es.Symbol, err)
	}
	return path, nil
}

// WriteRaw writes a clean OHLCV series as <SYMBOL>_<YYYYMMDD>.csv, the
// input format the CSV source reads back.
func (w *Writer) WriteRaw(s model.Series, runDate time.Time) (string, error) {
	path := filepath.Join(w.Dir, fmt.Sprintf("%s_%s.csv", s.Symbol, runDate.Format(stampLayout)))
	err := writeAtomic(path, func(f io.Writer) error {
		cw := csv.NewWriter(f)
		if err := cw.Write(model.RequiredColumns); err != nil {
			return err
		}
		for _, b := range s.Bars {
			if err := cw.Write(barRecord(b)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return "", fmt.Errorf("%s: write raw: %w", s.Symbol, err)
	}
	return path, nil
}

// WriteAlerts writes the alert feed in the given order.
func (w *Writer) WriteAlerts(alerts []model.Alert, runDate time.Time) (string, error) {
	path := filepath.Join(w.Dir, fmt.Sprintf("alerts_%s.csv", runDate.Format(stampLayout)))
	err := writeAtomic(path, func(f io.Writer) error {
		cw := csv.NewWriter(f)
		if err := cw.Write([]string{"symbol", "kind", "severity", "message", "trigger_value", "as_of_date"}); err != nil {
			return err
		}
		for _, a := range alerts {
			asOf := ""
			if !a.AsOf.IsZero() {
				asOf = a.AsOf.Format(time.DateOnly)
			}
			rec := []string{a.Symbol, string(a.Kind), string(a.Severity), a.Message, formatFloat(a.TriggerValue), asOf}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return "", fmt.Errorf("write alerts: %w", err)
	}
	return path, nil
}

// WriteSnapshot writes the market snapshot as indented JSON.
func (w *Writer) WriteSnapshot(snap *model.MarketSnapshot, runDate time.Time) (string, error) {
	path := filepath.Join(w.Dir, fmt.Sprintf("snapshot_%s.json", runDate.Format(stampLayout)))
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	err = writeAtomic(path, func(f io.Writer) error {
		_, err := f.Write(data)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// LoadSnapshot reads a snapshot written by WriteSnapshot.
func LoadSnapshot(path string) (*model.MarketSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap model.MarketSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return &snap, nil
}

func barRecord(b model.Bar) []string {
	return []string{
		b.Date.Format(time.DateOnly),
		formatFloat(b.Open),
		formatFloat(b.High),
		formatFloat(b.Low),
		formatFloat(b.Close),
		strconv.FormatInt(b.Volume, 10),
	}
}

// formatFloat prints the shortest decimal that round-trips v.
func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return decimal.NewFromFloat(v).String()
}

// formatOpt prints an indicator rounded to 6 decimal places, or "" when absent.
func formatOpt(o optional.Option[float64]) string {
	if o.IsNone() {
		return ""
	}
	v := o.Unwrap()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return decimal.NewFromFloat(v).Round(6).String()
}

func writeAtomic(path string, fill func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := fill(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
