package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"MarketPulse/internal/aggregator"
	"MarketPulse/internal/model"
	"MarketPulse/internal/pipeline"
	"MarketPulse/internal/recorder"
)

// DigestTop is the number of movers listed per ranking in the digest.
const DigestTop = 5

// FormatDigest formats a finished run into a Telegram message.
func FormatDigest(run *pipeline.RunResult) string {
	var b strings.Builder
	snap := &run.Snapshot

	asOf := "n/a"
	if !snap.AsOf.IsZero() {
		asOf = snap.AsOf.Format("2006-01-02")
	}
	fmt.Fprintf(&b, "📊 <b>MarketPulse</b> | %s\n", asOf)
	fmt.Fprintf(&b, "%d symbols, %d alerts, %d failed (%s)\n",
		len(snap.Statuses), len(run.Alerts), len(snap.Failed), run.Duration().Round(time.Millisecond))

	writeMovers(&b, "📈 <b>Top gainers</b>", aggregator.Top(snap.Gainers, DigestTop))
	writeMovers(&b, "📉 <b>Top losers</b>", aggregator.Top(snap.Losers, DigestTop))

	if len(snap.HighVolume) > 0 {
		b.WriteString("\n🔊 <b>High volume</b>\n")
		for _, m := range aggregator.Top(snap.HighVolume, DigestTop) {
			ratio := 0.0
			if m.VolumeRatio.IsSome() {
				ratio = m.VolumeRatio.Unwrap()
			}
			fmt.Fprintf(&b, "  %s %.1fx\n", html.EscapeString(m.Symbol), ratio)
		}
	}

	if len(snap.Significant) > 0 {
		b.WriteString("\n⚠️ <b>Alerts</b>\n")
		for _, sm := range snap.Significant {
			for _, a := range sm.Alerts {
				fmt.Fprintf(&b, "  %s %s\n", severityIcon(a.Severity), html.EscapeString(a.Message))
			}
		}
	}

	if len(snap.Failed) > 0 {
		b.WriteString("\n❌ <b>Failed</b>\n")
		for _, f := range snap.Failed {
			fmt.Fprintf(&b, "  %s: %s\n", html.EscapeString(f.Symbol), html.EscapeString(f.Reason))
		}
	}
	if len(snap.Incomplete) > 0 {
		fmt.Fprintf(&b, "\nIncomplete: %s\n", html.EscapeString(strings.Join(snap.Incomplete, ", ")))
	}
	return b.String()
}

func writeMovers(b *strings.Builder, title string, movers []model.Mover) {
	if len(movers) == 0 {
		return
	}
	b.WriteString("\n" + title + "\n")
	for _, m := range movers {
		fmt.Fprintf(b, "  %s %.2f (%+.2f%%)\n", html.EscapeString(m.Symbol), m.Close, m.DailyReturn*100)
	}
}

func severityIcon(s model.Severity) string {
	switch s {
	case model.SeverityError:
		return "🔴"
	case model.SeverityWarn:
		return "🟠"
	default:
		return "🔵"
	}
}

// FormatStatus formats the last recorded run.
func FormatStatus(run *recorder.RunSummary) string {
	var b strings.Builder
	b.WriteString("📦 <b>Last run</b>\n\n")
	fmt.Fprintf(&b, "ID: %s\n", run.ID)
	fmt.Fprintf(&b, "Finished: %s\n", run.FinishedAt.Format("2006-01-02 15:04"))
	if !run.AsOf.IsZero() {
		fmt.Fprintf(&b, "Data as of: %s\n", run.AsOf.Format("2006-01-02"))
	}
	fmt.Fprintf(&b, "Symbols: %d (failed %d)\n", run.Symbols, run.Failed)
	fmt.Fprintf(&b, "Alerts: %d\n", run.AlertCount)
	return b.String()
}

// FormatAlerts lists recent alerts for one symbol.
func FormatAlerts(symbol string, alerts []model.Alert) string {
	if len(alerts) == 0 {
		return fmt.Sprintf("No alerts recorded for %s", html.EscapeString(symbol))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 <b>%s</b> recent alerts\n\n", html.EscapeString(symbol))
	for _, a := range alerts {
		fmt.Fprintf(&b, "%s %s %s\n", a.AsOf.Format("2006-01-02"), severityIcon(a.Severity), html.EscapeString(a.Message))
	}
	return b.String()
}

// HelpText lists the bot commands.
const HelpText = "Commands:\n• /run - run the pipeline now\n• /status - last run summary\n• /alerts SYMBOL - recent alerts for a symbol"
