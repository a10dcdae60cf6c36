package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"StopHunter/internal/calculator"
	"StopHunter/internal/model"
	"StopHunter/internal/scanner"
)

// Style selects the markup of formatted reports.
type Style int

const (
	HTML  Style = iota // Telegram parse_mode=HTML
	Plain              // console
)

func (s Style) bold(text string) string {
	if s == HTML {
		return "<b>" + html.EscapeString(text) + "</b>"
	}
	return text
}

func (s Style) text(text string) string {
	if s == HTML {
		return html.EscapeString(text)
	}
	return text
}

// FormatSignal renders one signal as a short block.
func FormatSignal(sig model.Signal, style Style) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("  %s Signal\n", style.bold(string(sig.Type))))
	b.WriteString(fmt.Sprintf("  Entry: %.2f | Stop: %.2f\n", sig.Entry, sig.Stop))
	b.WriteString(fmt.Sprintf("  Target: %.2f | Confidence: %.1f%%\n", sig.Target, sig.Confidence))
	if !sig.BarTime.IsZero() {
		b.WriteString(fmt.Sprintf("  Bar: %s\n", sig.BarTime.Format("2006-01-02 15:04")))
	}
	return b.String()
}

// FormatScanReport renders every symbol with signals, in scan order.
func FormatScanReport(report *scanner.Report, style Style) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🎯 %s | %s\n", style.bold("Stop Hunt Scan"), report.StartedAt.Format("2006-01-02 15:04:05")))

	if report.SignalCount() == 0 {
		b.WriteString("\nNo stop runs detected in current watchlist\n")
	}
	for _, res := range report.Results {
		if res.Err != nil || len(res.Signals) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("\n🔥 %s\n", style.bold(res.Symbol)))
		for _, sig := range res.Signals {
			b.WriteString(FormatSignal(sig, style))
		}
	}

	if failures := report.Failures(); len(failures) > 0 {
		names := make([]string, len(failures))
		for i, f := range failures {
			names[i] = f.Symbol
		}
		b.WriteString(fmt.Sprintf("\n⚠️ skipped: %s\n", style.text(strings.Join(names, ", "))))
	}
	b.WriteString(fmt.Sprintf("\n%d symbols, %d signals, %s\n",
		len(report.Results), report.SignalCount(), report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond)))
	return b.String()
}

// FormatZoneReport renders a liquidity zone against the latest close of
// series. series may be nil.
func FormatZoneReport(zone model.LiquidityZone, series *model.BarSeries, style Style) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📐 %s\n\n", style.bold(zone.Symbol+" Liquidity Zones")))
	b.WriteString(fmt.Sprintf("Resistance: %.2f\n", zone.RecentHigh))
	b.WriteString(fmt.Sprintf("Support:    %.2f\n", zone.RecentLow))
	if zone.HasVWAP() {
		b.WriteString(fmt.Sprintf("VWAP:       %.2f\n", zone.VWAP))
	} else {
		b.WriteString("VWAP:       n/a (no volume)\n")
	}

	if len(zone.VolumeClusters) == 0 {
		b.WriteString("Volume clusters: none\n")
	} else {
		if level, ok := zone.DominantCluster(); ok {
			b.WriteString(fmt.Sprintf("Dominant level: %.2f\n", level))
		}
		b.WriteString("Volume clusters (heaviest first):\n")
		for i := len(zone.VolumeClusters) - 1; i >= 0; i-- {
			b.WriteString(fmt.Sprintf("  • %.2f\n", zone.VolumeClusters[i]))
		}
	}

	if latest, ok := series.Latest(); ok {
		b.WriteString(fmt.Sprintf("\nLast close: %.2f (%s)\n", latest.Close, latest.Time.Format("2006-01-02 15:04")))
		if pos, err := calculator.RangePosition(latest.Close, zone.RecentHigh, zone.RecentLow); err == nil {
			b.WriteString(fmt.Sprintf("Range position: %.0f%%\n", pos*100))
		}
		if zone.RecentLow > 0 {
			b.WriteString(fmt.Sprintf("To support: %+.2f%% | To resistance: %+.2f%%\n",
				(zone.RecentLow-latest.Close)/latest.Close*100,
				(zone.RecentHigh-latest.Close)/latest.Close*100))
		}
		b.WriteString(fmt.Sprintf("Window: %s %s, %d bars\n", series.Period, series.Interval, series.Len()))
	}
	return b.String()
}
