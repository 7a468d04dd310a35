package notifier

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"DarkPoolSentinel/internal/model"
)

// FormatDailyReport formats the scheduled refresh summary into a Telegram message.
func FormatDailyReport(table model.EnrichedTable, latest time.Time, alerts []model.EnrichedRecord, topN int) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>DarkPoolSentinel Daily</b> | %s\n\n", latest.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Rows: %d | Symbols: %d\n\n", len(table.Records), len(table.Symbols())))

	if len(alerts) > 0 {
		b.WriteString(fmt.Sprintf("🚨 <b>Unusual activity (%d):</b>\n", len(alerts)))
		for i, r := range alerts {
			if i >= topN {
				b.WriteString(fmt.Sprintf("  … and %d more\n", len(alerts)-topN))
				break
			}
			b.WriteString(fmt.Sprintf("  %s: rel vol %s | DP %s%% | total %s\n",
				r.Symbol, fmtMetric(r.RelativeVolume, "%.2f"), fmtMetric(r.DPIndex, "%.1f"), fmtVolume(r.TotalVolume)))
		}
		b.WriteString("\n")
	} else {
		b.WriteString("No unusual activity today.\n\n")
	}

	b.WriteString(fmt.Sprintf("📈 <b>Top relative volume:</b>\n%s", FormatTopMovers(table, latest, topN)))
	return b.String()
}

// FormatTopMovers lists the latest day's records ranked by relative volume.
func FormatTopMovers(table model.EnrichedTable, latest time.Time, topN int) string {
	recs := latestRecords(table, latest)
	sort.SliceStable(recs, func(i, j int) bool {
		return deref(recs[i].RelativeVolume) > deref(recs[j].RelativeVolume)
	})
	var b strings.Builder
	for i, r := range recs {
		if i >= topN {
			break
		}
		b.WriteString(fmt.Sprintf("  %s: rel vol %s | B/S %s | DP %s%%\n",
			r.Symbol, fmtMetric(r.RelativeVolume, "%.2f"), fmtMetric(r.BSRatio, "%.3f"), fmtMetric(r.DPIndex, "%.1f")))
	}
	if b.Len() == 0 {
		return "  (no records)\n"
	}
	return b.String()
}

// FormatDarkPoolLeaders lists the latest day's records ranked by dark-pool participation.
func FormatDarkPoolLeaders(table model.EnrichedTable, latest time.Time, topN int) string {
	recs := latestRecords(table, latest)
	sort.SliceStable(recs, func(i, j int) bool {
		return deref(recs[i].DPIndex) > deref(recs[j].DPIndex)
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🌑 <b>Dark pool leaders</b> | %s\n\n", latest.Format("2006-01-02")))
	for i, r := range recs {
		if i >= topN {
			break
		}
		b.WriteString(fmt.Sprintf("  %s: DP %s%% | buy %s | total %s\n",
			r.Symbol, fmtMetric(r.DPIndex, "%.1f"), fmtVolume(r.BuyVolume), fmtVolume(r.TotalVolume)))
	}
	if len(recs) == 0 {
		b.WriteString("  (no records)\n")
	}
	return b.String()
}

// FormatStatus formats the current dataset state for display.
func FormatStatus(table model.EnrichedTable, latest time.Time, ok bool) string {
	if !ok {
		return "⏳ No data yet — the feed has not published a usable file. Try /refresh later."
	}
	var b strings.Builder
	b.WriteString("📦 <b>Dataset status</b>\n\n")
	b.WriteString(fmt.Sprintf("Latest date: %s\n", latest.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Rows: %d\n", len(table.Records)))
	b.WriteString(fmt.Sprintf("Symbols: %d\n", len(table.Symbols())))
	return b.String()
}

func latestRecords(table model.EnrichedTable, latest time.Time) []model.EnrichedRecord {
	var recs []model.EnrichedRecord
	for _, r := range table.Records {
		if r.Date.Equal(latest) {
			recs = append(recs, r)
		}
	}
	return recs
}

func fmtMetric(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}

func fmtVolume(v int64) string {
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(v)/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("%.0fK", float64(v)/1_000)
	default:
		return fmt.Sprintf("%d", v)
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return -1
	}
	return *v
}
