package notifier

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DarkPoolSentinel/internal/model"
)

var nov10 = time.Date(2023, 11, 10, 0, 0, 0, 0, time.UTC)

func enriched(sym string, relVol, dpIdx *float64) model.EnrichedRecord {
	return model.EnrichedRecord{
		DailyRecord:    model.DailyRecord{Symbol: sym, TotalVolume: 1_500_000, Date: nov10},
		BuyVolume:      750_000,
		RelativeVolume: relVol,
		DPIndex:        dpIdx,
	}
}

func f(v float64) *float64 { return &v }

func TestFormatTopMoversRanksByRelativeVolume(t *testing.T) {
	table := model.EnrichedTable{Records: []model.EnrichedRecord{
		enriched("LOW", f(1.1), f(40)),
		enriched("HIGH", f(4.5), f(60)),
		enriched("MID", f(2.0), f(50)),
	}}
	out := FormatTopMovers(table, nov10, 2)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2, "topN caps the listing")
	assert.Contains(t, lines[0], "HIGH")
	assert.Contains(t, lines[1], "MID")
}

func TestFormatTopMoversRendersUndefinedMetrics(t *testing.T) {
	table := model.EnrichedTable{Records: []model.EnrichedRecord{
		enriched("XYZ", nil, nil),
	}}
	out := FormatTopMovers(table, nov10, 5)
	assert.Contains(t, out, "n/a", "undefined ratios must not render as zero")
}

func TestFormatTopMoversIgnoresOlderDates(t *testing.T) {
	old := enriched("OLD", f(9.9), f(90))
	old.Date = nov10.AddDate(0, 0, -1)
	table := model.EnrichedTable{Records: []model.EnrichedRecord{old}}

	assert.Contains(t, FormatTopMovers(table, nov10, 5), "(no records)")
}

func TestFormatStatus(t *testing.T) {
	assert.Contains(t, FormatStatus(model.EnrichedTable{}, time.Time{}, false), "No data yet")

	table := model.EnrichedTable{Records: []model.EnrichedRecord{enriched("XYZ", f(1.0), f(50))}}
	out := FormatStatus(table, nov10, true)
	assert.Contains(t, out, "2023-11-10")
	assert.Contains(t, out, "Rows: 1")
	assert.Contains(t, out, "Symbols: 1")
}

func TestFormatDailyReportListsAlerts(t *testing.T) {
	table := model.EnrichedTable{Records: []model.EnrichedRecord{
		enriched("XYZ", f(3.5), f(62.5)),
	}}
	out := FormatDailyReport(table, nov10, table.Records, 5)

	assert.Contains(t, out, "Unusual activity (1)")
	assert.Contains(t, out, "XYZ")
	assert.Contains(t, out, "3.50")
	assert.Contains(t, out, "62.5")
}
