package metrics

import "DarkPoolSentinel/internal/model"

// baselineWindow is the rolling baseline size in observations, not calendar
// days: gaps in the feed shrink nothing, the window just reaches further back.
const baselineWindow = 10

// rollingBaselineStage computes the trailing mean of TotalVolume over the
// current and up to the previous 9 records for the same symbol (minimum one
// observation). Records must already be sorted by (Symbol, Date), which the
// engine guarantees before any stage runs.
func rollingBaselineStage() Stage {
	return Stage{
		Name:     "rolling-baseline",
		Reads:    []string{ColSymbol, ColDate, ColTotalVolume},
		Produces: []string{ColAvg10dVolume},
		Apply: func(recs []model.EnrichedRecord) []model.EnrichedRecord {
			i := 0
			for i < len(recs) {
				// One contiguous run per symbol.
				j := i
				for j < len(recs) && recs[j].Symbol == recs[i].Symbol {
					j++
				}
				var sum int64
				for k := i; k < j; k++ {
					sum += recs[k].TotalVolume
					if k-i >= baselineWindow {
						sum -= recs[k-baselineWindow].TotalVolume
					}
					n := k - i + 1
					if n > baselineWindow {
						n = baselineWindow
					}
					recs[k].Avg10dVolume = float64(sum) / float64(n)
				}
				i = j
			}
			return recs
		},
	}
}

// relativeVolumeStage normalizes a day's volume against the symbol's own
// rolling baseline. A zero baseline (all-zero volumes) leaves the signal
// undefined.
func relativeVolumeStage() Stage {
	return Stage{
		Name:     "relative-volume",
		Reads:    []string{ColTotalVolume, ColAvg10dVolume},
		Produces: []string{ColRelativeVolume},
		Apply: func(recs []model.EnrichedRecord) []model.EnrichedRecord {
			for i := range recs {
				r := &recs[i]
				if r.Avg10dVolume > 0 {
					v := round(float64(r.TotalVolume)/r.Avg10dVolume, 2)
					r.RelativeVolume = &v
				}
			}
			return recs
		},
	}
}
