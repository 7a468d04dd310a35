package metrics

import (
	"math"

	"DarkPoolSentinel/internal/model"
)

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

// volumeSplitStage derives the buy/sell split. Buy volume approximates
// off-exchange activity: short plus short-exempt. SellVolume is a plain
// difference and can go negative on a malformed feed row; it is passed
// through rather than clamped so the anomaly stays visible downstream.
func volumeSplitStage() Stage {
	return Stage{
		Name:     "volume-split",
		Reads:    []string{ColShortVolume, ColShortExemptVolume, ColTotalVolume},
		Produces: []string{ColBuyVolume, ColSellVolume},
		Apply: func(recs []model.EnrichedRecord) []model.EnrichedRecord {
			for i := range recs {
				r := &recs[i]
				r.BuyVolume = r.ShortVolume + r.ShortExemptVolume
				r.SellVolume = r.TotalVolume - r.BuyVolume
			}
			return recs
		},
	}
}

// ratioStage derives the buy/short ratio and the dark-pool participation
// ratio. A zero denominator leaves the metric nil: the ratio is undefined,
// which is not the same as zero.
func ratioStage() Stage {
	return Stage{
		Name:     "ratios",
		Reads:    []string{ColBuyVolume, ColShortVolume, ColTotalVolume},
		Produces: []string{ColBSRatio, ColDPRatio, ColDPIndex},
		Apply: func(recs []model.EnrichedRecord) []model.EnrichedRecord {
			for i := range recs {
				r := &recs[i]
				if r.ShortVolume > 0 {
					v := round(float64(r.BuyVolume)/float64(r.ShortVolume), 3)
					r.BSRatio = &v
				}
				if r.TotalVolume > 0 {
					ratio := float64(r.BuyVolume) / float64(r.TotalVolume)
					idx := round(ratio*100, 1)
					r.DPRatio = &ratio
					r.DPIndex = &idx
				}
			}
			return recs
		},
	}
}

// noiseFilterStage drops low-liquidity rows after all metrics are computed.
func noiseFilterStage(th Thresholds) Stage {
	return Stage{
		Name:  "noise-filter",
		Reads: []string{ColTotalVolume, ColBuyVolume},
		Apply: func(recs []model.EnrichedRecord) []model.EnrichedRecord {
			kept := make([]model.EnrichedRecord, 0, len(recs))
			for _, r := range recs {
				if r.TotalVolume < th.MinTotalVolume && r.BuyVolume < th.MinBuyVolume {
					continue
				}
				kept = append(kept, r)
			}
			return kept
		},
	}
}
