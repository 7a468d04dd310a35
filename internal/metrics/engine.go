package metrics

import (
	"fmt"
	"sort"

	"DarkPoolSentinel/internal/model"
)

// Column names as they appear in reports and the HTTP API.
const (
	ColSymbol            = "Symbol"
	ColDate              = "Date"
	ColShortVolume       = "ShortVolume"
	ColShortExemptVolume = "ShortExemptVolume"
	ColTotalVolume       = "TotalVolume"
	ColBuyVolume         = "BuyVolume"
	ColSellVolume        = "SellVolume"
	ColBSRatio           = "BS_Ratio"
	ColDPRatio           = "DP_Ratio"
	ColDPIndex           = "DP_Index"
	ColAvg10dVolume      = "Avg10d_Volume"
	ColRelativeVolume    = "Relative_Volume"
)

// rawColumns are present before any stage runs.
var rawColumns = []string{ColSymbol, ColDate, ColShortVolume, ColShortExemptVolume, ColTotalVolume}

// Stage is one derived-column pass over the whole table. Reads must be raw
// feed columns or columns produced by an earlier stage; NewEngine enforces
// that, so the required computation order is a checked contract rather than
// a convention.
type Stage struct {
	Name     string
	Reads    []string
	Produces []string
	Apply    func(recs []model.EnrichedRecord) []model.EnrichedRecord
}

// Thresholds configures the noise filter. A record survives when it clears
// either threshold.
type Thresholds struct {
	MinTotalVolume int64
	MinBuyVolume   int64
}

// DefaultThresholds returns the standard low-liquidity cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{MinTotalVolume: 200_000, MinBuyVolume: 100_000}
}

// Engine applies the fixed sequence of derived-column stages.
type Engine struct {
	stages []Stage
}

// NewEngine builds the standard pipeline: volume split, ratios, rolling
// baseline, relative volume, then the noise filter.
func NewEngine(th Thresholds) *Engine {
	e := &Engine{stages: []Stage{
		volumeSplitStage(),
		ratioStage(),
		rollingBaselineStage(),
		relativeVolumeStage(),
		noiseFilterStage(th),
	}}
	// Stage wiring is static; a broken order is a programming error.
	if err := validateOrder(e.stages); err != nil {
		panic(err)
	}
	return e
}

// Enrich computes all derived columns over a combined table. It is a pure
// function of the raw columns plus sort order: the input is not mutated,
// records are copied, sorted by (Symbol, Date) and run through each stage
// in declaration order.
func (e *Engine) Enrich(combined model.CombinedTable) model.EnrichedTable {
	recs := make([]model.EnrichedRecord, len(combined.Records))
	for i, r := range combined.Records {
		recs[i] = model.EnrichedRecord{DailyRecord: r}
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Symbol != recs[j].Symbol {
			return recs[i].Symbol < recs[j].Symbol
		}
		return recs[i].Date.Before(recs[j].Date)
	})
	for _, st := range e.stages {
		recs = st.Apply(recs)
	}
	return model.EnrichedTable{Records: recs}
}

func validateOrder(stages []Stage) error {
	available := make(map[string]bool, len(rawColumns))
	for _, c := range rawColumns {
		available[c] = true
	}
	for _, st := range stages {
		for _, r := range st.Reads {
			if !available[r] {
				return fmt.Errorf("stage %q reads column %q before any stage produces it", st.Name, r)
			}
		}
		for _, p := range st.Produces {
			available[p] = true
		}
	}
	return nil
}
