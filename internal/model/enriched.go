package model

import "sort"

// EnrichedRecord is a DailyRecord plus all derived surveillance metrics.
// Ratio fields are nil when the denominator is zero: an undefined ratio is
// not the same thing as zero dark-pool activity.
type EnrichedRecord struct {
	DailyRecord
	BuyVolume      int64    `json:"BuyVolume"`
	SellVolume     int64    `json:"SellVolume"`
	BSRatio        *float64 `json:"BS_Ratio"`
	DPRatio        *float64 `json:"DP_Ratio"`
	DPIndex        *float64 `json:"DP_Index"`
	Avg10dVolume   float64  `json:"Avg10d_Volume"`
	RelativeVolume *float64 `json:"Relative_Volume"`
}

// EnrichedTable is the final output of the metrics pipeline, sorted by
// (Symbol, Date), with low-liquidity noise already filtered out.
type EnrichedTable struct {
	Records []EnrichedRecord
}

// Empty reports whether the table has no rows.
func (t *EnrichedTable) Empty() bool {
	return t == nil || len(t.Records) == 0
}

// Symbols returns the distinct symbols present, sorted. This feeds the
// market-capitalization lookup.
func (t *EnrichedTable) Symbols() []string {
	seen := make(map[string]bool, len(t.Records))
	var symbols []string
	for _, r := range t.Records {
		if !seen[r.Symbol] {
			seen[r.Symbol] = true
			symbols = append(symbols, r.Symbol)
		}
	}
	sort.Strings(symbols)
	return symbols
}
