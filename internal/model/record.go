package model

import "time"

// DailyRecord is one row of a single day's Reg SHO short-volume file.
// The Date field is attached by the fetcher from the requested date; the
// raw feed does not carry it in the body.
type DailyRecord struct {
	Symbol            string    `json:"Symbol"`
	ShortVolume       int64     `json:"ShortVolume"`
	ShortExemptVolume int64     `json:"ShortExemptVolume"`
	TotalVolume       int64     `json:"TotalVolume"`
	Date              time.Time `json:"Date"`
}

// DailyTable holds all records for exactly one date.
type DailyTable struct {
	Date    time.Time
	Records []DailyRecord
}

// Empty reports whether the table is nil or has no rows. A non-nil empty
// table means the feed published a file with no data rows; nil means the
// day was unavailable.
func (t *DailyTable) Empty() bool {
	return t == nil || len(t.Records) == 0
}

// CombinedTable is the concatenation of daily tables spanning possibly
// non-contiguous trading dates. Gaps occur when a day's fetch failed or
// the feed had no file.
type CombinedTable struct {
	Records []DailyRecord
}

// Append adds all records from a daily table.
func (c *CombinedTable) Append(t *DailyTable) {
	if t == nil {
		return
	}
	c.Records = append(c.Records, t.Records...)
}
