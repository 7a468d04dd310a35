package recorder

// RefreshSnapshot summarizes one scheduled dataset rebuild.
type RefreshSnapshot struct {
	DaysRequested int
	DaysFound     int
	Rows          int
	Symbols       int
	LatestDate    string // YYYYMMDD, empty when no data was available
	Alerts        int
}

// VolumeAlert records one unusual-activity hit on the most recent date.
type VolumeAlert struct {
	Date           string // YYYYMMDD
	Symbol         string
	TotalVolume    int64
	BuyVolume      int64
	DPIndex        float64
	RelativeVolume float64
}

// Recorder persists surveillance history for later analysis.
type Recorder interface {
	RecordRefresh(snap *RefreshSnapshot) error
	RecordAlert(evt *VolumeAlert) error
	Close() error
}
