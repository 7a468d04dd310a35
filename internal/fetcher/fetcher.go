package fetcher

import (
	"context"
	"time"

	"DarkPoolSentinel/internal/model"
)

// DateCode is the 8-digit date layout embedded in feed URLs and cache keys.
const DateCode = "20060102"

// Fetcher defines the interface for retrieving one trading day's
// short-volume table.
type Fetcher interface {
	// FetchDay returns the table for the given date, or nil when the feed
	// has no data for it. It never fails past this boundary: transport
	// errors, non-200 responses and unparseable payloads all count as
	// "no data for this date".
	FetchDay(ctx context.Context, day time.Time) *model.DailyTable
	Name() string
}

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Tables map[string]*model.DailyTable // keyed by YYYYMMDD; missing keys are unavailable
	Calls  []string
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDay(_ context.Context, day time.Time) *model.DailyTable {
	key := day.Format(DateCode)
	m.Calls = append(m.Calls, key)
	return m.Tables[key]
}
