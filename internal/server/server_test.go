package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DarkPoolSentinel/internal/model"
)

type stubLoader struct {
	table    model.EnrichedTable
	latest   time.Time
	ok       bool
	lastDays int
}

func (s *stubLoader) Load(_ context.Context, daysBack int) (model.EnrichedTable, time.Time, bool) {
	s.lastDays = daysBack
	return s.table, s.latest, s.ok
}

type stubCaps struct {
	lastSymbols []string
}

func (s *stubCaps) Lookup(_ context.Context, symbols []string) map[string]float64 {
	s.lastSymbols = symbols
	caps := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		caps[sym] = 1.5
	}
	return caps
}

func newTestServer(loader *stubLoader, caps *stubCaps) *Server {
	return New(":0", loader, caps, 35)
}

func doGet(t *testing.T, h http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	s := newTestServer(&stubLoader{}, &stubCaps{})
	rec := doGet(t, s.Handler(), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestDataset(t *testing.T) {
	latest := time.Date(2023, 11, 10, 0, 0, 0, 0, time.UTC)
	loader := &stubLoader{
		table: model.EnrichedTable{Records: []model.EnrichedRecord{
			{DailyRecord: model.DailyRecord{Symbol: "XYZ", ShortVolume: 500, TotalVolume: 1000, Date: latest}},
		}},
		latest: latest,
		ok:     true,
	}
	s := newTestServer(loader, &stubCaps{})
	rec := doGet(t, s.Handler(), "/api/v1/dataset?days=5")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, loader.lastDays)

	var resp struct {
		Ready      bool                   `json:"ready"`
		LatestDate string                 `json:"latest_date"`
		Records    []model.EnrichedRecord `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Ready)
	assert.Equal(t, "2023-11-10", resp.LatestDate)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "XYZ", resp.Records[0].Symbol)
}

func TestDatasetDefaultDaysAndBadParam(t *testing.T) {
	loader := &stubLoader{}
	s := newTestServer(loader, &stubCaps{})

	doGet(t, s.Handler(), "/api/v1/dataset")
	assert.Equal(t, 35, loader.lastDays)

	doGet(t, s.Handler(), "/api/v1/dataset?days=junk")
	assert.Equal(t, 35, loader.lastDays)

	doGet(t, s.Handler(), "/api/v1/dataset?days=-3")
	assert.Equal(t, 35, loader.lastDays)
}

func TestDatasetNotReady(t *testing.T) {
	s := newTestServer(&stubLoader{}, &stubCaps{})
	rec := doGet(t, s.Handler(), "/api/v1/dataset")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ready":false,"records":[]}`, rec.Body.String())
}

func TestSymbols(t *testing.T) {
	date := time.Date(2023, 11, 10, 0, 0, 0, 0, time.UTC)
	loader := &stubLoader{
		table: model.EnrichedTable{Records: []model.EnrichedRecord{
			{DailyRecord: model.DailyRecord{Symbol: "BBB", Date: date}},
			{DailyRecord: model.DailyRecord{Symbol: "AAA", Date: date}},
			{DailyRecord: model.DailyRecord{Symbol: "AAA", Date: date}},
		}},
		ok: true,
	}
	s := newTestServer(loader, &stubCaps{})
	rec := doGet(t, s.Handler(), "/api/v1/symbols")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ready":true,"symbols":["AAA","BBB"]}`, rec.Body.String())
}

func TestDatasetFilters(t *testing.T) {
	latest := time.Date(2023, 11, 10, 0, 0, 0, 0, time.UTC)
	dp := func(v float64) *float64 { return &v }
	loader := &stubLoader{
		table: model.EnrichedTable{Records: []model.EnrichedRecord{
			{DailyRecord: model.DailyRecord{Symbol: "AAA", Date: latest}, DPIndex: dp(62.5)},
			{DailyRecord: model.DailyRecord{Symbol: "BBB", Date: latest}, DPIndex: dp(30.0)},
			{DailyRecord: model.DailyRecord{Symbol: "CCC", Date: latest}}, // undefined index
		}},
		latest: latest,
		ok:     true,
	}
	s := newTestServer(loader, &stubCaps{})

	symbolsOf := func(url string) []string {
		rec := doGet(t, s.Handler(), url)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Records []model.EnrichedRecord `json:"records"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		var syms []string
		for _, r := range resp.Records {
			syms = append(syms, r.Symbol)
		}
		return syms
	}

	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, symbolsOf("/api/v1/dataset"))
	assert.Equal(t, []string{"AAA"}, symbolsOf("/api/v1/dataset?min_dp=50"),
		"undefined index never clears a threshold")
	assert.Equal(t, []string{"BBB", "CCC"}, symbolsOf("/api/v1/dataset?symbols=bbb,%20ccc"))
	assert.Equal(t, []string{"BBB"}, symbolsOf("/api/v1/dataset?min_dp=25&symbols=BBB,CCC"))
	assert.Nil(t, symbolsOf("/api/v1/dataset?min_dp=99"), "a filter can leave nothing")
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, symbolsOf("/api/v1/dataset?min_dp=junk"),
		"an unparseable threshold is ignored")
}

func TestMarketCaps(t *testing.T) {
	caps := &stubCaps{}
	s := newTestServer(&stubLoader{}, caps)
	rec := doGet(t, s.Handler(), "/api/v1/marketcaps?symbols=aapl,%20msft,,")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"AAPL", "MSFT"}, caps.lastSymbols)
	assert.JSONEq(t, `{"caps":{"AAPL":1.5,"MSFT":1.5}}`, rec.Body.String())
}

func TestMarketCapsRequiresSymbols(t *testing.T) {
	s := newTestServer(&stubLoader{}, &stubCaps{})
	rec := doGet(t, s.Handler(), "/api/v1/marketcaps")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
