package fetcher

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"DarkPoolSentinel/internal/model"
)

// FinraFetcher downloads daily Reg SHO short-volume files from the FINRA
// CDN. The URL template carries a single %s placeholder for the 8-digit
// date code.
type FinraFetcher struct {
	URLTemplate string
	Client      *http.Client
}

// NewFinraFetcher creates a fetcher with a bounded timeout and optional proxy support.
func NewFinraFetcher(urlTemplate string, timeout time.Duration, proxyURL string) *FinraFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FinraFetcher{
		URLTemplate: urlTemplate,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

func (f *FinraFetcher) Name() string { return "finra" }

// FetchDay implements Fetcher. Every failure mode is logged and reported as
// "no data for this date"; the assembler just moves on to the next candidate.
func (f *FinraFetcher) FetchDay(ctx context.Context, day time.Time) *model.DailyTable {
	table, err := f.fetch(ctx, day)
	if err != nil {
		log.Printf("[WARN] fetch %s: %v", day.Format(DateCode), err)
		return nil
	}
	return table
}

func (f *FinraFetcher) fetch(ctx context.Context, day time.Time) (*model.DailyTable, error) {
	u := fmt.Sprintf(f.URLTemplate, day.Format(DateCode))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed: status %d", resp.StatusCode)
	}

	records, err := parsePipeTable(resp.Body, day)
	if err != nil {
		return nil, fmt.Errorf("feed parse: %w", err)
	}
	return &model.DailyTable{Date: day, Records: records}, nil
}

// parsePipeTable reads a pipe-delimited payload with a header row. Column
// positions come from the header; the Date field comes from the requested
// date, not the payload body. A payload with a valid header and no data
// rows parses to an empty, non-nil record set.
func parsePipeTable(r io.Reader, day time.Time) ([]model.DailyRecord, error) {
	cr := csv.NewReader(r)
	cr.Comma = '|'
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty payload")
	}
	if err != nil {
		return nil, err
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"Symbol", "ShortVolume", "ShortExemptVolume", "TotalVolume"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	records := []model.DailyRecord{}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) < len(header) {
			return nil, fmt.Errorf("line %d: expected %d fields, got %d", line, len(header), len(row))
		}
		rec := model.DailyRecord{
			Symbol: strings.TrimSpace(row[col["Symbol"]]),
			Date:   day,
		}
		if rec.ShortVolume, err = parseVolume(row[col["ShortVolume"]]); err != nil {
			return nil, fmt.Errorf("line %d: ShortVolume: %w", line, err)
		}
		if rec.ShortExemptVolume, err = parseVolume(row[col["ShortExemptVolume"]]); err != nil {
			return nil, fmt.Errorf("line %d: ShortExemptVolume: %w", line, err)
		}
		if rec.TotalVolume, err = parseVolume(row[col["TotalVolume"]]); err != nil {
			return nil, fmt.Errorf("line %d: TotalVolume: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseVolume(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}
