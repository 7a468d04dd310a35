package marketcap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"DarkPoolSentinel/internal/cache"
)

// batchSize caps symbols per request to stay under the provider's rate limit.
const batchSize = 100

// Service resolves market capitalizations via the Yahoo Finance quote API.
// Values are in billions of dollars, rounded to two decimals; symbols the
// provider does not know map to 0.
type Service struct {
	BaseURL string
	Client  *http.Client
	caps    *cache.Store[map[string]float64]
	ttl     time.Duration
}

// NewService creates a lookup service with optional proxy support.
func NewService(proxyURL string, ttl time.Duration) *Service {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &Service{
		BaseURL: "https://query1.finance.yahoo.com",
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		caps: cache.New[map[string]float64](),
		ttl:  ttl,
	}
}

// Lookup returns a capitalization for every requested symbol. Failed
// batches degrade to the 0 sentinel rather than erroring; market caps are
// decoration, not pipeline data.
func (s *Service) Lookup(ctx context.Context, symbols []string) map[string]float64 {
	caps := make(map[string]float64, len(symbols))
	for start := 0; start < len(symbols); start += batchSize {
		end := min(start+batchSize, len(symbols))
		batch := symbols[start:end]
		key := strings.Join(batch, ",")
		got, err := s.caps.GetOrCompute(key, s.ttl, func() (map[string]float64, error) {
			return s.fetchBatch(ctx, batch)
		})
		if err != nil {
			log.Printf("[WARN] market cap lookup (%d symbols): %v", len(batch), err)
			got = nil
		}
		for _, sym := range batch {
			caps[sym] = got[sym]
		}
	}
	return caps
}

// yahooQuote is the response envelope from the Yahoo quote API.
type yahooQuote struct {
	QuoteResponse struct {
		Result []struct {
			Symbol    string  `json:"symbol"`
			MarketCap float64 `json:"marketCap"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteResponse"`
}

func (s *Service) fetchBatch(ctx context.Context, symbols []string) (map[string]float64, error) {
	u := fmt.Sprintf("%s/v7/finance/quote?symbols=%s", s.BaseURL, url.QueryEscape(strings.Join(symbols, ",")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var quote yahooQuote
	if err := json.Unmarshal(body, &quote); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if quote.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", quote.QuoteResponse.Error.Description)
	}

	caps := make(map[string]float64, len(quote.QuoteResponse.Result))
	for _, r := range quote.QuoteResponse.Result {
		if r.MarketCap > 0 {
			caps[r.Symbol] = math.Round(r.MarketCap/1e9*100) / 100
		}
	}
	return caps, nil
}
