package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"DarkPoolSentinel/internal/model"
)

// DataLoader is the dataset boundary the API serves.
type DataLoader interface {
	Load(ctx context.Context, daysBack int) (model.EnrichedTable, time.Time, bool)
}

// CapLookup resolves market capitalizations for a set of symbols.
type CapLookup interface {
	Lookup(ctx context.Context, symbols []string) map[string]float64
}

// Server exposes the enriched dataset over a small JSON API.
type Server struct {
	router      *chi.Mux
	http        *http.Server
	data        DataLoader
	caps        CapLookup
	defaultDays int
}

// New creates the HTTP server.
func New(addr string, data DataLoader, caps CapLookup, defaultDays int) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		data:        data,
		caps:        caps,
		defaultDays: defaultDays,
	}

	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/dataset", s.handleDataset)
		r.Get("/symbols", s.handleSymbols)
		r.Get("/marketcaps", s.handleMarketCaps)
	})

	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	log.Printf("[INFO] http server listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type datasetResponse struct {
	Ready      bool                   `json:"ready"`
	LatestDate string                 `json:"latest_date,omitempty"`
	Records    []model.EnrichedRecord `json:"records"`
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	days := s.queryDays(r)
	table, latest, ok := s.data.Load(r.Context(), days)

	resp := datasetResponse{Ready: ok, Records: filterDataset(table.Records, r.URL.Query())}
	if resp.Records == nil {
		resp.Records = []model.EnrichedRecord{}
	}
	if ok {
		resp.LatestDate = latest.Format("2006-01-02")
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	days := s.queryDays(r)
	table, _, ok := s.data.Load(r.Context(), days)

	symbols := table.Symbols()
	if symbols == nil {
		symbols = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ready": ok, "symbols": symbols})
}

func (s *Server) handleMarketCaps(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("symbols"))
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "symbols query parameter is required"})
		return
	}
	var symbols []string
	for _, sym := range strings.Split(strings.ToUpper(raw), ",") {
		if sym = strings.TrimSpace(sym); sym != "" {
			symbols = append(symbols, sym)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"caps": s.caps.Lookup(r.Context(), symbols)})
}

// filterDataset applies the optional dataset query filters: min_dp keeps
// records whose dark-pool index is defined and at least the threshold,
// symbols keeps only the named tickers. No filters means the records pass
// through untouched.
func filterDataset(records []model.EnrichedRecord, q url.Values) []model.EnrichedRecord {
	minDP, hasMinDP := queryFloat(q, "min_dp")
	want := querySymbolSet(q)
	if !hasMinDP && want == nil {
		return records
	}
	kept := make([]model.EnrichedRecord, 0, len(records))
	for _, rec := range records {
		if hasMinDP && (rec.DPIndex == nil || *rec.DPIndex < minDP) {
			continue
		}
		if want != nil && !want[rec.Symbol] {
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}

func queryFloat(q url.Values, name string) (float64, bool) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func querySymbolSet(q url.Values) map[string]bool {
	raw := strings.TrimSpace(q.Get("symbols"))
	if raw == "" {
		return nil
	}
	want := make(map[string]bool)
	for _, sym := range strings.Split(strings.ToUpper(raw), ",") {
		if sym = strings.TrimSpace(sym); sym != "" {
			want[sym] = true
		}
	}
	return want
}

func (s *Server) queryDays(r *http.Request) int {
	days := s.defaultDays
	if v := r.URL.Query().Get("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}
	return days
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[ERROR] encode response: %v", err)
	}
}
