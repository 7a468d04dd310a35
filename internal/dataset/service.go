package dataset

import (
	"context"
	"fmt"
	"time"

	"DarkPoolSentinel/internal/cache"
	"DarkPoolSentinel/internal/metrics"
	"DarkPoolSentinel/internal/model"
)

// Service is the top-level load entry point: assemble a lookback window,
// run it through the metrics engine, and cache the whole result keyed by
// the lookback width.
type Service struct {
	assembler *Assembler
	engine    *metrics.Engine
	datasets  *cache.Store[loadResult]
	ttl       time.Duration
	now       func() time.Time
}

type loadResult struct {
	table  model.EnrichedTable
	latest time.Time
	ok     bool
}

// NewService creates a Service.
func NewService(a *Assembler, e *metrics.Engine, datasetTTL time.Duration) *Service {
	return &Service{
		assembler: a,
		engine:    e,
		datasets:  cache.New[loadResult](),
		ttl:       datasetTTL,
		now:       time.Now,
	}
}

// probeBudget scales the candidate budget with the requested lookback: not
// every weekday yields a file (holidays, late publication, outages), so the
// budget is a larger quantity than the target count.
func probeBudget(daysBack int) int {
	return daysBack + daysBack/2 + 5
}

// Load returns the enriched dataset covering the last daysBack populated
// trading days, plus the most recent date present. ok is false when nothing
// could be fetched; callers treat that as "not ready yet", not a fault.
func (s *Service) Load(ctx context.Context, daysBack int) (model.EnrichedTable, time.Time, bool) {
	if daysBack <= 0 {
		daysBack = 1
	}
	res, _ := s.datasets.GetOrCompute(datasetKey(daysBack), s.ttl, func() (loadResult, error) {
		combined, latest, ok := s.assembler.Assemble(ctx, s.now(), daysBack, probeBudget(daysBack))
		if !ok {
			return loadResult{}, nil
		}
		return loadResult{table: s.engine.Enrich(combined), latest: latest, ok: true}, nil
	})
	return res.table, res.latest, res.ok
}

// Refresh drops the cached dataset for daysBack and rebuilds it. Per-day
// fetch results keep their own TTL.
func (s *Service) Refresh(ctx context.Context, daysBack int) (model.EnrichedTable, time.Time, bool) {
	if daysBack <= 0 {
		daysBack = 1
	}
	s.datasets.Invalidate(datasetKey(daysBack))
	return s.Load(ctx, daysBack)
}

func datasetKey(daysBack int) string {
	return fmt.Sprintf("lookback:%d", daysBack)
}
