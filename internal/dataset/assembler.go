package dataset

import (
	"context"
	"log"
	"time"

	"DarkPoolSentinel/internal/cache"
	"DarkPoolSentinel/internal/calendar"
	"DarkPoolSentinel/internal/fetcher"
	"DarkPoolSentinel/internal/model"
)

// Assembler stitches per-day feed tables into a multi-day window. Per-day
// results, unavailable days included, go through a shared TTL cache so an
// unpublished "today" file is retried after the TTL rather than on every
// interaction.
type Assembler struct {
	fetcher      fetcher.Fetcher
	days         *cache.Store[*model.DailyTable]
	dailyTTL     time.Duration
	isTradingDay calendar.Predicate
}

// NewAssembler creates an assembler. A nil predicate means weekday-only.
func NewAssembler(f fetcher.Fetcher, days *cache.Store[*model.DailyTable], dailyTTL time.Duration, isTradingDay calendar.Predicate) *Assembler {
	return &Assembler{
		fetcher:      f,
		days:         days,
		dailyTTL:     dailyTTL,
		isTradingDay: isTradingDay,
	}
}

// Assemble probes candidate trading dates backwards from ref until it has
// accumulated targetDays populated daily tables or maxProbe candidates have
// been tried, whichever comes first. The probe budget bounds worst-case
// network calls during long feed outages. It returns the concatenated
// table, the most recent populated date, and whether any day was found;
// ok=false is the explicit "no data yet" state, not a fault.
func (a *Assembler) Assemble(ctx context.Context, ref time.Time, targetDays, maxProbe int) (model.CombinedTable, time.Time, bool) {
	var combined model.CombinedTable
	var latest time.Time
	found := 0

	probe := calendar.NewProbe(ref, maxProbe, a.isTradingDay)
	for found < targetDays {
		day, ok := probe.Next()
		if !ok {
			break
		}
		table := a.fetchDay(ctx, day)
		if table.Empty() {
			continue
		}
		combined.Append(table)
		if latest.IsZero() {
			// Candidates are descending, so the first populated day wins.
			latest = table.Date
		}
		found++
	}

	if found < targetDays {
		log.Printf("[INFO] assembled %d/%d days within probe budget %d", found, targetDays, maxProbe)
	}
	return combined, latest, found > 0
}

func (a *Assembler) fetchDay(ctx context.Context, day time.Time) *model.DailyTable {
	key := day.Format(fetcher.DateCode)
	table, err := a.days.GetOrCompute(key, a.dailyTTL, func() (*model.DailyTable, error) {
		t := a.fetcher.FetchDay(ctx, day)
		if t == nil && ctx.Err() != nil {
			// A cancelled fetch says nothing about the feed; do not pin
			// "unavailable" for the whole TTL.
			return nil, ctx.Err()
		}
		return t, nil
	})
	if err != nil {
		return nil
	}
	return table
}
