package calendar

import "time"

// Predicate reports whether a date counts as a trading day.
type Predicate func(time.Time) bool

// Weekday is the default predicate: Monday through Friday. Market holidays
// are not excluded; on those days the feed simply publishes no file and the
// probe budget absorbs the miss.
func Weekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// Probe yields candidate trading dates in strictly descending order,
// starting at (or before) a reference date. It is lazy, finite and
// non-restartable: at most maxProbe dates come out, and consumption may
// stop early once the caller has what it needs.
type Probe struct {
	next         time.Time
	remaining    int
	isTradingDay Predicate
}

// NewProbe creates a probe over at most maxProbe trading dates at or
// before ref. A nil predicate means weekday-only.
func NewProbe(ref time.Time, maxProbe int, isTradingDay Predicate) *Probe {
	if isTradingDay == nil {
		isTradingDay = Weekday
	}
	return &Probe{next: ref, remaining: maxProbe, isTradingDay: isTradingDay}
}

// Next returns the next candidate date, or false when the probe budget is
// exhausted. Non-trading days are skipped without consuming budget.
func (p *Probe) Next() (time.Time, bool) {
	for p.remaining > 0 {
		d := p.next
		p.next = d.AddDate(0, 0, -1)
		if !p.isTradingDay(d) {
			continue
		}
		p.remaining--
		return d, true
	}
	return time.Time{}, false
}
