// Package calendar provides business-day arithmetic over a jurisdiction
// holiday set.  Every due-date computation in the timetable engine routes
// through this package so that statutory deadlines always land on a business
// day.
package calendar

import (
	"sync"
	"time"
)

// Jurisdiction identifies a holiday calendar.
type Jurisdiction string

const (
	JurisdictionEnglandAndWales Jurisdiction = "england-and-wales"
	JurisdictionScotland        Jurisdiction = "scotland"
	JurisdictionNorthernIreland Jurisdiction = "northern-ireland"
)

// dayKey is the canonical date-only representation used for holiday lookups.
const dayKey = "2006-01-02"

// DateOnly truncates t to midnight UTC.  All calendar arithmetic operates on
// date-only values; callers may pass timestamps with any clock component.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Calendar answers business-day questions for a single jurisdiction.  The
// holiday set is replaceable at runtime (see SetHolidays); reads and writes
// are safe for concurrent use.
type Calendar struct {
	jurisdiction Jurisdiction

	mu       sync.RWMutex
	holidays map[string]struct{}
}

// New constructs a Calendar for the given jurisdiction with an initial
// holiday set.  The set may be empty; weekends are always non-business days.
func New(jurisdiction Jurisdiction, holidays []time.Time) *Calendar {
	c := &Calendar{
		jurisdiction: jurisdiction,
		holidays:     make(map[string]struct{}),
	}
	c.SetHolidays(holidays)
	return c
}

// Jurisdiction returns the jurisdiction this calendar serves.
func (c *Calendar) Jurisdiction() Jurisdiction {
	return c.jurisdiction
}

// SetHolidays atomically replaces the holiday set.  The refresher calls this
// whenever a feed fetch succeeds; in-flight computations keep the set they
// started with.
func (c *Calendar) SetHolidays(holidays []time.Time) {
	set := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		set[DateOnly(h).Format(dayKey)] = struct{}{}
	}
	c.mu.Lock()
	c.holidays = set
	c.mu.Unlock()
}

// Holidays returns a copy of the current holiday set.
func (c *Calendar) Holidays() []time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]time.Time, 0, len(c.holidays))
	for k := range c.holidays {
		d, err := time.Parse(dayKey, k)
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	return out
}

// IsBusinessDay reports whether d is a weekday that is not a configured
// holiday.
func (c *Calendar) IsBusinessDay(d time.Time) bool {
	d = DateOnly(d)
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	c.mu.RLock()
	_, holiday := c.holidays[d.Format(dayKey)]
	c.mu.RUnlock()
	return !holiday
}

// AddBusinessDays returns the date n business days after d.  The result is
// always a business day.  n == 0 is equivalent to NextBusinessDayOnOrAfter;
// negative n walks backwards.
func (c *Calendar) AddBusinessDays(d time.Time, n int) time.Time {
	d = DateOnly(d)
	if n == 0 {
		return c.NextBusinessDayOnOrAfter(d)
	}

	step := 1
	if n < 0 {
		step = -1
		n = -n
	}
	for n > 0 {
		d = d.AddDate(0, 0, step)
		if c.IsBusinessDay(d) {
			n--
		}
	}
	return d
}

// NextBusinessDayOnOrAfter returns d if d is a business day, otherwise the
// first business day after it.
func (c *Calendar) NextBusinessDayOnOrAfter(d time.Time) time.Time {
	d = DateOnly(d)
	for !c.IsBusinessDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// BusinessDaysBetween counts the business days in (from, to], useful for
// reporting how much statutory time remains.  Returns 0 when to <= from.
func (c *Calendar) BusinessDaysBetween(from, to time.Time) int {
	from = DateOnly(from)
	to = DateOnly(to)
	if !to.After(from) {
		return 0
	}
	count := 0
	for d := from.AddDate(0, 0, 1); !d.After(to); d = d.AddDate(0, 0, 1) {
		if c.IsBusinessDay(d) {
			count++
		}
	}
	return count
}
