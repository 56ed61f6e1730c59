package clock

import (
	"fmt"
	"sync"
	"time"

	"gorm.io/datatypes"
)

// DefaultTimezone is the operating-day zone used when none is configured.
const DefaultTimezone = "Asia/Kolkata"

// Clock resolves "now" and "today" in one fixed civil timezone.
// All day-scoped logic must go through a Clock instead of calling time.Now directly.
type Clock interface {
	Now() time.Time
	Today() datatypes.Date
	Location() *time.Location
	// DayBounds returns the instants at which the civil day d starts and the next one starts.
	DayBounds(d datatypes.Date) (time.Time, time.Time)
}

type zoneClock struct {
	loc *time.Location
}

// New returns a Clock pinned to the given IANA timezone.
func New(tz string) (Clock, error) {
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	return &zoneClock{loc: loc}, nil
}

func (c *zoneClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c *zoneClock) Today() datatypes.Date {
	return DateOf(time.Now(), c.loc)
}

func (c *zoneClock) Location() *time.Location {
	return c.loc
}

func (c *zoneClock) DayBounds(d datatypes.Date) (time.Time, time.Time) {
	return dayBounds(d, c.loc)
}

// DateOf returns the civil date of instant t as observed in loc.
// The result holds midnight UTC of that calendar day so it never shifts when stored.
func DateOf(t time.Time, loc *time.Location) datatypes.Date {
	y, m, d := t.In(loc).Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// NewDate builds a civil date from its parts.
func NewDate(year int, month time.Month, day int) datatypes.Date {
	return datatypes.Date(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// SameDay reports whether a and b are the same calendar day.
func SameDay(a, b datatypes.Date) bool {
	ay, am, ad := time.Time(a).Date()
	by, bm, bd := time.Time(b).Date()
	return ay == by && am == bm && ad == bd
}

// Before reports whether civil date a precedes b.
func Before(a, b datatypes.Date) bool {
	ay, am, ad := time.Time(a).Date()
	by, bm, bd := time.Time(b).Date()
	return time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC).Before(time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC))
}

// Format renders a civil date as YYYY-MM-DD.
func Format(d datatypes.Date) string {
	return time.Time(d).Format("2006-01-02")
}

func dayBounds(d datatypes.Date, loc *time.Location) (time.Time, time.Time) {
	y, m, day := time.Time(d).Date()
	start := time.Date(y, m, day, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// Fixed is a settable Clock for tests and replays.
type Fixed struct {
	mu  sync.RWMutex
	now time.Time
	loc *time.Location
}

// NewFixed returns a Clock frozen at now, reporting civil dates in loc.
func NewFixed(now time.Time, loc *time.Location) *Fixed {
	if loc == nil {
		loc = time.UTC
	}
	return &Fixed{now: now, loc: loc}
}

// Set moves the clock to now.
func (f *Fixed) Set(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *Fixed) Now() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.now.In(f.loc)
}

func (f *Fixed) Today() datatypes.Date {
	return DateOf(f.Now(), f.loc)
}

func (f *Fixed) Location() *time.Location {
	return f.loc
}

func (f *Fixed) DayBounds(d datatypes.Date) (time.Time, time.Time) {
	return dayBounds(d, f.loc)
}
