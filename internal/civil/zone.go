// Package civil answers "what day/time is it" in the schedule's timezone.
//
// Every "today", night-window and message-day comparison goes through Zone so
// that day boundaries are computed on civil dates, never on formatted strings.
package civil

import (
	"fmt"
	"strings"
	"time"

	// Embedded zone database: minimal containers ship without /usr/share/zoneinfo.
	_ "time/tzdata"
)

const DefaultTimezone = "Europe/Kyiv"

// Date is a calendar day without a time-of-day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Before reports whether d is a strictly earlier day than o.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Window is a half-open hour range [Start, End) within a day.
// Start > End wraps around midnight.
type Window struct {
	Start int
	End   int
}

// NightWindow is the range during which deliveries are silent.
var NightWindow = Window{Start: 0, End: 8}

func (w Window) Contains(hour int) bool {
	if w.Start == w.End {
		return false
	}
	if w.Start < w.End {
		return hour >= w.Start && hour < w.End
	}
	return hour >= w.Start || hour < w.End
}

// Zone is the civil clock of the target timezone.
type Zone struct {
	loc   *time.Location
	now   func() time.Time
	night Window
}

type Option func(*Zone)

// WithClock replaces time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(z *Zone) {
		if now != nil {
			z.now = now
		}
	}
}

func WithNightWindow(w Window) Option { return func(z *Zone) { z.night = w } }

// Load resolves name with time.LoadLocation. An empty name selects DefaultTimezone.
func Load(name string, opts ...Option) (*Zone, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", name, err)
	}
	return New(loc, opts...), nil
}

func New(loc *time.Location, opts ...Option) *Zone {
	if loc == nil {
		loc = time.UTC
	}
	z := &Zone{loc: loc, now: time.Now, night: NightWindow}
	for _, o := range opts {
		o(z)
	}
	return z
}

func (z *Zone) Location() *time.Location { return z.loc }

// Now returns the current instant expressed in the zone.
func (z *Zone) Now() time.Time { return z.now().In(z.loc) }

func (z *Zone) Today() Date { return DateOf(z.Now()) }

// DayOf returns the civil date of a unix timestamp (seconds).
func (z *Zone) DayOf(unix int64) Date { return DateOf(time.Unix(unix, 0).In(z.loc)) }

// IsNight reports whether the current local hour falls in the night window.
func (z *Zone) IsNight() bool { return z.night.Contains(z.Now().Hour()) }
