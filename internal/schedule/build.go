package schedule

import (
	"fmt"
	"strconv"
)

const hoursPerDay = 24

// Build converts one group's hourly states into merged periods.
// Hours with an unknown or absent state contribute nothing, so the result may
// not cover the whole day.
func Build(hours Hours) Schedule {
	var b builder
	for h := 0; h < hoursPerDay; h++ {
		switch hours[strconv.Itoa(h+1)] {
		case On:
			b.add(clock(h, 0), clock(h+1, 0), true)
		case Off:
			b.add(clock(h, 0), clock(h+1, 0), false)
		case HalfOn:
			b.add(clock(h, 0), clock(h, 30), true)
			b.add(clock(h, 30), clock(h+1, 0), false)
		case HalfOff:
			b.add(clock(h, 0), clock(h, 30), false)
			b.add(clock(h, 30), clock(h+1, 0), true)
		}
	}
	return b.out
}

// ForGroup picks the day/group slice out of t and builds it.
func ForGroup(t Table, dayKey, group string) (Schedule, error) {
	groups, ok := t[dayKey]
	if !ok || groups == nil {
		return nil, fmt.Errorf("%w: no entry for day %q", ErrScheduleDataMissing, dayKey)
	}
	hours, ok := groups[group]
	if !ok || hours == nil {
		return nil, fmt.Errorf("%w: no entry for group %q on day %q", ErrScheduleDataMissing, group, dayKey)
	}
	return Build(hours), nil
}

// Unknown lists hour keys whose state is not one of the published codes.
func Unknown(hours Hours) []string {
	var out []string
	for h := 1; h <= hoursPerDay; h++ {
		k := strconv.Itoa(h)
		if !hours[k].Known() {
			out = append(out, k)
		}
	}
	return out
}

type builder struct {
	out Schedule
}

// add appends a period, extending the previous one instead when the power
// state is unchanged and the two touch. A skipped hour leaves a gap that is
// never bridged.
func (b *builder) add(begin, end string, power bool) {
	if n := len(b.out); n > 0 && b.out[n-1].Power == power && b.out[n-1].End == begin {
		b.out[n-1].End = end
		return
	}
	b.out = append(b.out, Period{Begin: begin, End: end, Power: power})
}

func clock(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}
