// Package schedule turns the hourly power-state codes published for a group
// into merged on/off periods.
package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrScheduleDataMissing means the document has no slice for the requested
// day or group. It is never reported as an empty (all-powered) schedule.
var ErrScheduleDataMissing = errors.New("schedule data missing")

// State is a per-hour power-state code as published upstream.
type State string

const (
	On  State = "yes"
	Off State = "no"
	// HalfOn: power during the first half of the hour, outage in the second.
	HalfOn State = "second"
	// HalfOff: outage during the first half of the hour, power in the second.
	HalfOff State = "first"
)

// UnmarshalJSON keeps string codes as published. Any other JSON value
// decodes to the empty (unknown) state so one bad hour never fails the day.
func (s *State) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		*s = ""
		return nil
	}
	*s = State(v)
	return nil
}

func (s State) Known() bool {
	switch s {
	case On, Off, HalfOn, HalfOff:
		return true
	}
	return false
}

// Hours maps the 1-based hour index ("1".."24") to its state. Hour key h+1
// describes the clock hour starting at h:00.
type Hours map[string]State

// Table is the published document body: day key -> group key -> hours.
type Table map[string]map[string]Hours

// Period is a maximal interval of uniform power state. Begin and End are
// zero-padded "HH:MM"; the end of the day is "24:00".
type Period struct {
	Begin string `json:"begin"`
	End   string `json:"end"`
	Power bool   `json:"power"`
}

func (p Period) String() string {
	state := "off"
	if p.Power {
		state = "on"
	}
	return fmt.Sprintf("%s-%s %s", p.Begin, p.End, state)
}

// Schedule is the ordered list of periods for one day and group.
// Touching periods never share the same Power value.
type Schedule []Period

// HasOutages reports whether any period is without power.
func (s Schedule) HasOutages() bool {
	for _, p := range s {
		if !p.Power {
			return true
		}
	}
	return false
}

// Outages returns only the periods without power.
func (s Schedule) Outages() Schedule {
	out := make(Schedule, 0, len(s))
	for _, p := range s {
		if !p.Power {
			out = append(out, p)
		}
	}
	return out
}
