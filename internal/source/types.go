package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"outagebot/internal/civil"
	"outagebot/internal/schedule"
)

var (
	ErrFetchFailed          = errors.New("fetch failed")
	ErrExtractionFailed     = errors.New("schedule data not found in page")
	ErrParseFailed          = errors.New("schedule data is not valid json")
	ErrAcquisitionAbandoned = errors.New("acquisition abandoned")
)

// Fetcher opens page sessions. Implementations must tolerate arbitrary markup;
// the only contract is "Content returns the final HTML after scripts ran".
type Fetcher interface {
	Launch(ctx context.Context) (Session, error)
}

type Session interface {
	// Load navigates to url and waits for the page to finish loading.
	Load(ctx context.Context, url string) error
	Content(ctx context.Context) (string, error)
	Close() error
}

// Document is the schedule document embedded in the page.
type Document struct {
	Data schedule.Table `json:"data"`
	// Update is the upstream "last updated" marker, shown verbatim.
	Update string `json:"update"`
	// Today is the unix timestamp used as the day key for the current day (0 if absent).
	Today int64 `json:"today"`
}

// UnmarshalJSON accepts both the nested form {"data": {...}, "update", "today"}
// and a flat form where day keys sit next to "update".
func (d *Document) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var out Document
	if v, ok := raw["update"]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &out.Update); err != nil {
			// Some publishers emit the marker as a number.
			out.Update = string(bytes.Trim(v, `"`))
		}
	}
	if v, ok := raw["today"]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &out.Today); err != nil {
			var s string
			if json.Unmarshal(v, &s) == nil {
				out.Today, _ = strconv.ParseInt(s, 10, 64)
			}
		}
	}
	if v, ok := raw["data"]; ok {
		if err := json.Unmarshal(v, &out.Data); err != nil {
			return err
		}
		*d = out
		return nil
	}

	out.Data = schedule.Table{}
	for k, v := range raw {
		if k == "update" || k == "today" {
			continue
		}
		var groups map[string]schedule.Hours
		if err := json.Unmarshal(v, &groups); err != nil {
			// Unrelated metadata fields are not day entries.
			continue
		}
		out.Data[k] = groups
	}
	*d = out
	return nil
}

func isNull(v json.RawMessage) bool { return string(bytes.TrimSpace(v)) == "null" }

// DayKey returns the key of the current day: the document's own "today"
// timestamp when published, otherwise the civil date in z.
func (d *Document) DayKey(z *civil.Zone) string {
	if d.Today > 0 {
		return strconv.FormatInt(d.Today, 10)
	}
	return z.Today().String()
}

// Schedule builds today's schedule for group.
func (d *Document) Schedule(z *civil.Zone, group string) (schedule.Schedule, error) {
	if d == nil {
		return nil, schedule.ErrScheduleDataMissing
	}
	return schedule.ForGroup(d.Data, d.DayKey(z), group)
}
