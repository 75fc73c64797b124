package source

import (
	"errors"
	"testing"
	"time"

	"outagebot/internal/civil"
	"outagebot/internal/schedule"
)

const samplePage = `<html><head><script>
var other = {"a": 1};
DisconSchedule.fact = {"data":{"1760821200":{"GPV1.1":{"1":"yes","2":"no","3":"first"}}},"update":"19.10.2026 09:41","today":1760821200}
DisconSchedule.preset = {"sch_names":{}};
</script></head><body></body></html>`

func TestExtractNestedDocument(t *testing.T) {
	t.Parallel()
	doc, err := Extract(samplePage, "fact")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if doc.Update != "19.10.2026 09:41" || doc.Today != 1760821200 {
		t.Fatalf("unexpected document header: %+v", doc)
	}
	if got := doc.Data["1760821200"]["GPV1.1"]["3"]; got != schedule.HalfOff {
		t.Fatalf("hour 3 = %q, want %q", got, schedule.HalfOff)
	}
}

func TestExtractFlatDocument(t *testing.T) {
	t.Parallel()
	page := `<script>fact={"2026-10-19":{"GPV2.1":{"1":"yes"}},"update":"today 10:00"};</script>`
	doc, err := Extract(page, "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if doc.Update != "today 10:00" || doc.Today != 0 {
		t.Fatalf("unexpected document header: %+v", doc)
	}
	if doc.Data["2026-10-19"]["GPV2.1"]["1"] != schedule.On {
		t.Fatalf("unexpected data: %+v", doc.Data)
	}
}

func TestExtractNonStringHourCodes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		html string
		day  string
	}{
		{
			name: "nested",
			html: `<script>fact = {"data":{"100":{"GPV1.1":{"1":"yes","2":0,"3":"no","4":{"x":true}}}},"today":100,"update":"u"}</script>`,
			day:  "100",
		},
		{
			name: "flat",
			html: `<script>fact = {"2026-10-19":{"GPV1.1":{"1":"yes","2":0,"3":"no","4":false}},"update":"u"}</script>`,
			day:  "2026-10-19",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc, err := Extract(tt.html, "fact")
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			hours := doc.Data[tt.day]["GPV1.1"]
			if hours == nil {
				t.Fatalf("day %s missing: %+v", tt.day, doc.Data)
			}
			if hours["1"] != schedule.On || hours["3"] != schedule.Off {
				t.Fatalf("known codes lost: %+v", hours)
			}
			if hours["2"].Known() || hours["4"].Known() {
				t.Fatalf("non-string codes must be unknown: %+v", hours)
			}
			want := schedule.Schedule{
				{Begin: "00:00", End: "01:00", Power: true},
				{Begin: "02:00", End: "03:00", Power: false},
			}
			got := schedule.Build(hours)
			if len(got) != len(want) {
				t.Fatalf("Build = %v, want %v", got, want)
			}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("Build = %v, want %v", got, want)
				}
			}
		})
	}
}

func TestExtractFailures(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		html string
		want error
	}{
		{name: "no marker", html: "<html>nothing here</html>", want: ErrExtractionFailed},
		{name: "marker without object", html: "<script>fact = null;</script>", want: ErrExtractionFailed},
		{name: "similar identifier", html: `<script>artifact = {"update":"x"}</script>`, want: ErrExtractionFailed},
		{name: "broken json", html: `<script>fact = {"data": {"x": </script>`, want: ErrParseFailed},
		{name: "wrong shape", html: `<script>fact = {"data": [1,2,3]}</script>`, want: ErrParseFailed},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Extract(tt.html, "fact")
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDocumentDayKeyFallsBackToCivilDate(t *testing.T) {
	t.Parallel()
	loc, err := time.LoadLocation("Europe/Kyiv")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, loc)
	z := civil.New(loc, civil.WithClock(func() time.Time { return now }))

	if got := (&Document{Today: 1760821200}).DayKey(z); got != "1760821200" {
		t.Fatalf("DayKey with today = %q", got)
	}
	if got := (&Document{}).DayKey(z); got != "2026-10-19" {
		t.Fatalf("DayKey fallback = %q", got)
	}

	var nilDoc *Document
	if _, err := nilDoc.Schedule(z, "GPV1.1"); !errors.Is(err, schedule.ErrScheduleDataMissing) {
		t.Fatalf("nil document: err = %v", err)
	}
}
