package message

import (
	"strings"
	"testing"
	"time"

	"outagebot/internal/schedule"
)

var at = time.Date(2026, 10, 19, 14, 5, 3, 0, time.UTC)

func TestFormatListsOnlyOutages(t *testing.T) {
	t.Parallel()
	s := schedule.Schedule{
		{Begin: "00:00", End: "08:00", Power: true},
		{Begin: "08:00", End: "11:30", Power: false},
		{Begin: "11:30", End: "18:00", Power: true},
		{Begin: "18:00", End: "22:00", Power: false},
		{Begin: "22:00", End: "24:00", Power: true},
	}
	got := Format(s, "19.10.2026 09:41", at)
	want := strings.Join([]string{
		"⚡️ <b>Графік відключень на сьогодні:</b>",
		"🪫 <code>08:00 — 11:30</code>",
		"🪫 <code>18:00 — 22:00</code>",
		"",
		"🔄 <i>19.10.2026 09:41</i>",
		"💬 <i>19.10.2026 14:05:03</i>",
	}, "\n")
	if got != want {
		t.Fatalf("Format =\n%s\nwant\n%s", got, want)
	}
	if strings.Contains(got, "🔋") {
		t.Fatal("powered periods must not be listed when outages exist")
	}
}

func TestFormatListsPoweredWhenNoOutages(t *testing.T) {
	t.Parallel()
	s := schedule.Schedule{{Begin: "00:00", End: "24:00", Power: true}}
	got := Format(s, "u", at)
	if !strings.Contains(got, "🔋 <code>00:00 — 24:00</code>") {
		t.Fatalf("missing powered period:\n%s", got)
	}
	if strings.Contains(got, "🪫") {
		t.Fatalf("unexpected outage line:\n%s", got)
	}
}

func TestFormatEscapesUpdateMarker(t *testing.T) {
	t.Parallel()
	got := Format(nil, "<script>&", at)
	if !strings.Contains(got, "<i>&lt;script&gt;&amp;</i>") {
		t.Fatalf("update marker not escaped:\n%s", got)
	}
	if !strings.Contains(got, noDataLabel) {
		t.Fatalf("empty schedule should say so:\n%s", got)
	}
}
