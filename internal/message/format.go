// Package message renders a day's schedule as the Telegram notification text.
package message

import (
	"time"

	"outagebot/internal/schedule"
)

const (
	header       = "⚡️ "
	headerText   = "Графік відключень на сьогодні:"
	outageIcon   = "🪫 "
	poweredIcon  = "🔋 "
	noDataText   = "🤷 "
	noDataLabel  = "Даних на сьогодні немає"
	updatedIcon  = "🔄 "
	generatedIcn = "💬 "

	// GeneratedLayout renders the generation time like "19.10.2026 14:05:03".
	GeneratedLayout = "02.01.2006 15:04:05"
)

// Format builds the message for s. When the day has outages only the outage
// periods are listed; otherwise every (powered) period is.
//
// update is the upstream document's own update marker; now must already be in
// the schedule's civil timezone.
func Format(s schedule.Schedule, update string, now time.Time) string {
	lines := make([]h, 0, len(s)+5)
	lines = append(lines, h(header)+bold(headerText))

	icon, periods := poweredIcon, s
	if s.HasOutages() {
		icon, periods = outageIcon, s.Outages()
	}
	if len(periods) == 0 {
		lines = append(lines, h(noDataText)+italic(noDataLabel))
	}
	for _, p := range periods {
		lines = append(lines, h(icon)+code(p.Begin+" — "+p.End))
	}

	// A single empty line separates the footer.
	lines = append(lines,
		"",
		h(updatedIcon)+italic(update),
		h(generatedIcn)+italic(now.Format(GeneratedLayout)),
	)
	return joinLines(lines...)
}
