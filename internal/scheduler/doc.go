// Package scheduler triggers the daemon's runs from a cron expression or a
// fixed interval. Overlapping triggers are skipped while a run is active.
package scheduler
