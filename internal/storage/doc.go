// Package storage persists the reference of the last delivered schedule
// message so later runs on the same day edit it instead of posting again.
//
// Drivers:
//   - "file": a single JSON object on disk (directory created on demand)
//   - "sqlite": a one-row table in a SQLite database
//
// Every driver is wrapped so that a reference from an earlier civil day is
// deleted and reported as absent.
package storage
