package storage

import (
	"context"
	"time"

	"outagebot/internal/transport"
)

const DefaultPath = "artifacts/last-message.json"

// Config configures storage.
//
// Driver values: "file" (default) or "sqlite".
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// MessageStore holds at most one message reference.
type MessageStore interface {
	// Load returns the stored reference; ok is false when there is none.
	Load(ctx context.Context) (ref transport.MessageRef, ok bool, err error)
	// Save overwrites any stored reference.
	Save(ctx context.Context, ref transport.MessageRef) error
	// Delete removes the stored reference. Deleting nothing is not an error.
	Delete(ctx context.Context) error
	Close() error
}
