package storage

import (
	"context"
	"errors"
	"strings"

	"outagebot/internal/civil"
	"outagebot/internal/transport"
	logx "outagebot/pkg/logx"
)

// Open initializes the configured store. zone decides which references are
// stale.
func Open(cfg Config, zone *civil.Zone, log logx.Logger) (MessageStore, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	if zone == nil {
		return nil, errors.New("storage: civil zone is required")
	}

	var (
		inner MessageStore
		err   error
	)
	switch driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver {
	case "", "file", "json":
		inner, err = openFile(cfg, log)
	case "sqlite", "sqlite3":
		inner, err = openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
	if err != nil {
		return nil, err
	}
	return &dayScoped{MessageStore: inner, zone: zone, log: log}, nil
}

// dayScoped drops references sent before today.
type dayScoped struct {
	MessageStore
	zone *civil.Zone
	log  logx.Logger
}

func (s *dayScoped) Load(ctx context.Context) (transport.MessageRef, bool, error) {
	ref, ok, err := s.MessageStore.Load(ctx)
	if err != nil || !ok {
		return ref, ok, err
	}
	if ref.Date > 0 && s.zone.DayOf(ref.Date).Before(s.zone.Today()) {
		s.log.Info("stored message is from a previous day; starting a new one",
			logx.Int("message_id", ref.MessageID),
			logx.String("message_day", s.zone.DayOf(ref.Date).String()),
		)
		if err := s.MessageStore.Delete(ctx); err != nil {
			return transport.MessageRef{}, false, err
		}
		return transport.MessageRef{}, false, nil
	}
	return ref, true, nil
}
