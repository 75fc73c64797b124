package config

import (
	"fmt"
	"strings"
	"time"

	"outagebot/internal/civil"
	logx "outagebot/pkg/logx"
)

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return ErrMissingToken
	}
	if c.Telegram.ChatID == 0 {
		return ErrMissingChatID
	}
	if strings.TrimSpace(c.Source.Group) == "" {
		return ErrMissingGroup
	}

	if !logx.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}
	if t := c.Logging.Telegram; t.MinLevel != "" && !logx.ValidLevel(t.MinLevel) {
		return fmt.Errorf("logging.telegram.min_level: unknown level %q", t.MinLevel)
	}
	if c.Logging.Telegram.Enabled && c.Telegram.GroupLog == 0 {
		return fmt.Errorf("logging.telegram: telegram.group_log is required")
	}

	switch strings.ToLower(c.Source.Driver) {
	case "browser", "http":
	default:
		return fmt.Errorf("source.driver: unknown driver %q", c.Source.Driver)
	}
	if !strings.HasPrefix(c.Source.URL, "http://") && !strings.HasPrefix(c.Source.URL, "https://") {
		return fmt.Errorf("source.url: %q is not an http(s) URL", c.Source.URL)
	}
	if c.Source.Retries != nil && *c.Source.Retries < 0 {
		return fmt.Errorf("source.retries: must be >= 0")
	}
	if c.Delivery.Retries != nil && *c.Delivery.Retries < 0 {
		return fmt.Errorf("delivery.retries: must be >= 0")
	}
	if h := c.Delivery.NightStart; h != nil && (*h < 0 || *h > 23) {
		return fmt.Errorf("delivery.night_start: hour %d out of range 0..23", *h)
	}
	if h := c.Delivery.NightEnd; h != nil && (*h < 0 || *h > 24) {
		return fmt.Errorf("delivery.night_end: hour %d out of range 0..24", *h)
	}

	for _, f := range []struct{ path, raw string }{
		{"telegram.request_timeout", c.Telegram.RequestTimeout},
		{"source.retry_delay", c.Source.RetryDelay},
		{"source.attempt_timeout", c.Source.AttemptTimeout},
		{"delivery.retry_delay", c.Delivery.RetryDelay},
		{"delivery.attempt_timeout", c.Delivery.AttemptTimeout},
		{"storage.busy_timeout", c.Storage.BusyTimeout},
	} {
		if _, err := ParseDurationField(f.path, f.raw); err != nil {
			return err
		}
	}

	switch strings.ToLower(c.Storage.Driver) {
	case "file", "json", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return fmt.Errorf("storage.path: required for driver %q", c.Storage.Driver)
	}

	if _, err := civil.Load(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("scheduler.timezone: %w", err)
	}
	return nil
}

// Durations below assume Validate passed; malformed values fall back to
// defaults.

func (s SourceConfig) RetryDelayOr(def time.Duration) time.Duration {
	d, _ := ParseDurationOrDefault("source.retry_delay", s.RetryDelay, def)
	return d
}

func (s SourceConfig) AttemptTimeoutOr(def time.Duration) time.Duration {
	d, _ := ParseDurationOrDefault("source.attempt_timeout", s.AttemptTimeout, def)
	return d
}

func (d DeliveryConfig) RetryDelayOr(def time.Duration) time.Duration {
	v, _ := ParseDurationOrDefault("delivery.retry_delay", d.RetryDelay, def)
	return v
}

func (d DeliveryConfig) AttemptTimeoutOr(def time.Duration) time.Duration {
	v, _ := ParseDurationOrDefault("delivery.attempt_timeout", d.AttemptTimeout, def)
	return v
}

// NightWindow is the silent-delivery window in the civil timezone.
func (d DeliveryConfig) NightWindow() civil.Window {
	w := civil.NightWindow
	if d.NightStart != nil {
		w.Start = *d.NightStart
	}
	if d.NightEnd != nil {
		w.End = *d.NightEnd
	}
	return w
}

func retries(p *int) int {
	if p == nil {
		return DefaultRetries
	}
	return *p
}

func (s SourceConfig) RetryCount() int   { return retries(s.Retries) }
func (d DeliveryConfig) RetryCount() int { return retries(d.Retries) }
