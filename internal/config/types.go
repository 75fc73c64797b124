package config

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrMissingToken  = errors.New("telegram bot token is not set (TELEGRAM_BOT_TOKEN or telegram.token)")
	ErrMissingChatID = errors.New("telegram chat id is not set (TELEGRAM_CHAT_ID or telegram.chat_id)")
	ErrMissingGroup  = errors.New("outage group is not set (GROUP or source.group)")
)

// Config is the on-disk configuration. All durations are Go duration
// strings ("500ms", "5s", "1m").
//
// Example (YAML):
//
//	telegram:
//	  chat_id: -1001234567890
//	source:
//	  group: "3.1"
//	scheduler:
//	  enabled: true
//	  schedule: "*/30 * * * *"
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Source    SourceConfig    `json:"source"`
	Delivery  DeliveryConfig  `json:"delivery"`
	Storage   StorageConfig   `json:"storage"`
	Scheduler SchedulerConfig `json:"scheduler"`
}

type TelegramConfig struct {
	Token    string `json:"token,omitempty"`
	ChatID   int64  `json:"chat_id,omitempty"`
	ThreadID int    `json:"thread_id,omitempty"`
	// GroupLog is the chat that receives forwarded log lines (logging.telegram).
	GroupLog       int64  `json:"group_log,omitempty"`
	APIURL         string `json:"api_url,omitempty"`
	RequestTimeout string `json:"request_timeout,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ThreadID   int    `json:"thread_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// SourceConfig describes where the schedule page lives and how it is fetched.
//
// Driver values: "browser" (headless Chrome, default) or "http".
type SourceConfig struct {
	URL            string `json:"url,omitempty"`
	Marker         string `json:"marker,omitempty"`
	GroupPrefix    string `json:"group_prefix,omitempty"`
	Group          string `json:"group,omitempty"`
	Driver         string `json:"driver,omitempty"`
	Retries        *int   `json:"retries,omitempty"`
	RetryDelay     string `json:"retry_delay,omitempty"`
	AttemptTimeout string `json:"attempt_timeout,omitempty"`
	UserAgent      string `json:"user_agent,omitempty"`
	ChromePath     string `json:"chrome_path,omitempty"`
}

// GroupKey is the key of the configured group inside the schedule table.
func (s SourceConfig) GroupKey() string {
	return s.GroupPrefix + strings.TrimSpace(s.Group)
}

// DeliveryConfig controls the message upsert loop. Messages sent during the
// night window [night_start, night_end) are silent.
type DeliveryConfig struct {
	Retries        *int   `json:"retries,omitempty"`
	RetryDelay     string `json:"retry_delay,omitempty"`
	AttemptTimeout string `json:"attempt_timeout,omitempty"`
	NightStart     *int   `json:"night_start,omitempty"`
	NightEnd       *int   `json:"night_end,omitempty"`
}

// StorageConfig selects the message-state store.
//
//	"storage": { "driver": "sqlite", "path": "./artifacts/state.db" }
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite
}

// SchedulerConfig turns the process into a daemon that runs on a schedule.
// Timezone is also the civil timezone of the schedule itself.
type SchedulerConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

const (
	DefaultSourceURL   = "https://www.dtek-krem.com.ua/ua/shutdowns"
	DefaultMarker      = "fact"
	DefaultGroupPrefix = "GPV"
	DefaultStatePath   = "artifacts/last-message.json"
	DefaultTimezone    = "Europe/Kyiv"
	DefaultSchedule    = "*/30 * * * *"
	DefaultRetries     = 5
	DefaultRetryDelay  = 5 * time.Second
	DefaultNightStart  = 0
	DefaultNightEnd    = 8
)

func intPtr(v int) *int { return &v }

// Default returns a config with every optional field filled in.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if !c.Logging.Console && !c.Logging.File.Enabled {
		c.Logging.Console = true
	}

	s := &c.Source
	if s.URL == "" {
		s.URL = DefaultSourceURL
	}
	if s.Marker == "" {
		s.Marker = DefaultMarker
	}
	if s.GroupPrefix == "" {
		s.GroupPrefix = DefaultGroupPrefix
	}
	if s.Driver == "" {
		s.Driver = "browser"
	}
	if s.Retries == nil {
		s.Retries = intPtr(DefaultRetries)
	}

	d := &c.Delivery
	if d.Retries == nil {
		d.Retries = intPtr(DefaultRetries)
	}
	if d.NightStart == nil {
		d.NightStart = intPtr(DefaultNightStart)
	}
	if d.NightEnd == nil {
		d.NightEnd = intPtr(DefaultNightEnd)
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = "file"
	}
	if c.Storage.Path == "" && c.Storage.Driver == "file" {
		c.Storage.Path = DefaultStatePath
	}

	if c.Scheduler.Schedule == "" {
		c.Scheduler.Schedule = DefaultSchedule
	}
	if c.Scheduler.Timezone == "" {
		c.Scheduler.Timezone = DefaultTimezone
	}
}
