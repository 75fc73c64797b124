package config

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	EnvToken    = "TELEGRAM_BOT_TOKEN"
	EnvChatID   = "TELEGRAM_CHAT_ID"
	EnvGroup    = "GROUP"
	EnvTimezone = "OUTAGEBOT_TIMEZONE"
)

// ApplyEnv overrides file values with non-empty environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		return nil
	}
	if v := strings.TrimSpace(getenv(EnvToken)); v != "" {
		c.Telegram.Token = v
	}
	if v := strings.TrimSpace(getenv(EnvChatID)); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: invalid chat id %q: %w", EnvChatID, v, err)
		}
		c.Telegram.ChatID = id
	}
	if v := strings.TrimSpace(getenv(EnvGroup)); v != "" {
		c.Source.Group = v
	}
	if v := strings.TrimSpace(getenv(EnvTimezone)); v != "" {
		c.Scheduler.Timezone = v
	}
	return nil
}
