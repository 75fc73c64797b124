package config

import (
	"reflect"

	logx "outagebot/pkg/logx"
)

// ChangeSummary describes a reload for logging. It never carries secrets.
type ChangeSummary struct {
	Sections []string
	Attrs    []logx.Field
	// NeedsRestart is set when a section changed that is only read at startup
	// (bot token, chat, storage, request settings).
	NeedsRestart bool
}

// SummarizeConfigChange compares two configs section by section.
func SummarizeConfigChange(oldCfg, newCfg *Config) ChangeSummary {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	var sum ChangeSummary

	if !reflect.DeepEqual(oldCfg.Telegram, newCfg.Telegram) {
		sum.Sections = append(sum.Sections, "telegram")
		sum.NeedsRestart = true
		sum.Attrs = append(sum.Attrs,
			logx.Bool("telegram.token_changed", oldCfg.Telegram.Token != newCfg.Telegram.Token),
			logx.Int64("telegram.chat_id", newCfg.Telegram.ChatID),
			logx.Bool("telegram.group_log_set", newCfg.Telegram.GroupLog != 0),
		)
	}
	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		sum.Sections = append(sum.Sections, "logging")
		sum.Attrs = append(sum.Attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}
	if !reflect.DeepEqual(oldCfg.Source, newCfg.Source) {
		sum.Sections = append(sum.Sections, "source")
		sum.Attrs = append(sum.Attrs,
			logx.String("source.url", newCfg.Source.URL),
			logx.String("source.driver", newCfg.Source.Driver),
			logx.String("source.group", newCfg.Source.GroupKey()),
			logx.Int("source.retries", newCfg.Source.RetryCount()),
		)
	}
	if !reflect.DeepEqual(oldCfg.Delivery, newCfg.Delivery) {
		sum.Sections = append(sum.Sections, "delivery")
		sum.Attrs = append(sum.Attrs, logx.Int("delivery.retries", newCfg.Delivery.RetryCount()))
	}
	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		sum.Sections = append(sum.Sections, "storage")
		sum.NeedsRestart = true
		sum.Attrs = append(sum.Attrs,
			logx.String("storage.driver", newCfg.Storage.Driver),
			logx.String("storage.path", newCfg.Storage.Path),
		)
	}
	if !reflect.DeepEqual(oldCfg.Scheduler, newCfg.Scheduler) {
		sum.Sections = append(sum.Sections, "scheduler")
		sum.NeedsRestart = sum.NeedsRestart || oldCfg.Scheduler.Enabled != newCfg.Scheduler.Enabled
		sum.Attrs = append(sum.Attrs,
			logx.Bool("scheduler.enabled", newCfg.Scheduler.Enabled),
			logx.String("scheduler.schedule", newCfg.Scheduler.Schedule),
			logx.String("scheduler.timezone", newCfg.Scheduler.Timezone),
		)
	}
	return sum
}
