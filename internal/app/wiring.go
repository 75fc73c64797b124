package app

import (
	"os"
	"strings"
	"time"

	"outagebot/internal/config"
	"outagebot/internal/source"
	"outagebot/internal/source/browser"
	"outagebot/internal/storage"
	telegram "outagebot/internal/transport/telegram/adapter"
	logx "outagebot/pkg/logx"
)

func newBot(cfg *config.Config, log logx.Logger) (*telegram.Adapter, error) {
	timeout, _ := config.ParseDurationOrDefault("telegram.request_timeout", cfg.Telegram.RequestTimeout, 15*time.Second)
	return telegram.New(telegram.Config{
		Token:          cfg.Telegram.Token,
		APIURL:         cfg.Telegram.APIURL,
		RequestTimeout: timeout,
	}, log)
}

func newFetcher(sc config.SourceConfig) source.Fetcher {
	if strings.EqualFold(sc.Driver, "http") {
		return source.NewHTTPFetcher(sc.AttemptTimeoutOr(30*time.Second), sc.UserAgent)
	}
	return browser.New(browser.Config{
		ExecPath:  sc.ChromePath,
		UserAgent: sc.UserAgent,
		// Chrome refuses to sandbox as root (containers, CI).
		NoSandbox: os.Geteuid() == 0,
	})
}

func storageConfig(cfg *config.Config) (storage.Config, error) {
	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, nil
}

func logConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			ThreadID:   cfg.Logging.Telegram.ThreadID,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}
