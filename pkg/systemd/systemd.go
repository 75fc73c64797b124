// Package systemd reports service state to systemd (Type=notify units).
// Every call is a no-op when the process was not started by systemd.
package systemd

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "outagebot/pkg/logx"
)

const (
	Ready    = daemon.SdNotifyReady
	Stopping = daemon.SdNotifyStopping
	Watchdog = daemon.SdNotifyWatchdog
)

// Notifier sends one state string such as Ready.
type Notifier func(state string)

// NewNotifier returns a Notifier that logs failures instead of returning them.
func NewNotifier(log logx.Logger) Notifier {
	if log.IsZero() {
		log = logx.Nop()
	}
	return func(state string) {
		sent, err := daemon.SdNotify(false, state)
		switch {
		case err != nil:
			log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
		case sent:
			log.Debug("sd_notify sent", logx.String("state", state))
		}
	}
}

// WatchdogInterval is the ping interval systemd expects, or 0 when the
// watchdog is off.
func WatchdogInterval() time.Duration {
	d, err := daemon.SdWatchdogEnabled(false)
	if err != nil || d <= 0 {
		return 0
	}
	return d / 2
}

// RunWatchdog pings every interval until ctx is done. interval <= 0 returns
// immediately.
func RunWatchdog(ctx context.Context, interval time.Duration, notify Notifier) {
	if interval <= 0 || notify == nil {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			notify(Watchdog)
		}
	}
}
