package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"outagebot/internal/config"
	"outagebot/internal/scheduler"
	logx "outagebot/pkg/logx"
	"outagebot/pkg/systemd"
)

const stopTimeout = 15 * time.Second

// serve runs the pipeline once immediately and then on every trigger until
// ctx is done. A trigger that fires while a run is active is skipped.
func (a *App) serve(ctx context.Context) error {
	cfg := a.config()
	sched, err := scheduler.New(cfg.Scheduler.Schedule, a.loc, a.runScheduled, a.log)
	if err != nil {
		return err
	}

	if a.cfgm != nil {
		a.cfgm.SetValidator(func(_ context.Context, c *config.Config) error {
			if err := c.Validate(); err != nil {
				return err
			}
			_, err := scheduler.ParseSchedule(c.Scheduler.Schedule)
			return err
		})
		sub := a.cfgm.Subscribe(4)
		a.sup.Go0("config.reload", func(c context.Context) {
			defer a.cfgm.Unsubscribe(sub)
			a.reloadLoop(c, sub, sched)
		})
		a.sup.GoRestart("config.watch", a.cfgm.Watch)
	}

	if err := sched.Start(a.sup.Context()); err != nil {
		return err
	}
	a.sup.Go0("run.initial", a.runScheduled)
	if interval := systemd.WatchdogInterval(); interval > 0 {
		a.sup.Go0("systemd.watchdog", func(c context.Context) { systemd.RunWatchdog(c, interval, a.notify) })
	}

	a.notify(systemd.Ready)
	a.log.Info("daemon started", logx.Time("next", sched.Next()))

	<-a.sup.Context().Done()
	a.notify(systemd.Stopping)
	a.log.Info("stopping daemon")

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()
	if err := sched.Stop(stopCtx); err != nil {
		a.log.Warn("scheduler did not stop in time", logx.Err(err))
	}
	if err := a.sup.Wait(stopCtx); err != nil {
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			a.log.Warn("shutdown finished with errors", logx.Err(err))
			return nil
		}
		return err
	}
	return nil
}

func (a *App) runScheduled(ctx context.Context) {
	if !a.running.CompareAndSwap(false, true) {
		a.log.Info("previous run still in progress; skipping trigger")
		return
	}
	defer a.running.Store(false)

	// Failures are logged by RunOnce; the daemon keeps serving.
	_ = a.RunOnce(ctx)
}

func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config, sched *scheduler.Service) {
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			a.applyConfig(newCfg, sched)
		}
	}
}

func (a *App) applyConfig(newCfg *config.Config, sched *scheduler.Service) {
	sum := config.SummarizeConfigChange(a.config(), newCfg)
	if len(sum.Sections) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}
	a.setConfig(newCfg)

	if a.logs != nil {
		a.logs.SetTelegramTarget(newCfg.Telegram.GroupLog, newCfg.Logging.Telegram.ThreadID)
		a.logs.Apply(logConfig(newCfg))
	}
	if sched != nil {
		if err := sched.Reschedule(newCfg.Scheduler.Schedule); err != nil {
			a.log.Warn("invalid schedule; keeping previous", logx.Err(err))
		}
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(sum.Sections, ","))}, sum.Attrs...)
	a.log.Info("config reloaded", fields...)
	if sum.NeedsRestart {
		a.log.Warn("some changes take effect only after a restart (telegram, storage, scheduler.enabled)")
	}
}
