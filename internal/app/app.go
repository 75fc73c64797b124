package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"outagebot/internal/civil"
	"outagebot/internal/config"
	"outagebot/internal/delivery"
	"outagebot/internal/message"
	"outagebot/internal/runtime/supervisor"
	"outagebot/internal/schedule"
	"outagebot/internal/source"
	"outagebot/internal/storage"
	"outagebot/internal/transport"
	logx "outagebot/pkg/logx"
	"outagebot/pkg/systemd"
)

// Deps overrides collaborators; zero fields are built from the config.
type Deps struct {
	Fetcher   source.Fetcher
	Messenger transport.Messenger
	Store     storage.MessageStore
	Logger    logx.Logger
	// Clock replaces time.Now for the civil clock.
	Clock func() time.Time
}

type App struct {
	cfgm *config.ConfigManager // nil when built from a config value
	logs *logx.Service

	mu  sync.RWMutex
	cfg *config.Config

	log     logx.Logger
	loc     *time.Location
	clock   func() time.Time
	target  transport.ChatTarget
	fetcher source.Fetcher
	msg     transport.Messenger
	store   storage.MessageStore

	sup     *supervisor.Supervisor
	running atomic.Bool
	notify  systemd.Notifier
}

// NewApp loads the config file (optional) plus environment and wires the
// production collaborators.
func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	bootLog := logx.NewConsole(cfg.Logging.Level).With(logx.String("comp", "telegram"))
	bot, err := newBot(cfg, bootLog)
	if err != nil {
		return nil, err
	}

	// Telegram logging starts disabled so Apply does not warn before the
	// target chat is set.
	logCfg := logConfig(cfg)
	logCfg.Telegram.Enabled = false
	logSvc, log := logx.New(logCfg, bot)
	if cfg.Telegram.GroupLog != 0 {
		logSvc.SetTelegramTarget(cfg.Telegram.GroupLog, cfg.Logging.Telegram.ThreadID)
	}
	logSvc.Apply(logConfig(cfg))

	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	a, err := New(cfg, Deps{Messenger: bot, Logger: log})
	if err != nil {
		_ = logSvc.Close(context.Background())
		return nil, err
	}
	a.cfgm = cfgm
	a.logs = logSvc
	return a, nil
}

// New wires an App from an already loaded config.
func New(cfg *config.Config, deps Deps) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := deps.Logger
	if log.IsZero() {
		log = logx.NewConsole(cfg.Logging.Level)
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	// The store's day-rollover check must read the same clock as delivery.
	zone, err := civil.Load(cfg.Scheduler.Timezone, civil.WithClock(clock))
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:     cfg,
		log:     log.With(logx.String("comp", "app")),
		loc:     zone.Location(),
		clock:   clock,
		target:  transport.ChatTarget{ChatID: cfg.Telegram.ChatID, ThreadID: cfg.Telegram.ThreadID},
		fetcher: deps.Fetcher,
		msg:     deps.Messenger,
		store:   deps.Store,
		notify:  systemd.NewNotifier(log.With(logx.String("comp", "systemd"))),
	}

	if a.msg == nil {
		bot, err := newBot(cfg, log.With(logx.String("comp", "telegram")))
		if err != nil {
			return nil, err
		}
		a.msg = bot
	}
	if a.fetcher == nil {
		a.fetcher = newFetcher(cfg.Source)
	}
	if a.store == nil {
		sc, err := storageConfig(cfg)
		if err != nil {
			return nil, err
		}
		st, err := storage.Open(sc, zone, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		a.store = st
	}
	return a, nil
}

func (a *App) config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

func (a *App) setConfig(cfg *config.Config) {
	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()
}

// zone is rebuilt per run so night window reloads apply.
func (a *App) zone(cfg *config.Config) *civil.Zone {
	return civil.New(a.loc,
		civil.WithClock(a.clock),
		civil.WithNightWindow(cfg.Delivery.NightWindow()),
	)
}

// Run executes one pipeline run, or serves scheduled runs until ctx is done
// when scheduler.enabled is set.
func (a *App) Run(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	if a.config().Scheduler.Enabled {
		return a.serve(ctx)
	}
	err := a.RunOnce(ctx)
	_ = a.sup.Stop(context.Background())
	return err
}

// RunOnce acquires the page, builds today's schedule for the configured group,
// formats it and upserts the chat message. Acquisition and schedule errors are
// returned; a failed delivery is only logged.
func (a *App) RunOnce(ctx context.Context) error {
	cfg := a.config()
	log := a.log.With(logx.String("run", uuid.NewString()))
	zone := a.zone(cfg)
	group := cfg.Source.GroupKey()
	start := time.Now()

	log.Info("run started", logx.String("group", group), logx.String("url", cfg.Source.URL))

	acq := source.NewAcquirer(source.Config{
		URL:            cfg.Source.URL,
		Marker:         cfg.Source.Marker,
		Retries:        cfg.Source.RetryCount(),
		RetryDelay:     cfg.Source.RetryDelayOr(source.DefaultRetryDelay),
		AttemptTimeout: cfg.Source.AttemptTimeoutOr(0),
	}, a.fetcher, log.With(logx.String("comp", "source")))

	doc, err := acq.Acquire(ctx)
	if err != nil {
		log.Error("schedule acquisition abandoned", logx.Err(err))
		return err
	}

	day := doc.DayKey(zone)
	sched, err := doc.Schedule(zone, group)
	if err != nil {
		log.Error("no schedule for today", logx.String("day", day), logx.String("group", group), logx.Err(err))
		return fmt.Errorf("day %s group %s: %w", day, group, err)
	}
	if unknown := schedule.Unknown(doc.Data[day][group]); len(unknown) > 0 {
		log.Debug("skipped hours with unknown state", logx.Any("hours", unknown))
	}

	text := message.Format(sched, doc.Update, zone.Now())

	d, err := delivery.New(delivery.Config{
		Target:         a.target,
		Retries:        cfg.Delivery.RetryCount(),
		RetryDelay:     cfg.Delivery.RetryDelayOr(delivery.DefaultRetryDelay),
		AttemptTimeout: cfg.Delivery.AttemptTimeoutOr(0),
	}, a.msg, a.store, zone, a.sup, log)
	if err != nil {
		return err
	}

	// Wait even after ctx is canceled: the job stops on its own and the
	// process must not exit with a retry in flight.
	res := d.Deliver(ctx, text).Wait(context.WithoutCancel(ctx))
	if res.Err != nil {
		log.Error("schedule not delivered", logx.Int("attempts", res.Attempts), logx.Err(res.Err))
		return nil
	}

	log.Info("run finished",
		logx.Int("periods", len(sched)),
		logx.Int("outages", len(sched.Outages())),
		logx.Int("message_id", res.Ref.MessageID),
		logx.Bool("edited", res.Edited),
		logx.Duration("took", time.Since(start)),
	)
	return nil
}

// Close releases the store and flushes log sinks.
func (a *App) Close(ctx context.Context) error {
	var err error
	if a.store != nil {
		err = a.store.Close()
	}
	if a.logs != nil {
		if cerr := a.logs.Close(ctx); err == nil {
			err = cerr
		}
	}
	return err
}
