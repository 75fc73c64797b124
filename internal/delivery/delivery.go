// Package delivery upserts the daily schedule message: the first delivery of
// a civil day sends a new message, later ones edit it in place.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"outagebot/internal/civil"
	"outagebot/internal/runtime/supervisor"
	"outagebot/internal/storage"
	"outagebot/internal/transport"
	logx "outagebot/pkg/logx"
)

var (
	ErrConfiguration  = errors.New("delivery is not configured")
	ErrDeliveryFailed = errors.New("message delivery failed")
)

const (
	DefaultRetries    = 5
	DefaultRetryDelay = 5 * time.Second
)

type Config struct {
	Target         transport.ChatTarget
	Retries        int // retries after the first attempt
	RetryDelay     time.Duration
	AttemptTimeout time.Duration // 0 disables
}

// Result describes a finished delivery job.
type Result struct {
	Attempts int
	Ref      transport.MessageRef
	Edited   bool
	Err      error
}

type Deliverer struct {
	cfg   Config
	msg   transport.Messenger
	store storage.MessageStore
	zone  *civil.Zone
	sup   *supervisor.Supervisor
	log   logx.Logger

	wait func(ctx context.Context, d time.Duration) error
}

// New validates the collaborators. A missing messenger, store or chat id is
// reported as ErrConfiguration.
func New(cfg Config, msg transport.Messenger, store storage.MessageStore, zone *civil.Zone, sup *supervisor.Supervisor, log logx.Logger) (*Deliverer, error) {
	switch {
	case msg == nil:
		return nil, fmt.Errorf("%w: messenger (bot token) is missing", ErrConfiguration)
	case cfg.Target.ChatID == 0:
		return nil, fmt.Errorf("%w: chat id is missing", ErrConfiguration)
	case store == nil:
		return nil, fmt.Errorf("%w: message store is missing", ErrConfiguration)
	case zone == nil:
		return nil, fmt.Errorf("%w: civil zone is missing", ErrConfiguration)
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if sup == nil {
		sup = supervisor.New(context.Background(), supervisor.WithLogger(log))
	}
	return &Deliverer{
		cfg:   cfg,
		msg:   msg,
		store: store,
		zone:  zone,
		sup:   sup,
		log:   log.With(logx.String("comp", "delivery")),
		wait:  sleepCtx,
	}, nil
}

// Job is a delivery running in the background.
type Job struct {
	done chan struct{}
	res  Result
}

// Done is closed when the job finished.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the job finished or ctx is done.
func (j *Job) Wait(ctx context.Context) Result {
	select {
	case <-j.done:
		return j.res
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	}
}

// Deliver starts delivering text and returns immediately. The job stops early
// when ctx or the supervisor is canceled.
func (d *Deliverer) Deliver(ctx context.Context, text string) *Job {
	job := &Job{done: make(chan struct{})}
	d.sup.Go0("delivery", func(supCtx context.Context) {
		defer close(job.done)

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(supCtx, cancel)
		defer stop()

		job.res = d.run(runCtx, text)
	})
	return job
}

func (d *Deliverer) run(ctx context.Context, text string) Result {
	maxAttempts := 1 + d.cfg.Retries
	var lastErr error

	for attempt := 1; ; attempt++ {
		ref, edited, err := d.attempt(ctx, text)
		if err == nil {
			d.log.Info("schedule message delivered",
				logx.Int("attempt", attempt),
				logx.Int("message_id", ref.MessageID),
				logx.Bool("edited", edited),
			)
			return Result{Attempts: attempt, Ref: ref, Edited: edited}
		}
		lastErr = err

		d.log.Warn("delivery attempt failed",
			logx.Int("attempt", attempt),
			logx.Int("max_attempts", maxAttempts),
			logx.Err(err),
		)
		// The next attempt must not edit a message that may be gone.
		if derr := d.store.Delete(context.WithoutCancel(ctx)); derr != nil {
			d.log.Warn("failed to clear message state", logx.Err(derr))
		}

		if attempt >= maxAttempts || ctx.Err() != nil {
			return d.failed(attempt, lastErr)
		}
		if err := d.wait(ctx, d.cfg.RetryDelay); err != nil {
			return d.failed(attempt, lastErr)
		}
	}
}

func (d *Deliverer) failed(attempts int, err error) Result {
	err = fmt.Errorf("%w after %d attempt(s): %w", ErrDeliveryFailed, attempts, err)
	d.log.Error("giving up on delivery", logx.Int("attempts", attempts), logx.Err(err))
	return Result{Attempts: attempts, Err: err}
}

func (d *Deliverer) attempt(ctx context.Context, text string) (transport.MessageRef, bool, error) {
	if d.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.AttemptTimeout)
		defer cancel()
	}

	opts := &transport.SendOptions{
		ParseMode:      transport.ParseModeHTML,
		DisablePreview: true,
		Silent:         d.zone.IsNight(),
	}

	prev, ok, err := d.store.Load(ctx)
	if err != nil {
		d.log.Warn("failed to load message state; sending a new message", logx.Err(err))
		ok = false
	}
	if ok && prev.ChatID != d.cfg.Target.ChatID {
		d.log.Info("stored message belongs to another chat; sending a new message",
			logx.Int64("stored_chat_id", prev.ChatID),
		)
		ok = false
	}

	var ref transport.MessageRef
	if ok {
		ref, err = d.msg.Edit(ctx, prev, text, opts)
		if errors.Is(err, transport.ErrNotModified) {
			d.log.Debug("schedule message unchanged", logx.Int("message_id", prev.MessageID))
			return prev, true, nil
		}
	} else {
		ref, err = d.msg.Send(ctx, d.cfg.Target, text, opts)
	}
	if err != nil {
		return transport.MessageRef{}, false, err
	}

	// The message is out; a retry here would post a duplicate.
	if err := d.store.Save(ctx, ref); err != nil {
		d.log.Warn("failed to save message state", logx.Int("message_id", ref.MessageID), logx.Err(err))
	}
	return ref, ok, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
