package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	logx "outagebot/pkg/logx"
)

const (
	DefaultURL        = "https://www.dtek-krem.com.ua/ua/shutdowns"
	DefaultRetries    = 5
	DefaultRetryDelay = 5 * time.Second
)

type Config struct {
	URL    string
	Marker string
	// Retries is the number of attempts after the first one (0 = try once).
	Retries    int
	RetryDelay time.Duration
	// AttemptTimeout bounds one fetch+extract attempt (0 = no limit).
	AttemptTimeout time.Duration
}

type Acquirer struct {
	cfg     Config
	fetcher Fetcher
	log     logx.Logger

	// wait sleeps between attempts; replaced in tests.
	wait func(ctx context.Context, d time.Duration) error
}

func NewAcquirer(cfg Config, fetcher Fetcher, log logx.Logger) *Acquirer {
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = DefaultURL
	}
	if strings.TrimSpace(cfg.Marker) == "" {
		cfg.Marker = DefaultMarker
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Acquirer{cfg: cfg, fetcher: fetcher, log: log, wait: sleepCtx}
}

// Acquire runs up to 1+Retries attempts and returns the first document that
// loads, extracts and parses. After the last failed attempt it returns
// ErrAcquisitionAbandoned wrapping the last cause.
func (a *Acquirer) Acquire(ctx context.Context) (*Document, error) {
	maxAttempts := 1 + a.cfg.Retries
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		start := time.Now()
		a.log.Info("getting schedule data", logx.Int("attempt", attempt), logx.String("url", a.cfg.URL))

		doc, err := a.attempt(ctx)
		if err == nil {
			a.log.Info("schedule data received",
				logx.Int("attempt", attempt),
				logx.String("update", doc.Update),
				logx.Int("days", len(doc.Data)),
				logx.Duration("took", time.Since(start)),
			)
			return doc, nil
		}
		lastErr = err
		a.log.Warn("getting schedule data failed", logx.Int("attempt", attempt), logx.Int("max_attempts", maxAttempts), logx.Err(err))

		if ctx.Err() != nil {
			break
		}
		if attempt >= maxAttempts {
			break
		}
		a.log.Info("retrying schedule fetch", logx.Duration("delay", a.cfg.RetryDelay), logx.Int("next_attempt", attempt+1))
		if err := a.wait(ctx, a.cfg.RetryDelay); err != nil {
			lastErr = err
			break
		}
	}
	return nil, fmt.Errorf("%w: %w", ErrAcquisitionAbandoned, lastErr)
}

// attempt owns exactly one fetcher session.
func (a *Acquirer) attempt(ctx context.Context) (_ *Document, err error) {
	if a.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.AttemptTimeout)
		defer cancel()
	}
	if a.fetcher == nil {
		return nil, fmt.Errorf("%w: no fetcher configured", ErrFetchFailed)
	}

	sess, err := a.fetcher.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: launch: %w", ErrFetchFailed, err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			a.log.Debug("fetcher session close failed", logx.Err(cerr))
		}
	}()

	if err := sess.Load(ctx, a.cfg.URL); err != nil {
		return nil, fmt.Errorf("%w: load: %w", ErrFetchFailed, err)
	}
	html, err := sess.Content(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: content: %w", ErrFetchFailed, err)
	}
	return Extract(html, a.cfg.Marker)
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
