// Package browser is a source.Fetcher backed by headless Chrome (chromedp).
//
// The schedule page assembles its document with client-side scripts, so the
// HTML has to be read from a real browser after the load event.
package browser

import (
	"context"
	"errors"
	"strings"

	"github.com/chromedp/chromedp"

	"outagebot/internal/source"
)

type Config struct {
	// ExecPath overrides Chrome discovery (empty = search PATH).
	ExecPath  string
	UserAgent string
	// NoSandbox is needed when running as root inside containers.
	NoSandbox bool
}

type Fetcher struct {
	cfg Config
}

func New(cfg Config) *Fetcher { return &Fetcher{cfg: cfg} }

// Launch starts a browser process with one tab. The process lives until the
// session is closed or ctx is done.
func (f *Fetcher) Launch(ctx context.Context) (source.Session, error) {
	opts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)
	if p := strings.TrimSpace(f.cfg.ExecPath); p != "" {
		opts = append(opts, chromedp.ExecPath(p))
	}
	if ua := strings.TrimSpace(f.cfg.UserAgent); ua != "" {
		opts = append(opts, chromedp.UserAgent(ua))
	}
	if f.cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// An empty Run starts the browser so launch errors surface here.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, err
	}
	return &session{tab: tabCtx, cancelTab: tabCancel, cancelAlloc: allocCancel}, nil
}

type session struct {
	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

func (s *session) run(ctx context.Context, actions ...chromedp.Action) error {
	// chromedp works on its own context tree; tie the call to ctx.
	stop := context.AfterFunc(ctx, s.cancelTab)
	defer stop()
	err := chromedp.Run(s.tab, actions...)
	if err != nil && ctx.Err() != nil {
		return errors.Join(ctx.Err(), err)
	}
	return err
}

// Load navigates and waits for the load event.
func (s *session) Load(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery))
}

func (s *session) Content(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// Close shuts the tab and the browser process.
func (s *session) Close() error {
	err := chromedp.Cancel(s.tab)
	s.cancelTab()
	s.cancelAlloc()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
