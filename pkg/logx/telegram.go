package logx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"outagebot/internal/transport"
)

const (
	// Telegram caps a message at 4096 characters.
	maxLineLen  = 3500
	maxValueLen = 600
	queueSize   = 64
)

// telegramSink is a zerolog.LevelWriter that queues lines for a background
// sender. Writes never block logging: lines over the rate or queue are dropped.
type telegramSink struct {
	sender transport.Messenger
	queue  chan string

	mu       sync.Mutex
	to       transport.ChatTarget
	minLevel zerolog.Level
	limiter  *rate.Limiter
	cancel   context.CancelFunc
	done     chan struct{}
}

func newTelegramSink(sender transport.Messenger) *telegramSink {
	return &telegramSink{
		sender:   sender,
		queue:    make(chan string, queueSize),
		minLevel: zerolog.WarnLevel,
	}
}

func (t *telegramSink) setTarget(chatID int64, threadID int) {
	t.mu.Lock()
	t.to.ChatID = chatID
	if threadID != 0 {
		t.to.ThreadID = threadID
	}
	t.mu.Unlock()
}

// configure updates the filters and starts the sender on first use.
func (t *telegramSink) configure(cfg TelegramConfig) {
	rps := max(cfg.RatePerSec, 1)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.minLevel = parseLevel(cfg.MinLevel, zerolog.WarnLevel)
	t.limiter = rate.NewLimiter(rate.Limit(rps), rps)
	if cfg.ThreadID != 0 {
		t.to.ThreadID = cfg.ThreadID
	}
	if t.to.ChatID == 0 {
		fmt.Fprintln(os.Stderr, "logx: telegram logging enabled but telegram.group_log is not set")
	}
	if t.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		t.cancel = cancel
		t.done = make(chan struct{})
		go t.run(ctx, t.done)
	}
}

func (t *telegramSink) Write(p []byte) (int, error) {
	return t.WriteLevel(zerolog.InfoLevel, p)
}

func (t *telegramSink) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	t.mu.Lock()
	ok := t.to.ChatID != 0 && t.limiter != nil && level >= t.minLevel && t.limiter.Allow()
	t.mu.Unlock()
	if !ok {
		return len(p), nil
	}
	if line := renderLine(p); line != "" {
		select {
		case t.queue <- line:
		default:
		}
	}
	return len(p), nil
}

func (t *telegramSink) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case line := <-t.queue:
			t.send(ctx, line)
		}
	}
}

// stop drains what is still queued before stopping the sender. A one-shot run
// logs its final error right before exit.
func (t *telegramSink) stop(ctx context.Context) {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel = nil
	t.mu.Unlock()
	if cancel == nil {
		return
	}
drain:
	for ctx.Err() == nil {
		select {
		case line := <-t.queue:
			t.send(ctx, line)
		default:
			break drain
		}
	}
	cancel()
	<-done
}

func (t *telegramSink) send(ctx context.Context, line string) {
	t.mu.Lock()
	to := t.to
	t.mu.Unlock()
	if to.ChatID == 0 {
		return
	}
	_, _ = t.sender.Send(ctx, to, line, &transport.SendOptions{DisablePreview: true})
}

// renderLine turns a JSON log line into "[LEVEL] message" followed by one
// "key: value" line per field, sorted by key.
func renderLine(p []byte) string {
	var m map[string]any
	if err := json.Unmarshal(p, &m); err != nil {
		return clip(strings.TrimSpace(string(p)), maxLineLen)
	}

	var b strings.Builder
	if lvl, _ := m["level"].(string); lvl != "" {
		fmt.Fprintf(&b, "[%s] ", strings.ToUpper(lvl))
	}
	msg, _ := m["message"].(string)
	b.WriteString(msg)

	delete(m, "time")
	delete(m, "level")
	delete(m, "message")
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: %s", k, clip(fmt.Sprint(m[k]), maxValueLen))
	}
	return clip(b.String(), maxLineLen)
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
