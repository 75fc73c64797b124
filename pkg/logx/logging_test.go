package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"outagebot/internal/transport"
)

type recordingSender struct {
	mu    sync.Mutex
	texts []string
}

func (r *recordingSender) Send(_ context.Context, _ transport.ChatTarget, text string, _ *transport.SendOptions) (transport.MessageRef, error) {
	r.mu.Lock()
	r.texts = append(r.texts, text)
	r.mu.Unlock()
	return transport.MessageRef{MessageID: 1}, nil
}

func (r *recordingSender) Edit(_ context.Context, ref transport.MessageRef, _ string, _ *transport.SendOptions) (transport.MessageRef, error) {
	return ref, nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.texts)
}

func TestWriterLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "debug").With(String("comp", "test"))
	log.Info("hello", Int("n", 3))

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("decode log line: %v (%q)", err, buf.String())
	}
	if m["comp"] != "test" || m["message"] != "hello" || m["n"] != float64(3) {
		t.Fatalf("unexpected log line: %v", m)
	}
	if _, ok := m["caller"]; !ok {
		t.Fatalf("expected caller field, got %v", m)
	}
}

func TestZeroLoggerIsNoop(t *testing.T) {
	var l Logger
	if !l.IsZero() {
		t.Fatal("zero logger should report IsZero")
	}
	l.Info("nothing happens")
}

func TestTelegramSinkForwardsWarnings(t *testing.T) {
	sender := &recordingSender{}
	svc, log := New(Config{
		Level:    "debug",
		Console:  false,
		Telegram: TelegramConfig{Enabled: true, MinLevel: "warn", RatePerSec: 50},
	}, sender)
	svc.SetTelegramTarget(-100, 0)

	log.Info("not forwarded")
	log.Warn("forwarded", String("group", "GPV1.1"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := svc.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := sender.count(); got != 1 {
		t.Fatalf("forwarded %d messages, want 1", got)
	}
	if !strings.HasPrefix(sender.texts[0], "[WARN] forwarded") || !strings.Contains(sender.texts[0], "\ngroup: GPV1.1") {
		t.Fatalf("unexpected forwarded text: %q", sender.texts[0])
	}
}

func TestValidLevel(t *testing.T) {
	for _, lv := range []string{"", "debug", "INFO", "warning"} {
		if !ValidLevel(lv) {
			t.Fatalf("ValidLevel(%q) = false", lv)
		}
	}
	if ValidLevel("loud") {
		t.Fatal("ValidLevel(loud) = true")
	}
}
