package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"outagebot/internal/config"
	"outagebot/internal/schedule"
	"outagebot/internal/source"
	"outagebot/internal/transport"
	logx "outagebot/pkg/logx"
)

const page = `<html><script>
DisconSchedule.fact = {"data":{"1760821200":{"GPV1.1":{"1":"yes","2":"no","3":"first","4":"maybe"}}},"update":"19.10.2025 09:41","today":1760821200}
</script></html>`

type pageFetcher struct {
	html     string
	fail     bool
	launches atomic.Int32
}

func (f *pageFetcher) Launch(ctx context.Context) (source.Session, error) {
	f.launches.Add(1)
	if f.fail {
		return nil, errors.New("browser crashed")
	}
	return pageSession{html: f.html}, nil
}

type pageSession struct{ html string }

func (s pageSession) Load(ctx context.Context, url string) error  { return nil }
func (s pageSession) Content(ctx context.Context) (string, error) { return s.html, nil }
func (s pageSession) Close() error                                 { return nil }

type recordingMessenger struct {
	mu    sync.Mutex
	fail  bool
	texts []string
	ops   []string
	next  int
	now   func() time.Time
}

func (m *recordingMessenger) Send(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, "send")
	if m.fail {
		return transport.MessageRef{}, errors.New("forbidden")
	}
	m.texts = append(m.texts, text)
	m.next++
	date := time.Now()
	if m.now != nil {
		date = m.now()
	}
	return transport.MessageRef{ChatID: to.ChatID, MessageID: m.next, Date: date.Unix()}, nil
}

func (m *recordingMessenger) Edit(ctx context.Context, ref transport.MessageRef, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, "edit")
	m.texts = append(m.texts, text)
	return ref, nil
}

func (m *recordingMessenger) snapshot() ([]string, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ops...), append([]string(nil), m.texts...)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Telegram.Token = "123:test"
	cfg.Telegram.ChatID = -100500
	cfg.Source.Group = "1.1"
	cfg.Source.Driver = "http"
	zero := 0
	cfg.Source.Retries = &zero
	cfg.Delivery.Retries = &zero
	cfg.Storage.Path = filepath.Join(t.TempDir(), "artifacts", "last-message.json")
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, f source.Fetcher, m transport.Messenger) *App {
	t.Helper()
	a, err := New(cfg, Deps{Fetcher: f, Messenger: m, Logger: logx.Nop()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func TestRunOnce_SendsThenEdits(t *testing.T) {
	t.Parallel()

	f := &pageFetcher{html: page}
	m := &recordingMessenger{}
	a := newTestApp(t, testConfig(t), f, m)

	for i := 0; i < 2; i++ {
		if err := a.RunOnce(context.Background()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	ops, texts := m.snapshot()
	if len(ops) != 2 || ops[0] != "send" || ops[1] != "edit" {
		t.Fatalf("ops = %v", ops)
	}
	for _, want := range []string{"<code>01:00 — 02:30</code>", "🔄 <i>19.10.2025 09:41</i>"} {
		if !strings.Contains(texts[0], want) {
			t.Fatalf("message missing %q:\n%s", want, texts[0])
		}
	}
	if strings.Contains(texts[0], "00:00 — 01:00") {
		t.Fatalf("powered periods must be omitted when outages exist:\n%s", texts[0])
	}
}

func TestRunOnce_PreviousDayMessageIsReplaced(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("Europe/Kyiv")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	var now atomic.Int64
	now.Store(time.Date(2025, 10, 19, 23, 50, 0, 0, loc).Unix())
	clock := func() time.Time { return time.Unix(now.Load(), 0) }

	m := &recordingMessenger{now: clock}
	a, err := New(testConfig(t), Deps{Fetcher: &pageFetcher{html: page}, Messenger: m, Logger: logx.Nop(), Clock: clock})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	if err := a.RunOnce(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	// 00:30 the next civil day: yesterday's message must not be edited.
	now.Add(int64(40 * time.Minute / time.Second))
	if err := a.RunOnce(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}

	ops, _ := m.snapshot()
	if len(ops) != 2 || ops[0] != "send" || ops[1] != "send" {
		t.Fatalf("ops = %v, want [send send]", ops)
	}
}

func TestRunOnce_AcquisitionAbandoned(t *testing.T) {
	t.Parallel()

	f := &pageFetcher{fail: true}
	m := &recordingMessenger{}
	cfg := testConfig(t)
	two := 2
	cfg.Source.Retries = &two
	cfg.Source.RetryDelay = "1ms"
	a := newTestApp(t, cfg, f, m)

	err := a.RunOnce(context.Background())
	if !errors.Is(err, source.ErrAcquisitionAbandoned) {
		t.Fatalf("err = %v", err)
	}
	if got := f.launches.Load(); got != 3 {
		t.Fatalf("launches = %d, want 3", got)
	}
	if ops, _ := m.snapshot(); len(ops) != 0 {
		t.Fatalf("nothing should be delivered, got %v", ops)
	}
}

func TestRunOnce_MissingGroup(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Source.Group = "9.9"
	m := &recordingMessenger{}
	a := newTestApp(t, cfg, &pageFetcher{html: page}, m)

	if err := a.RunOnce(context.Background()); !errors.Is(err, schedule.ErrScheduleDataMissing) {
		t.Fatalf("err = %v", err)
	}
	if ops, _ := m.snapshot(); len(ops) != 0 {
		t.Fatalf("nothing should be delivered, got %v", ops)
	}
}

func TestRunOnce_DeliveryFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	m := &recordingMessenger{fail: true}
	a := newTestApp(t, testConfig(t), &pageFetcher{html: page}, m)

	if err := a.RunOnce(context.Background()); err != nil {
		t.Fatalf("delivery failure should be logged only, got %v", err)
	}
	if ops, _ := m.snapshot(); len(ops) != 1 {
		t.Fatalf("ops = %v", ops)
	}
}

func TestNew_RejectsIncompleteConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Telegram.Token = ""
	if _, err := New(cfg, Deps{Logger: logx.Nop()}); !errors.Is(err, config.ErrMissingToken) {
		t.Fatalf("err = %v", err)
	}
}

func TestRun_DaemonRunsImmediatelyAndStops(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Scheduler.Enabled = true
	cfg.Scheduler.Schedule = "1h"
	m := &recordingMessenger{}
	a := newTestApp(t, cfg, &pageFetcher{html: page}, m)

	var (
		mu     sync.Mutex
		states []string
	)
	a.notify = func(state string) {
		mu.Lock()
		states = append(states, state)
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for {
		if ops, _ := m.snapshot(); len(ops) == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("initial run did not deliver")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("daemon did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(states) != 2 || !strings.HasPrefix(states[0], "READY") || !strings.HasPrefix(states[1], "STOPPING") {
		t.Fatalf("sd_notify states = %v", states)
	}
}

func TestApplyConfig_Reschedules(t *testing.T) {
	t.Parallel()

	a := newTestApp(t, testConfig(t), &pageFetcher{html: page}, &recordingMessenger{})
	next := testConfig(t)
	next.Delivery.RetryDelay = "1s"
	next.Scheduler.Schedule = "15m"

	a.applyConfig(next, nil)
	if a.config() != next {
		t.Fatalf("config not swapped")
	}
}
