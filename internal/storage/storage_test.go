package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"outagebot/internal/civil"
	"outagebot/internal/transport"
	logx "outagebot/pkg/logx"
)

func kyivZone(t *testing.T, now time.Time) *civil.Zone {
	t.Helper()
	z, err := civil.Load(civil.DefaultTimezone, civil.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	return z
}

func openAll(t *testing.T, z *civil.Zone) map[string]MessageStore {
	t.Helper()
	dir := t.TempDir()
	out := map[string]MessageStore{}
	for driver, path := range map[string]string{
		"file":   filepath.Join(dir, "state", "last-message.json"),
		"sqlite": filepath.Join(dir, "db", "state.db"),
	} {
		st, err := Open(Config{Driver: driver, Path: path}, z, logx.Nop())
		if err != nil {
			t.Fatalf("open %s: %v", driver, err)
		}
		t.Cleanup(func() { _ = st.Close() })
		out[driver] = st
	}
	return out
}

func TestStore_SaveLoadDelete(t *testing.T) {
	now := time.Date(2025, 10, 19, 12, 0, 0, 0, time.UTC)
	z := kyivZone(t, now)
	ctx := context.Background()

	for driver, st := range openAll(t, z) {
		t.Run(driver, func(t *testing.T) {
			if _, ok, err := st.Load(ctx); err != nil || ok {
				t.Fatalf("empty load: ok=%v err=%v", ok, err)
			}

			want := transport.MessageRef{ChatID: -100123, MessageID: 42, Date: now.Add(-time.Hour).Unix()}
			if err := st.Save(ctx, want); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, ok, err := st.Load(ctx)
			if err != nil || !ok || got != want {
				t.Fatalf("load = %+v ok=%v err=%v, want %+v", got, ok, err, want)
			}

			// Save overwrites.
			want.MessageID = 43
			if err := st.Save(ctx, want); err != nil {
				t.Fatalf("save: %v", err)
			}
			if got, _, _ := st.Load(ctx); got.MessageID != 43 {
				t.Fatalf("message id = %d, want 43", got.MessageID)
			}

			if err := st.Delete(ctx); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if err := st.Delete(ctx); err != nil {
				t.Fatalf("second delete: %v", err)
			}
			if _, ok, _ := st.Load(ctx); ok {
				t.Fatalf("reference survived delete")
			}
		})
	}
}

func TestStore_PreviousDayIsStale(t *testing.T) {
	// 00:30 in Kyiv (UTC+3) on Oct 19.
	now := time.Date(2025, 10, 18, 21, 30, 0, 0, time.UTC)
	z := kyivZone(t, now)
	ctx := context.Background()

	for driver, st := range openAll(t, z) {
		t.Run(driver, func(t *testing.T) {
			// 23:50 Kyiv on Oct 18: same UTC day as now, but yesterday locally.
			old := transport.MessageRef{ChatID: 1, MessageID: 7, Date: time.Date(2025, 10, 18, 20, 50, 0, 0, time.UTC).Unix()}
			if err := st.Save(ctx, old); err != nil {
				t.Fatalf("save: %v", err)
			}
			if _, ok, err := st.Load(ctx); err != nil || ok {
				t.Fatalf("stale load: ok=%v err=%v", ok, err)
			}
			if _, ok, _ := st.Load(ctx); ok {
				t.Fatalf("stale reference was not deleted")
			}

			fresh := transport.MessageRef{ChatID: 1, MessageID: 8, Date: now.Add(-10 * time.Minute).Unix()}
			if err := st.Save(ctx, fresh); err != nil {
				t.Fatalf("save: %v", err)
			}
			if got, ok, _ := st.Load(ctx); !ok || got != fresh {
				t.Fatalf("fresh load = %+v ok=%v", got, ok)
			}
		})
	}
}

func TestFileStore_CorruptFileIsAbsent(t *testing.T) {
	t.Parallel()

	z := kyivZone(t, time.Now())
	path := filepath.Join(t.TempDir(), "last-message.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	st, err := Open(Config{Driver: "file", Path: path}, z, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok, err := st.Load(context.Background()); err != nil || ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("corrupt file should be removed, stat err=%v", err)
	}
}

func TestOpen_Errors(t *testing.T) {
	t.Parallel()

	z := kyivZone(t, time.Now())
	if _, err := Open(Config{Driver: "redis"}, z, logx.Nop()); err == nil {
		t.Fatalf("expected unknown driver error")
	}
	if _, err := Open(Config{Driver: "sqlite"}, z, logx.Nop()); err == nil {
		t.Fatalf("expected missing sqlite path error")
	}
	if _, err := Open(Config{}, nil, logx.Nop()); err == nil {
		t.Fatalf("expected missing zone error")
	}
}
