package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"outagebot/internal/transport"
	logx "outagebot/pkg/logx"
)

type apiCall struct {
	Method string
	Params map[string]string
}

// fakeBotAPI answers sendMessage/editMessageText the way the Bot API does.
type fakeBotAPI struct {
	mu      sync.Mutex
	calls   []apiCall
	respond func(method string, params map[string]string) (int, string)
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	var raw map[string]any
	_ = json.NewDecoder(r.Body).Decode(&raw)
	params := map[string]string{}
	for k, v := range raw {
		params[k] = fmt.Sprint(v)
	}
	f.mu.Lock()
	f.calls = append(f.calls, apiCall{Method: method, Params: params})
	f.mu.Unlock()

	status, body := f.respond(method, params)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func newTestAdapter(t *testing.T, api *fakeBotAPI) *Adapter {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	a, err := New(Config{Token: "123:abc", APIURL: srv.URL}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestSendReturnsReference(t *testing.T) {
	api := &fakeBotAPI{respond: func(method string, _ map[string]string) (int, string) {
		return 200, `{"ok":true,"result":{"message_id":42,"date":1760871600,"chat":{"id":-100123,"type":"supergroup"},"text":"x"}}`
	}}
	a := newTestAdapter(t, api)

	ref, err := a.Send(context.Background(), transport.ChatTarget{ChatID: -100123}, "<b>hi</b>",
		&transport.SendOptions{ParseMode: transport.ParseModeHTML, Silent: true})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if ref.MessageID != 42 || ref.Date != 1760871600 || ref.ChatID != -100123 {
		t.Fatalf("unexpected ref: %+v", ref)
	}
	if len(api.calls) != 1 || api.calls[0].Method != "sendMessage" {
		t.Fatalf("unexpected calls: %+v", api.calls)
	}
	p := api.calls[0].Params
	if p["chat_id"] != "-100123" || p["parse_mode"] != "HTML" || p["disable_notification"] != "true" {
		t.Fatalf("unexpected params: %v", p)
	}
}

func TestEditKeepsReferenceAndHandlesNotModified(t *testing.T) {
	notModified := false
	api := &fakeBotAPI{respond: func(method string, _ map[string]string) (int, string) {
		if notModified {
			return 400, `{"ok":false,"error_code":400,"description":"Bad Request: message is not modified: specified new message content and reply markup are exactly the same"}`
		}
		return 200, `{"ok":true,"result":{"message_id":42,"date":1760871600,"edit_date":1760875200,"chat":{"id":-100123,"type":"supergroup"}}}`
	}}
	a := newTestAdapter(t, api)
	ref := transport.MessageRef{ChatID: -100123, MessageID: 42, Date: 1760871600}

	got, err := a.Edit(context.Background(), ref, "new text", &transport.SendOptions{ParseMode: transport.ParseModeHTML})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if got != ref {
		t.Fatalf("Edit ref = %+v, want %+v", got, ref)
	}
	if api.calls[0].Method != "editMessageText" || api.calls[0].Params["message_id"] != "42" {
		t.Fatalf("unexpected call: %+v", api.calls[0])
	}

	notModified = true
	got, err = a.Edit(context.Background(), ref, "new text", nil)
	if !errors.Is(err, transport.ErrNotModified) {
		t.Fatalf("err = %v, want ErrNotModified", err)
	}
	if got != ref {
		t.Fatalf("not-modified ref = %+v, want %+v", got, ref)
	}
}

func TestSendSurfacesAPIErrors(t *testing.T) {
	api := &fakeBotAPI{respond: func(string, map[string]string) (int, string) {
		return 403, `{"ok":false,"error_code":403,"description":"Forbidden: bot was kicked from the supergroup chat"}`
	}}
	a := newTestAdapter(t, api)
	if _, err := a.Send(context.Background(), transport.ChatTarget{ChatID: 1}, "x", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewRequiresToken(t *testing.T) {
	if _, err := New(Config{Token: "  "}, logx.Nop()); err == nil {
		t.Fatal("expected error for empty token")
	}
}
