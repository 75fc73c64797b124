package adapter

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"outagebot/internal/transport"
	logx "outagebot/pkg/logx"
)

type Config struct {
	Token string
	// APIURL overrides the Bot API endpoint (default https://api.telegram.org).
	APIURL         string
	RequestTimeout time.Duration
}

// Adapter is a send/edit-only Telegram client. It never polls for updates.
type Adapter struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		URL:   strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/"),
		Token: strings.TrimSpace(cfg.Token),
		// No getMe round-trip on startup and no poller: this bot only writes.
		Offline: true,
		Client:  &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Adapter{cfg: cfg, log: log, bot: b}, nil
}

func (a *Adapter) sendOptions(to transport.ChatTarget, opt *transport.SendOptions) *tele.SendOptions {
	if opt == nil {
		opt = &transport.SendOptions{}
	}
	return &tele.SendOptions{
		ParseMode:             opt.ParseMode,
		DisableWebPagePreview: opt.DisablePreview,
		DisableNotification:   opt.Silent,
		ThreadID:              to.ThreadID,
	}
}

func (a *Adapter) Send(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	if err := ctxErr(ctx); err != nil {
		return transport.MessageRef{}, err
	}
	msg, err := a.bot.Send(tele.ChatID(to.ChatID), text, a.sendOptions(to, opt))
	if err != nil {
		return transport.MessageRef{}, err
	}
	if msg == nil {
		return transport.MessageRef{}, errors.New("telegram: empty sendMessage result")
	}
	ref := transport.MessageRef{ChatID: to.ChatID, MessageID: msg.ID, Date: msg.Unixtime}
	if msg.Chat != nil && msg.Chat.ID != 0 {
		ref.ChatID = msg.Chat.ID
	}
	a.log.Debug("message sent", logx.Int64("chat_id", ref.ChatID), logx.Int("message_id", ref.MessageID))
	return ref, nil
}

// Edit replaces the text of ref. The returned reference keeps the original
// send date so day-rollover checks stay anchored to the first send.
func (a *Adapter) Edit(ctx context.Context, ref transport.MessageRef, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	if err := ctxErr(ctx); err != nil {
		return transport.MessageRef{}, err
	}
	stored := tele.StoredMessage{MessageID: strconv.Itoa(ref.MessageID), ChatID: ref.ChatID}
	msg, err := a.bot.Edit(stored, text, a.sendOptions(transport.ChatTarget{ChatID: ref.ChatID}, opt))
	if err != nil {
		if isNotModified(err) {
			return ref, transport.ErrNotModified
		}
		return transport.MessageRef{}, err
	}
	out := ref
	if msg != nil {
		if msg.ID != 0 {
			out.MessageID = msg.ID
		}
		if msg.Unixtime != 0 {
			out.Date = msg.Unixtime
		}
	}
	a.log.Debug("message edited", logx.Int64("chat_id", out.ChatID), logx.Int("message_id", out.MessageID))
	return out, nil
}

func isNotModified(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "message is not modified")
}

func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
