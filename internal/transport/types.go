package transport

import (
	"context"
	"errors"
	"time"
)

const ParseModeHTML = "HTML"

// ErrNotModified is returned by Messenger.Edit when the message already
// carries the requested text. The returned reference is still valid.
var ErrNotModified = errors.New("message is not modified")

type ChatTarget struct {
	ChatID   int64
	ThreadID int // telegram forum topic thread id (0 if none)
}

// MessageRef identifies a delivered message. Date is the platform-assigned
// send time in unix seconds; it is what day-rollover checks compare against.
type MessageRef struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
	Date      int64 `json:"date"`
}

func (r MessageRef) IsZero() bool { return r.MessageID == 0 }

// SentAt returns Date as a time.Time (zero if unset).
func (r MessageRef) SentAt() time.Time {
	if r.Date <= 0 {
		return time.Time{}
	}
	return time.Unix(r.Date, 0)
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
	// Silent delivers without a notification sound (Telegram: disable_notification).
	Silent bool
}

// Messenger is the chat endpoint used for schedule delivery.
type Messenger interface {
	Send(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	Edit(ctx context.Context, ref MessageRef, text string, opt *SendOptions) (MessageRef, error)
}
