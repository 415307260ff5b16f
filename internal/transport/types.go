package transport

import (
	"context"
	"errors"
)

// ErrDirectForbidden reports that a direct message could not be delivered
// because the recipient never started the bot, blocked it, or is gone.
// Callers use it to decide whether a fallback target should be tried.
var ErrDirectForbidden = errors.New("direct message forbidden")

type Update struct {
	Message *Message
}

type Message struct {
	ID           int
	ChatID       int64
	FromID       int64
	FromUsername string
	Text         string
	IsGroup      bool
}

type ChatTarget struct {
	ChatID int64
}

type MessageRef struct {
	ChatID    int64
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	// SendText delivers to a chat or channel.
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)

	// SendDirect delivers a private message to a user. Returns an error
	// wrapping ErrDirectForbidden when the user cannot be reached directly.
	SendDirect(ctx context.Context, userID int64, text string, opt *SendOptions) (MessageRef, error)
}
