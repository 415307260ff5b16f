package commands

import (
	"context"
	"strings"
	"testing"

	"palwatch/internal/subs"
	"palwatch/internal/transport"
	logx "palwatch/pkg/logx"
)

type captureReplier struct {
	replies []string
	chats   []int64
}

func (c *captureReplier) SendText(_ context.Context, to transport.ChatTarget, text string, _ *transport.SendOptions) (transport.MessageRef, error) {
	c.replies = append(c.replies, text)
	c.chats = append(c.chats, to.ChatID)
	return transport.MessageRef{ChatID: to.ChatID, MessageID: len(c.replies)}, nil
}

func newFront(t *testing.T) (*Front, *captureReplier, *subs.Store) {
	t.Helper()
	store, err := subs.Load(context.Background(), nil, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	rep := &captureReplier{}
	return NewFront(store, rep, "palwatch_bot", logx.Nop()), rep, store
}

func msg(userID, chatID int64, text string, group bool) *transport.Message {
	return &transport.Message{ID: 1, ChatID: chatID, FromID: userID, Text: text, IsGroup: group}
}

func lastReply(t *testing.T, c *captureReplier) string {
	t.Helper()
	if len(c.replies) == 0 {
		t.Fatal("no reply sent")
	}
	return c.replies[len(c.replies)-1]
}

func TestAddListRemoveFlow(t *testing.T) {
	t.Parallel()
	f, rep, store := newFront(t)
	ctx := context.Background()

	f.handle(ctx, msg(7, 7, "/add_keyword 楓葉", false))
	if !strings.Contains(lastReply(t, rep), "楓葉") {
		t.Fatalf("reply = %q", lastReply(t, rep))
	}
	if kws := store.Keywords(7); len(kws) != 1 || kws[0] != "楓葉" {
		t.Fatalf("keywords = %v", kws)
	}

	f.handle(ctx, msg(7, 7, "/add_keyword 楓葉", false))
	if !strings.Contains(lastReply(t, rep), "已在訂閱清單中") {
		t.Fatalf("duplicate reply = %q", lastReply(t, rep))
	}

	f.handle(ctx, msg(7, 7, "/list_keywords", false))
	if !strings.Contains(lastReply(t, rep), "1. 楓葉") {
		t.Fatalf("list reply = %q", lastReply(t, rep))
	}

	f.handle(ctx, msg(7, 7, "/remove_keyword 楓葉", false))
	f.handle(ctx, msg(7, 7, "/list_keywords", false))
	if !strings.Contains(lastReply(t, rep), "沒有訂閱") {
		t.Fatalf("empty list reply = %q", lastReply(t, rep))
	}
}

func TestAddKeywordUsage(t *testing.T) {
	t.Parallel()
	f, rep, _ := newFront(t)
	f.handle(context.Background(), msg(1, 1, "/add_keyword", false))
	if !strings.Contains(lastReply(t, rep), "用法") {
		t.Fatalf("reply = %q", lastReply(t, rep))
	}
}

func TestSetChannel(t *testing.T) {
	t.Parallel()
	f, rep, store := newFront(t)
	ctx := context.Background()

	// In a group with no argument, the current chat becomes the channel.
	f.handle(ctx, msg(7, -100555, "/set_channel", true))
	if ch, ok := store.Channel(7); !ok || ch != -100555 {
		t.Fatalf("channel = %d, %v", ch, ok)
	}

	// An explicit id wins anywhere.
	f.handle(ctx, msg(7, 7, "/set_channel -200", false))
	if ch, _ := store.Channel(7); ch != -200 {
		t.Fatalf("channel = %d", ch)
	}

	// In a DM with no argument there is nothing sensible to set.
	f.handle(ctx, msg(8, 8, "/set_channel", false))
	if _, ok := store.Channel(8); ok {
		t.Fatal("channel should not be set from a DM without an id")
	}
	if !strings.Contains(lastReply(t, rep), "群組") {
		t.Fatalf("reply = %q", lastReply(t, rep))
	}
}

func TestChannelInfo(t *testing.T) {
	t.Parallel()
	f, rep, store := newFront(t)
	ctx := context.Background()

	f.handle(ctx, msg(7, 7, "/channel_info", false))
	if !strings.Contains(lastReply(t, rep), "私訊") {
		t.Fatalf("reply = %q", lastReply(t, rep))
	}

	store.SetChannel(7, -42)
	f.handle(ctx, msg(7, 7, "/channel_info", false))
	if !strings.Contains(lastReply(t, rep), "-42") {
		t.Fatalf("reply = %q", lastReply(t, rep))
	}
}

func TestParseCommand(t *testing.T) {
	t.Parallel()
	f, _, _ := newFront(t)
	tests := []struct {
		in   string
		cmd  string
		arg  string
		ok   bool
	}{
		{"/help", "help", "", true},
		{"/ADD_KEYWORD x", "add_keyword", "x", true},
		{"/add_keyword@palwatch_bot 楓葉", "add_keyword", "楓葉", true},
		{"/add_keyword@other_bot 楓葉", "", "", false},
		{"plain text", "", "", false},
		{"/", "", "", false},
	}
	for _, tt := range tests {
		cmd, arg, ok := f.parseCommand(tt.in)
		if cmd != tt.cmd || arg != tt.arg || ok != tt.ok {
			t.Fatalf("parseCommand(%q) = %q %q %v", tt.in, cmd, arg, ok)
		}
	}
}

func TestUnknownCommandIgnored(t *testing.T) {
	t.Parallel()
	f, rep, _ := newFront(t)
	f.handle(context.Background(), msg(1, 1, "/weather taipei", false))
	if len(rep.replies) != 0 {
		t.Fatalf("unexpected reply %v", rep.replies)
	}
}

func TestRepliesGoToOriginChat(t *testing.T) {
	t.Parallel()
	f, rep, _ := newFront(t)
	f.handle(context.Background(), msg(7, -900, "/help", true))
	if rep.chats[0] != -900 {
		t.Fatalf("reply chat = %d", rep.chats[0])
	}
}
