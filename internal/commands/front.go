// Package commands parses incoming bot commands and applies them to the
// subscription store.
package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"palwatch/internal/subs"
	"palwatch/internal/transport"
	logx "palwatch/pkg/logx"
)

const helpText = `可用指令：
/add_keyword <關鍵字> - 訂閱關鍵字
/remove_keyword <關鍵字> - 取消訂閱
/list_keywords - 列出目前訂閱
/set_channel [chat id] - 設定通知頻道（群組內不帶參數即設為本群）
/channel_info - 查看通知頻道
/help - 顯示本說明`

// Replier is the transport subset used for command responses.
type Replier interface {
	SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error)
}

type Front struct {
	store   *subs.Store
	replier Replier
	log     logx.Logger

	// botName strips "@botname" command suffixes in group chats.
	botName string
}

func NewFront(store *subs.Store, replier Replier, botName string, log logx.Logger) *Front {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Front{store: store, replier: replier, botName: strings.TrimPrefix(botName, "@"), log: log}
}

// Run consumes updates until ctx is canceled or the channel closes.
func (f *Front) Run(ctx context.Context, updates <-chan transport.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case up, ok := <-updates:
			if !ok {
				return
			}
			if up.Message == nil {
				continue
			}
			f.handle(ctx, up.Message)
		}
	}
}

func (f *Front) handle(ctx context.Context, m *transport.Message) {
	cmd, arg, ok := f.parseCommand(m.Text)
	if !ok {
		return
	}

	var reply string
	switch cmd {
	case "add_keyword":
		reply = f.addKeyword(m.FromID, arg)
	case "remove_keyword":
		reply = f.removeKeyword(m.FromID, arg)
	case "list_keywords":
		reply = f.listKeywords(m.FromID)
	case "set_channel":
		reply = f.setChannel(m, arg)
	case "channel_info":
		reply = f.channelInfo(m.FromID)
	case "help", "start":
		reply = helpText
	default:
		// Unknown commands are ignored; the bot may share groups with
		// other bots.
		return
	}

	if reply == "" {
		return
	}
	if _, err := f.replier.SendText(ctx, transport.ChatTarget{ChatID: m.ChatID}, reply, nil); err != nil {
		f.log.Warn("command reply failed", logx.String("cmd", cmd), logx.Int64("chat", m.ChatID), logx.Err(err))
	}
}

// parseCommand splits "/cmd@bot arg..." into (cmd, arg, true).
func (f *Front) parseCommand(text string) (cmd, arg string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, rest, _ := strings.Cut(text[1:], " ")
	if at := strings.IndexByte(head, '@'); at != -1 {
		name := head[at+1:]
		if f.botName != "" && !strings.EqualFold(name, f.botName) {
			// Addressed to a different bot.
			return "", "", false
		}
		head = head[:at]
	}
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(rest), true
}

func (f *Front) addKeyword(userID int64, arg string) string {
	switch err := f.store.AddKeyword(userID, arg); err {
	case nil:
		return fmt.Sprintf("已訂閱關鍵字「%s」", strings.TrimSpace(arg))
	case subs.ErrEmptyKeyword:
		return "用法：/add_keyword <關鍵字>"
	case subs.ErrDuplicateKeyword:
		return fmt.Sprintf("「%s」已在訂閱清單中", strings.TrimSpace(arg))
	default:
		f.log.Error("add keyword failed", logx.Int64("user", userID), logx.Err(err))
		return "訂閱失敗，請稍後再試"
	}
}

func (f *Front) removeKeyword(userID int64, arg string) string {
	switch err := f.store.RemoveKeyword(userID, arg); err {
	case nil:
		return fmt.Sprintf("已取消訂閱「%s」", strings.TrimSpace(arg))
	case subs.ErrEmptyKeyword:
		return "用法：/remove_keyword <關鍵字>"
	case subs.ErrKeywordNotFound:
		return fmt.Sprintf("找不到訂閱「%s」", strings.TrimSpace(arg))
	default:
		f.log.Error("remove keyword failed", logx.Int64("user", userID), logx.Err(err))
		return "取消訂閱失敗，請稍後再試"
	}
}

func (f *Front) listKeywords(userID int64) string {
	kws := f.store.Keywords(userID)
	if len(kws) == 0 {
		return "目前沒有訂閱任何關鍵字"
	}
	var b strings.Builder
	b.WriteString("目前訂閱：\n")
	for i, kw := range kws {
		fmt.Fprintf(&b, "%d. %s\n", i+1, kw)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (f *Front) setChannel(m *transport.Message, arg string) string {
	chatID := m.ChatID
	if arg != "" {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return "用法：/set_channel [chat id]"
		}
		chatID = id
	} else if !m.IsGroup {
		// In a private chat "set to here" means plain DMs; that is the
		// default already, so ask for an explicit id instead.
		return "請在群組內使用，或指定 chat id：/set_channel <chat id>"
	}
	f.store.SetChannel(m.FromID, chatID)
	return fmt.Sprintf("通知頻道已設定為 %d", chatID)
}

func (f *Front) channelInfo(userID int64) string {
	ch, ok := f.store.Channel(userID)
	if !ok {
		return "尚未設定通知頻道，通知將以私訊傳送"
	}
	return fmt.Sprintf("目前通知頻道：%d", ch)
}
