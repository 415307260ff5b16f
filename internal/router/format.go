package router

import (
	"fmt"
	"strings"

	"palwatch/internal/watch"
)

const DefaultMaxTextLen = 800

// FormatNotification renders one keyword hit for delivery.
//
//	🔔 關鍵字命中：楓葉
//	[0042] seller: 收楓葉 1:100 大量收購
//
// Quoted text is truncated at maxLen runes with an ellipsis so one chat
// flood cannot produce megabyte notifications.
func FormatNotification(matched []string, m watch.Message, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxTextLen
	}
	text := truncateRunes(m.Text, maxLen)

	var b strings.Builder
	fmt.Fprintf(&b, "🔔 關鍵字命中：%s\n", strings.Join(matched, "、"))
	if m.Channel != "" && m.Author != "" {
		fmt.Fprintf(&b, "[%s] %s: %s", m.Channel, m.Author, text)
	} else if m.Author != "" {
		fmt.Fprintf(&b, "%s: %s", m.Author, text)
	} else {
		b.WriteString(text)
	}
	return b.String()
}

func truncateRunes(s string, limit int) string {
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit]) + "…"
}
