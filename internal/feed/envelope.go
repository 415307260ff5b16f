package feed

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"palwatch/internal/watch"
)

// envelope is one upstream chat record. The feed is loose about types:
// channel arrives as a JSON number or string, and a frame holds either a
// single envelope or an array of them.
type envelope struct {
	Channel  any    `json:"channel"`
	Username string `json:"username"`
	Text     string `json:"text"`
	// Timestamp is upstream's send time; informational only, the bot
	// stamps messages with its own observation time.
	Timestamp any `json:"timestamp"`
}

// decodeFrame parses one websocket frame into messages. Records without
// text are skipped.
func decodeFrame(data []byte, observedAt time.Time) ([]watch.Message, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}

	var envs []envelope
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &envs); err != nil {
			return nil, fmt.Errorf("decode frame array: %w", err)
		}
	} else {
		var e envelope
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decode frame: %w", err)
		}
		envs = []envelope{e}
	}

	var out []watch.Message
	for _, e := range envs {
		text := strings.TrimSpace(e.Text)
		if text == "" {
			continue
		}
		out = append(out, watch.Message{
			Text:       text,
			Channel:    channelLabel(e.Channel),
			Author:     strings.TrimSpace(e.Username),
			ObservedAt: observedAt,
		})
	}
	return out, nil
}

// channelLabel normalizes the channel field into a zero-padded 4-digit
// label ("42" -> "0042"). Non-numeric strings pass through as-is.
func channelLabel(v any) string {
	var s string
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		s = strings.TrimSpace(x)
	case float64:
		s = fmt.Sprintf("%.0f", x)
	case json.Number:
		s = x.String()
	default:
		s = fmt.Sprint(x)
	}
	if s == "" {
		return ""
	}
	if !isDigits(s) {
		return s
	}
	for len(s) < 4 {
		s = "0" + s
	}
	return s
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
