package feed

import (
	"testing"
	"time"
)

func TestDecodeFrameSingle(t *testing.T) {
	t.Parallel()
	now := time.Now()
	msgs, err := decodeFrame([]byte(`{"channel": 42, "username": "seller", "text": "收楓葉 1:100", "timestamp": 1723968000}`), now)
	if err != nil {
		t.Fatalf("decodeFrame: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages", len(msgs))
	}
	m := msgs[0]
	if m.Text != "收楓葉 1:100" || m.Channel != "0042" || m.Author != "seller" {
		t.Fatalf("message = %+v", m)
	}
	if !m.ObservedAt.Equal(now) {
		t.Fatal("ObservedAt should be the local observation time")
	}
}

func TestDecodeFrameArray(t *testing.T) {
	t.Parallel()
	data := []byte(`[
		{"channel": "7", "username": "a", "text": "first"},
		{"channel": 3362, "username": "b", "text": "second"},
		{"channel": 1, "username": "c", "text": "   "}
	]`)
	msgs, err := decodeFrame(data, time.Now())
	if err != nil {
		t.Fatalf("decodeFrame: %v", err)
	}
	// The blank-text record is skipped.
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Channel != "0007" || msgs[1].Channel != "3362" {
		t.Fatalf("channels = %q, %q", msgs[0].Channel, msgs[1].Channel)
	}
}

func TestDecodeFrameErrors(t *testing.T) {
	t.Parallel()
	if _, err := decodeFrame([]byte(`{broken`), time.Now()); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := decodeFrame([]byte(`[{"text": 1}]`), time.Now()); err == nil {
		t.Fatal("expected type error")
	}
	msgs, err := decodeFrame([]byte("   "), time.Now())
	if err != nil || msgs != nil {
		t.Fatalf("blank frame: %v %v", msgs, err)
	}
}

func TestChannelLabel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{float64(1), "0001"},
		{float64(42), "0042"},
		{float64(3362), "3362"},
		{float64(12345), "12345"},
		{"7", "0007"},
		{"  0042 ", "0042"},
		{"lobby", "lobby"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := channelLabel(tt.in); got != tt.want {
			t.Fatalf("channelLabel(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
