package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"palwatch/internal/eventbus"
	"palwatch/internal/watch"
	logx "palwatch/pkg/logx"
)

// wsServer serves one websocket connection per request, writing the frames
// it is given and then holding the connection open.
func wsServer(t *testing.T, frames <-chan string) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
	}))
}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestManagerIngestAndDrain(t *testing.T) {
	t.Parallel()
	frames := make(chan string, 4)
	srv := wsServer(t, frames)
	defer srv.Close()

	bus := eventbus.New()
	events, unsub := bus.Subscribe(8)
	defer unsub()

	m := NewManager(Config{URL: wsURL(srv), BufferSize: 10}, logx.Nop(), bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Run(ctx) }()

	frames <- `{"channel": 1, "username": "u", "text": "hello"}`
	frames <- `[{"channel": 2, "username": "v", "text": "a"}, {"channel": 2, "username": "v", "text": "b"}]`

	waitFor(t, 3*time.Second, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.buf) == 3
	})

	if !m.Connected() {
		t.Fatal("manager should report connected")
	}
	if m.LastMessage().IsZero() {
		t.Fatal("LastMessage should be set")
	}

	got := m.Drain()
	if len(got) != 3 || got[0].Text != "hello" || got[2].Text != "b" {
		t.Fatalf("Drain = %+v", got)
	}
	if len(m.Drain()) != 0 {
		t.Fatal("second Drain should be empty")
	}

	// A connect event was published.
	select {
	case e := <-events:
		if e.Type != eventbus.FeedConnected {
			t.Fatalf("event = %q", e.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("no feed.connected event")
	}
}

func TestManagerDropsOldestWhenFull(t *testing.T) {
	t.Parallel()
	m := NewManager(Config{URL: "ws://unused", BufferSize: 3}, logx.Nop(), nil)
	for i := 0; i < 5; i++ {
		m.push(mkMsg(fmt.Sprintf("m%d", i)))
	}
	got := m.Drain()
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// m0 and m1 were evicted.
	if got[0].Text != "m2" || got[2].Text != "m4" {
		t.Fatalf("Drain = %+v", got)
	}
	m.mu.Lock()
	dropped := m.dropped
	m.mu.Unlock()
	if dropped != 2 {
		t.Fatalf("dropped = %d, want 2", dropped)
	}
}

func TestManagerReconnects(t *testing.T) {
	t.Parallel()
	var conns int
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conns++
		n := conns
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(fmt.Sprintf(`{"channel":1,"username":"u","text":"conn %d"}`, n)))
		// First connection is cut immediately to force a reconnect.
		if n == 1 {
			conn.Close()
			return
		}
		defer conn.Close()
		<-r.Context().Done()
	}))
	defer srv.Close()

	m := NewManager(Config{URL: wsURL(srv), ReconnectDelay: 50 * time.Millisecond, BufferSize: 10}, logx.Nop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Run(ctx) }()

	waitFor(t, 5*time.Second, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.buf) >= 2
	})

	got := m.Drain()
	if got[0].Text != "conn 1" || got[1].Text != "conn 2" {
		t.Fatalf("Drain = %+v", got)
	}
}

func mkMsg(text string) watch.Message {
	return watch.Message{Text: text, Channel: "0001", ObservedAt: time.Now()}
}
