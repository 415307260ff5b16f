package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	logx "palwatch/pkg/logx"
)

type fakeStats struct {
	connected bool
	lastFeed  time.Time
	lastRun   time.Time
	subs, kws int
}

func (f *fakeStats) FeedConnected() bool             { return f.connected }
func (f *fakeStats) LastFeedMessage() time.Time      { return f.lastFeed }
func (f *fakeStats) LastDispatch() time.Time         { return f.lastRun }
func (f *fakeStats) SubscriptionCounts() (int, int)  { return f.subs, f.kws }

func testServer(stats Stats) *Server {
	return NewServer(Config{}, stats, logx.Nop())
}

func TestHandleStatus(t *testing.T) {
	t.Parallel()
	now := time.Now()
	s := testServer(&fakeStats{connected: true, lastFeed: now, lastRun: now, subs: 3, kws: 9})

	rec := httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["feed_connected"] != true {
		t.Fatalf("payload = %v", got)
	}
	if got["subscribers"].(float64) != 3 || got["keywords"].(float64) != 9 {
		t.Fatalf("payload = %v", got)
	}
	if got["last_feed_message"] == "" {
		t.Fatal("last_feed_message missing")
	}
}

func TestHandleStatusZeroTimes(t *testing.T) {
	t.Parallel()
	s := testServer(&fakeStats{})

	rec := httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, present := got["last_feed_message"]; present {
		t.Fatal("zero time should be omitted")
	}
}

func TestHandleHealthz(t *testing.T) {
	t.Parallel()
	s := testServer(&fakeStats{})
	rec := httptest.NewRecorder()
	s.handleHealthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok\n" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestHandleRoot(t *testing.T) {
	t.Parallel()
	s := testServer(&fakeStats{connected: true, lastFeed: time.Now(), subs: 2, kws: 5})
	rec := httptest.NewRecorder()
	s.handleRoot(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("content type = %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{"feed: connected", "subscribers: 2", "keywords: 5"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
}

func TestHandleRootNotFound(t *testing.T) {
	t.Parallel()
	s := testServer(&fakeStats{})
	rec := httptest.NewRecorder()
	s.handleRoot(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d", rec.Code)
	}
}
