package feed

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"palwatch/internal/watch"
)

// sampleLines mimic typical trade/recruit chatter so keyword flows can be
// exercised without the live feed.
var sampleLines = []string{
	"3362頻6洞收拳套攻擊10% 1:5雪/收拉圖斯腰帶談價",
	"收楓葉 1:100 大量收購",
	"賣+7武器 屬性優秀 價格面議",
	"組隊打扎昆 缺坦克和治療",
	"公會招募 歡迎新手加入",
}

// Synthetic is a stand-in Source that trickles sample messages: every
// tenth Drain produces one line, the rest produce nothing. The trickle
// keeps dispatch output readable while still exercising the full path.
type Synthetic struct {
	calls   atomic.Uint64
	lastMsg atomic.Int64
	rng     *rand.Rand
}

func NewSynthetic() *Synthetic {
	return &Synthetic{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (s *Synthetic) Connected() bool { return true }

func (s *Synthetic) LastMessage() time.Time {
	ns := s.lastMsg.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

func (s *Synthetic) Drain() []watch.Message {
	n := s.calls.Add(1)
	if n%10 != 0 {
		return nil
	}
	now := time.Now()
	s.lastMsg.Store(now.UnixNano())
	line := sampleLines[s.rng.Intn(len(sampleLines))]
	return []watch.Message{{
		// Suffix a counter so repeated samples aren't suppressed as duplicates.
		Text:       fmt.Sprintf("%s #%d", line, n/10),
		Channel:    "0000",
		Author:     "synthetic",
		ObservedAt: now,
	}}
}
