package watch

import (
	"fmt"
	"testing"
	"time"
)

func TestDedupSeenRecord(t *testing.T) {
	t.Parallel()
	c := NewDedup(10, 5)

	m := Message{Text: "收楓葉 1:100", Channel: "0042", ObservedAt: time.Now()}
	fp := m.Fingerprint()

	if c.Seen(fp) {
		t.Fatal("fresh cache should not contain fingerprint")
	}
	c.Record(fp)
	if !c.Seen(fp) {
		t.Fatal("recorded fingerprint should be seen")
	}

	// Same text in another channel collapses to the same fingerprint.
	other := Message{Text: "收楓葉 1:100", Channel: "0007", Author: "someone"}
	if other.Fingerprint() != fp {
		t.Fatal("fingerprint should depend on text only")
	}
}

func TestDedupShrinksAtCeiling(t *testing.T) {
	t.Parallel()
	c := NewDedup(100, 40)

	for i := 0; i < 100; i++ {
		c.Record(Message{Text: fmt.Sprintf("line %d", i)}.Fingerprint())
	}
	if got := c.Len(); got != 100 {
		t.Fatalf("Len = %d, want 100", got)
	}

	// The next insert crosses the ceiling: shrink to floor, then add one.
	c.Record(Message{Text: "line 100"}.Fingerprint())
	if got := c.Len(); got != 41 {
		t.Fatalf("Len after shrink = %d, want 41", got)
	}
	if !c.Seen(Message{Text: "line 100"}.Fingerprint()) {
		t.Fatal("newest fingerprint must survive the shrink")
	}
}

func TestDedupDefaults(t *testing.T) {
	t.Parallel()
	c := NewDedup(0, 0)
	if c.ceiling != DefaultDedupCeiling {
		t.Fatalf("ceiling = %d", c.ceiling)
	}
	if c.floor != DefaultDedupCeiling/2 {
		t.Fatalf("floor = %d", c.floor)
	}

	// Recording the same fingerprint twice does not grow the cache.
	fp := Message{Text: "dup"}.Fingerprint()
	c.Record(fp)
	c.Record(fp)
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
}
