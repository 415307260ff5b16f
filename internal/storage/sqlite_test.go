package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	logx "palwatch/pkg/logx"
)

func TestSQLiteRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	be, err := Open(Config{
		Driver:      "sqlite",
		Path:        filepath.Join(dir, "subs.db"),
		BusyTimeout: 2 * time.Second,
	}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer be.Close()

	ctx := context.Background()

	want := map[int64][]string{
		1: {"second", "first"}, // insertion order must survive, not sort order
		2: {"楓葉"},
	}
	if err := be.SaveKeywords(ctx, want); err != nil {
		t.Fatalf("SaveKeywords: %v", err)
	}
	got, err := be.LoadKeywords(ctx)
	if err != nil {
		t.Fatalf("LoadKeywords: %v", err)
	}
	if got[1][0] != "second" || got[1][1] != "first" {
		t.Fatalf("keyword order not preserved: %v", got[1])
	}
	if got[2][0] != "楓葉" {
		t.Fatalf("LoadKeywords = %v", got)
	}

	// Saving again fully replaces the previous state.
	if err := be.SaveKeywords(ctx, map[int64][]string{1: {"only"}}); err != nil {
		t.Fatalf("SaveKeywords (replace): %v", err)
	}
	got, err = be.LoadKeywords(ctx)
	if err != nil {
		t.Fatalf("LoadKeywords: %v", err)
	}
	if len(got) != 1 || len(got[1]) != 1 || got[1][0] != "only" {
		t.Fatalf("replace semantics broken: %v", got)
	}

	if err := be.SaveChannels(ctx, map[int64]int64{1: -100}); err != nil {
		t.Fatalf("SaveChannels: %v", err)
	}
	chans, err := be.LoadChannels(ctx)
	if err != nil {
		t.Fatalf("LoadChannels: %v", err)
	}
	if chans[1] != -100 {
		t.Fatalf("LoadChannels = %v", chans)
	}
}
