package ingestion

import (
	"fmt"
	"testing"
)

func TestDeduperCatchesRedelivery(t *testing.T) {
	d := NewDeduper(10)

	if d.IsDuplicate("CreateTrade", "cmd-1") {
		t.Error("unseen command flagged as duplicate")
	}
	d.MarkProcessed("CreateTrade", "cmd-1")
	if !d.IsDuplicate("CreateTrade", "cmd-1") {
		t.Error("processed command not flagged as duplicate")
	}
	// Same id under a different type is a different command.
	if d.IsDuplicate("DenyTrade", "cmd-1") {
		t.Error("type is not part of the dedup key")
	}
}

func TestDeduperEvictsOldest(t *testing.T) {
	d := NewDeduper(3)
	for i := 0; i < 4; i++ {
		d.MarkProcessed("CreateTrade", fmt.Sprintf("cmd-%d", i))
	}

	if d.Size() != 3 {
		t.Errorf("Size = %d, want 3", d.Size())
	}
	if d.Evictions() != 1 {
		t.Errorf("Evictions = %d, want 1", d.Evictions())
	}
	if d.IsDuplicate("CreateTrade", "cmd-0") {
		t.Error("oldest entry should have been evicted")
	}
	if !d.IsDuplicate("CreateTrade", "cmd-3") {
		t.Error("newest entry missing")
	}
}

func TestDeduperHitPromotes(t *testing.T) {
	d := NewDeduper(3)
	d.MarkProcessed("CreateTrade", "cmd-0")
	d.MarkProcessed("CreateTrade", "cmd-1")
	d.MarkProcessed("CreateTrade", "cmd-2")

	// Touch cmd-0 so cmd-1 becomes the eviction candidate.
	d.IsDuplicate("CreateTrade", "cmd-0")
	d.MarkProcessed("CreateTrade", "cmd-3")

	if !d.IsDuplicate("CreateTrade", "cmd-0") {
		t.Error("promoted entry was evicted")
	}
	if d.IsDuplicate("CreateTrade", "cmd-1") {
		t.Error("least recently used entry survived")
	}
}

func TestDeduperMarkIsIdempotent(t *testing.T) {
	d := NewDeduper(3)
	d.MarkProcessed("CreateTrade", "cmd-0")
	d.MarkProcessed("CreateTrade", "cmd-0")
	if d.Size() != 1 {
		t.Errorf("Size = %d, want 1", d.Size())
	}
}

func TestDeduperEvictionHook(t *testing.T) {
	d := NewDeduper(2)
	var fired int64
	d.OnEvict(func() { fired++ })

	for i := 0; i < 5; i++ {
		d.MarkProcessed("CreateTrade", fmt.Sprintf("cmd-%d", i))
	}

	if fired != 3 {
		t.Errorf("hook fired %d times, want 3", fired)
	}
	if fired != d.Evictions() {
		t.Errorf("hook count %d != Evictions %d", fired, d.Evictions())
	}
}
