package engine

import (
	"testing"
	"time"

	"sleepsafe/internal/model"
)

func cacheEvent(i int) model.DetectionEvent {
	return model.DetectionEvent{
		Timestamp:  time.Date(2026, 8, 1, 0, 0, i, 0, time.UTC),
		EARValue:   0.1,
		IsDrowsy:   true,
		DurationMS: i,
		Severity:   model.SeverityLow,
	}
}

func TestCacheEviction(t *testing.T) {
	c := NewCache(5)
	for i := 0; i < 8; i++ {
		c.Append(cacheEvent(i))
	}
	if c.Len() != 5 {
		t.Fatalf("len after eviction: got %d, want 5", c.Len())
	}
	snap := c.Snapshot()
	for i, ev := range snap {
		if ev.DurationMS != i+3 {
			t.Fatalf("retained[%d]: got event %d, want %d", i, ev.DurationMS, i+3)
		}
	}
}

func TestCacheRecentTail(t *testing.T) {
	c := NewCache(100)
	for i := 0; i < 10; i++ {
		c.Append(cacheEvent(i))
	}
	tail := c.Recent(3)
	if len(tail) != 3 {
		t.Fatalf("recent(3): got %d entries", len(tail))
	}
	for i, ev := range tail {
		if ev.DurationMS != i+7 {
			t.Fatalf("tail[%d]: got event %d, want %d", i, ev.DurationMS, i+7)
		}
	}
	if got := c.Recent(0); len(got) != 0 {
		t.Fatalf("recent(0): got %d entries, want 0", len(got))
	}
	if got := c.Recent(50); len(got) != 10 {
		t.Fatalf("recent beyond size: got %d entries, want 10", len(got))
	}
}

func TestCacheClear(t *testing.T) {
	c := NewCache(10)
	for i := 0; i < 4; i++ {
		c.Append(cacheEvent(i))
	}
	if got := c.Clear(); got != 4 {
		t.Fatalf("clear: got %d, want 4", got)
	}
	if got := c.Clear(); got != 0 {
		t.Fatalf("second clear: got %d, want 0", got)
	}
	if c.Len() != 0 {
		t.Fatalf("len after clear: got %d", c.Len())
	}
}
