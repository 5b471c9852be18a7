package cache

import (
	"path/filepath"
	"testing"
	"time"

	"scanguard/internal/model"
)

func TestSetThenGetRoundTrips(t *testing.T) {
	c := New("", "v1", time.Hour, 100, 0)
	content := []byte("hello world")
	findings := []model.Finding{{RuleID: "R1", File: "f.txt", Severity: model.SeverityLow}}

	if err := c.Set("f.txt", content, findings); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok := c.Get("f.txt", content)
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if len(got) != 1 || got[0].RuleID != "R1" {
		t.Fatalf("unexpected findings: %+v", got)
	}
}

func TestGetMissesAfterContentChanges(t *testing.T) {
	c := New("", "v1", time.Hour, 100, 0)
	c.Set("f.txt", []byte("original"), []model.Finding{{RuleID: "R1"}})
	_, ok := c.Get("f.txt", []byte("changed"))
	if ok {
		t.Fatalf("expected miss after content change")
	}
}

func TestGetMissesOnRuleVersionChange(t *testing.T) {
	c := New("", "v1", time.Hour, 100, 0)
	content := []byte("data")
	c.Set("f.txt", content, []model.Finding{{RuleID: "R1"}})
	c.ruleVersion = "v2"
	_, ok := c.Get("f.txt", content)
	if ok {
		t.Fatalf("expected miss after rule version changed")
	}
}

func TestGetMissesAfterTTLExpiry(t *testing.T) {
	c := New("", "v1", 1*time.Nanosecond, 100, 0)
	content := []byte("data")
	c.Set("f.txt", content, []model.Finding{{RuleID: "R1"}})
	time.Sleep(2 * time.Millisecond)
	_, ok := c.Get("f.txt", content)
	if ok {
		t.Fatalf("expected miss after TTL expiry")
	}
}

func TestSetEvictsOldestWhenOverEntryBudget(t *testing.T) {
	c := New("", "v1", time.Hour, 2, 0)
	c.Set("a.txt", []byte("a"), []model.Finding{{RuleID: "A"}})
	time.Sleep(2 * time.Millisecond)
	c.Set("b.txt", []byte("b"), []model.Finding{{RuleID: "B"}})
	time.Sleep(2 * time.Millisecond)
	c.Set("c.txt", []byte("c"), []model.Finding{{RuleID: "C"}})

	if c.Len() > 2 {
		t.Fatalf("expected eviction to keep entry count at or below budget, got %d", c.Len())
	}
	if _, ok := c.Get("a.txt", []byte("a")); ok {
		t.Fatalf("expected oldest entry a.txt to have been evicted")
	}
	if _, ok := c.Get("c.txt", []byte("c")); !ok {
		t.Fatalf("expected newest entry c.txt to survive")
	}
}

func TestPersistAndOpenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan-cache.json")

	c := New(path, "v1", time.Hour, 100, 0)
	content := []byte("persisted content")
	c.Set("p.txt", content, []model.Finding{{RuleID: "P", Severity: model.SeverityHigh}})
	if err := c.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	reopened, err := Open(path, "v1", time.Hour, 100, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, ok := reopened.Get("p.txt", content)
	if !ok {
		t.Fatalf("expected hit after reopen")
	}
	if len(got) != 1 || got[0].RuleID != "P" {
		t.Fatalf("unexpected reopened findings: %+v", got)
	}
}

func TestOpenDropsEntriesWithStaleRuleVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan-cache.json")

	c := New(path, "v1", time.Hour, 100, 0)
	c.Set("p.txt", []byte("x"), []model.Finding{{RuleID: "P"}})
	c.Persist()

	reopened, err := Open(path, "v2", time.Hour, 100, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if reopened.Len() != 0 {
		t.Fatalf("expected stale rule-version entries dropped, got %d", reopened.Len())
	}
}

func TestGetOnUnknownPathMisses(t *testing.T) {
	c := New("", "v1", time.Hour, 100, 0)
	if _, ok := c.Get("missing.txt", []byte("x")); ok {
		t.Fatalf("expected miss for unknown path")
	}
}
