package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/meshrepublic/kudzu/internal/clock"
	"github.com/meshrepublic/kudzu/internal/trace"
)

func newTestController(t *testing.T) (*Controller, *fakeClock) {
	t.Helper()
	dir := t.TempDir()
	warm, err := OpenWarmTier(filepath.Join(dir, "warm.db"))
	if err != nil {
		t.Fatalf("open warm tier: %v", err)
	}
	t.Cleanup(func() { warm.Close() })

	cold := NewColdTier(nil, "kudzu-test")
	hot := NewHotTier()
	fc := &fakeClock{now: time.Now()}
	ctrl := NewController(hot, warm, cold, DefaultAgingConfig(), nil)
	ctrl.clock = fc.Now
	return ctrl, fc
}

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }
func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func testRecord(id string, imp trace.Importance, lastAccessed time.Time) Record {
	return Record{
		TraceID:      id,
		HologramID:   "H1",
		Purpose:      trace.PurposeMemory,
		Hint:         trace.Hint{"content": "x"},
		Origin:       "H1",
		Path:         []string{"H1"},
		Clock:        clock.New().Increment("H1"),
		CreatedAt:    lastAccessed,
		LastAccessed: lastAccessed,
		Importance:   imp,
	}
}

func TestTieredAgingScenario(t *testing.T) {
	ctrl, fc := newTestController(t)
	ctx := context.Background()

	r := testRecord("t1", trace.ImportanceNormal, fc.now)
	if err := ctrl.Store(ctx, r); err != nil {
		t.Fatalf("store: %v", err)
	}

	fc.Advance(3600 * time.Second)
	ctrl.RunAging(ctx)

	if _, ok, _ := ctrl.hot.Get(ctx, "t1"); ok {
		t.Fatalf("expected trace demoted out of hot tier")
	}
	tier, _, err := ctrl.Retrieve(ctx, "t1")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if tier != TierWarm {
		t.Fatalf("expected first retrieve to report warm, got %s", tier)
	}

	tier2, _, err := ctrl.Retrieve(ctx, "t1")
	if err != nil {
		t.Fatalf("retrieve after promotion: %v", err)
	}
	if tier2 != TierHot {
		t.Fatalf("expected promoted trace to now be in hot tier, got %s", tier2)
	}
}

func TestStoreSameTraceTwiceYieldsOneRecord(t *testing.T) {
	ctrl, _ := newTestController(t)
	ctx := context.Background()
	r := testRecord("dup", trace.ImportanceNormal, time.Now())
	_ = ctrl.Store(ctx, r)
	_ = ctrl.Store(ctx, r)
	results, err := ctrl.Query(ctx, string(trace.PurposeMemory), 0)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	count := 0
	for _, res := range results {
		if res.TraceID == "dup" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one record for duplicate id, got %d", count)
	}
}

func TestCriticalRecordsNeverAge(t *testing.T) {
	ctrl, fc := newTestController(t)
	ctx := context.Background()
	r := testRecord("critical1", trace.ImportanceCritical, fc.now)
	_ = ctrl.Store(ctx, r)
	fc.Advance(30 * 24 * time.Hour)
	ctrl.RunAging(ctx)
	if _, ok, _ := ctrl.hot.Get(ctx, "critical1"); !ok {
		t.Fatalf("expected critical record to remain in hot tier")
	}
}

func TestRetrieveNotFound(t *testing.T) {
	ctrl, _ := newTestController(t)
	_, _, err := ctrl.Retrieve(context.Background(), "nope")
	if err == nil {
		t.Fatalf("expected NotFound error")
	}
}
