package trace

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/meshrepublic/kudzu/internal/clock"
)

func TestContentAddressedDeduplication(t *testing.T) {
	now := time.Now()
	c := clock.New()
	hint := Hint{"content": "hello world"}

	t1 := New("H1", PurposeMemory, hint, c, DefaultOptions(), now)
	t2 := New("H1", PurposeMemory, hint, c, DefaultOptions(), now.Add(time.Minute))

	if t1.ID != t2.ID {
		t.Fatalf("expected identical ids for identical (origin,purpose,hint), got %s vs %s", t1.ID, t2.ID)
	}
	want := ComputeContentHash("H1", PurposeMemory, hint)
	if t1.ID != want {
		t.Fatalf("expected id %s, got %s", want, t1.ID)
	}
}

func TestVerifyIntegrity(t *testing.T) {
	now := time.Now()
	tr := New("H1", PurposeObservation, Hint{"content": "x"}, clock.New(), DefaultOptions(), now)
	if !tr.VerifyIntegrity() {
		t.Fatalf("expected integrity check to pass")
	}
	tr.ReconstructionHint = Hint{"content": "tampered"}
	if tr.VerifyIntegrity() {
		t.Fatalf("expected integrity check to fail after tampering")
	}
}

func TestFollowSkipsConsecutiveDuplicate(t *testing.T) {
	now := time.Now()
	tr := New("H1", PurposeThought, Hint{}, clock.New(), DefaultOptions(), now)
	f1 := Follow(tr, "H2")
	if len(f1.Path) != 2 || f1.Path[1] != "H2" {
		t.Fatalf("expected path to gain H2, got %v", f1.Path)
	}
	f2 := Follow(f1, "H2")
	if len(f2.Path) != 2 {
		t.Fatalf("expected duplicate follower to be skipped, got %v", f2.Path)
	}
	if f2.Timestamp.Get("H2") != 2 {
		t.Fatalf("expected clock to still increment on repeat follow, got %d", f2.Timestamp.Get("H2"))
	}
}

func TestPathInvariant(t *testing.T) {
	tr := New("H1", PurposeMemory, Hint{}, clock.New(), DefaultOptions(), time.Now())
	if !tr.PathValid() {
		t.Fatalf("expected freshly constructed trace to have a valid path")
	}
}

func TestMergeIncompatible(t *testing.T) {
	now := time.Now()
	a := New("H1", PurposeMemory, Hint{"a": 1.0}, clock.New(), DefaultOptions(), now)
	b := New("H2", PurposeMemory, Hint{"b": 2.0}, clock.New(), DefaultOptions(), now)
	if _, err := Merge(a, b); err == nil {
		t.Fatalf("expected IncompatibleTraces error for differing origins")
	}
}

func TestWireRoundTrip(t *testing.T) {
	now := time.Now()
	tr := New("H1", PurposeRelationship, Hint{
		"type": "relationship", "subject": "a", "relation": "b", "object": "c",
		"nested": map[string]interface{}{"k": "v"},
	}, clock.New().Increment("H1"), DefaultOptions(), now)
	tr.Salience = tr.Salience.OnAccess(now.Add(time.Hour))

	data, err := tr.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Trace
	if err := back.UnmarshalJSON(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	// Compare field by field; Salience carries time.Time truncated to
	// nanoseconds via UnixNano which round-trips exactly.
	if diff := cmp.Diff(tr.ReconstructionHint, back.ReconstructionHint); diff != "" {
		t.Fatalf("hint mismatch: %s", diff)
	}
	if tr.ID != back.ID || tr.ContentHash != back.ContentHash || tr.Purpose != back.Purpose {
		t.Fatalf("identity fields did not round-trip: %+v vs %+v", tr, back)
	}
	if clock.Compare(tr.Timestamp, back.Timestamp) != clock.Equal {
		t.Fatalf("clock did not round-trip")
	}
}
