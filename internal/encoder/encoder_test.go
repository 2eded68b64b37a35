package encoder

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTokenizeDropsStopwordsAndShortTokens(t *testing.T) {
	tokens := Tokenize(map[string]interface{}{
		"content": "The HologramRegistry is not in the supervision tree!",
	})
	set := map[string]struct{}{}
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	if _, ok := set["the"]; ok {
		t.Fatalf("stopword leaked into tokens: %v", tokens)
	}
	if _, ok := set["is"]; ok {
		t.Fatalf("stopword leaked into tokens: %v", tokens)
	}
	if _, ok := set["content_hologramregistry"]; !ok {
		t.Fatalf("expected field-label-prefixed bigram, got %v", tokens)
	}
}

func TestCoOccurrenceSymmetric(t *testing.T) {
	s := New(64)
	s.UpdateCoOccurrence([]string{"alpha", "beta", "gamma"})
	if s.CoOccurrenceWeight("alpha", "beta") != s.CoOccurrenceWeight("beta", "alpha") {
		t.Fatalf("co-occurrence not symmetric")
	}
	if s.CoOccurrenceWeight("alpha", "beta") != 1.0 {
		t.Fatalf("expected weight 1.0 after first update, got %f", s.CoOccurrenceWeight("alpha", "beta"))
	}
}

func TestDeepMaintainPrunesBelowThreshold(t *testing.T) {
	s := New(64)
	s.UpdateCoOccurrence([]string{"a", "b"})
	// Exactly 1.0 after one update; decaying by 0.98 drops it to 0.98 < 1.0.
	s.DeepMaintain()
	if s.CoOccurrenceWeight("a", "b") != 0 {
		t.Fatalf("expected pruning of weight at exactly 1.0 after decay, got %f", s.CoOccurrenceWeight("a", "b"))
	}
}

func TestTokenVectorFallsBackToBaseWhenNoNeighbors(t *testing.T) {
	s := New(64)
	v := s.TokenVector("lonely")
	base := s.TokenVector("lonely")
	if v.Norm() == 0 {
		t.Fatalf("expected nonzero vector")
	}
	if v.Data[0] != base.Data[0] {
		t.Fatalf("expected deterministic token vector")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "encoder.state")

	s := New(64)
	s.UpdateCoOccurrence([]string{"x", "y", "z"})
	s.IncrementTracesProcessed()
	if err := s.SaveToFile(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, ok := LoadFromFile(path, 64)
	if !ok {
		t.Fatalf("expected successful load")
	}
	if loaded.TracesProcessed != 1 {
		t.Fatalf("expected traces_processed=1, got %d", loaded.TracesProcessed)
	}
	if loaded.CoOccurrenceWeight("x", "y") != s.CoOccurrenceWeight("x", "y") {
		t.Fatalf("co-occurrence did not round-trip")
	}
}

func TestLoadMissingFileColdStarts(t *testing.T) {
	loaded, ok := LoadFromFile(filepath.Join(os.TempDir(), "does-not-exist-kudzu"), 64)
	if ok {
		t.Fatalf("expected ok=false for missing file")
	}
	if loaded.TracesProcessed != 0 {
		t.Fatalf("expected empty fresh state")
	}
}
