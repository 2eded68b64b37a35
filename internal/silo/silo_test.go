package silo

import (
	"context"
	"testing"

	"github.com/meshrepublic/kudzu/internal/hologram"
)

func TestFindOrCreateIsIdempotentAndConfiguresSilo(t *testing.T) {
	reg := hologram.NewRegistry(t.TempDir())
	first, err := FindOrCreate(reg, "erlang_otp", nil)
	if err != nil {
		t.Fatalf("find or create: %v", err)
	}
	if first.Domain != "erlang_otp" {
		t.Fatalf("unexpected domain %s", first.Domain)
	}

	second, err := FindOrCreate(reg, "erlang_otp", nil)
	if err != nil {
		t.Fatalf("find or create again: %v", err)
	}
	if first.state != second.state {
		t.Fatalf("expected the second call to return the same underlying hologram")
	}
}

func TestStoreAndProbeRanksBySimilarity(t *testing.T) {
	reg := hologram.NewRegistry(t.TempDir())
	s, err := FindOrCreate(reg, "erlang_otp", nil)
	if err != nil {
		t.Fatalf("find or create: %v", err)
	}
	ctx := context.Background()
	if _, err := s.Store(ctx, "supervisor", "manages", "worker_pool"); err != nil {
		t.Fatalf("store: %v", err)
	}
	if _, err := s.Store(ctx, "unrelated_topic", "touches", "something_else"); err != nil {
		t.Fatalf("store: %v", err)
	}

	matches := s.Probe("supervisor")
	if len(matches) != 2 {
		t.Fatalf("expected two matches, got %d", len(matches))
	}
	if matches[0].Hint["subject"] != "supervisor" {
		t.Fatalf("expected exact subject match to rank first, got %v", matches[0].Hint["subject"])
	}
	if matches[0].Similarity <= matches[1].Similarity {
		t.Fatalf("expected first match to score higher than the second")
	}
}

func TestConfidenceBands(t *testing.T) {
	cases := map[float64]ConfidenceBand{
		0.9: ConfidenceHigh,
		0.7: ConfidenceModerate,
		0.5: ConfidenceModerate,
		0.4: ConfidenceModerate,
		0.1: ConfidenceLow,
	}
	for sim, want := range cases {
		if got := Band(sim); got != want {
			t.Fatalf("Band(%v) = %v, want %v", sim, got, want)
		}
	}
}

func TestCrossQueryMergesAcrossSilos(t *testing.T) {
	reg := hologram.NewRegistry(t.TempDir())
	ctx := context.Background()
	a, _ := FindOrCreate(reg, "erlang_otp", nil)
	b, _ := FindOrCreate(reg, "distributed_systems", nil)
	_, _ = a.Store(ctx, "supervisor", "manages", "worker_pool")
	_, _ = b.Store(ctx, "raft", "implements", "consensus")

	merged := CrossQuery([]*Silo{a, b}, "supervisor")
	if len(merged) != 2 {
		t.Fatalf("expected matches from both silos, got %d", len(merged))
	}
	if merged[0].Domain != "erlang_otp" {
		t.Fatalf("expected erlang_otp's exact match to rank first, got %s", merged[0].Domain)
	}
}
