package brain

import (
	"context"
	"testing"

	"github.com/meshrepublic/kudzu/internal/hologram"
	"github.com/meshrepublic/kudzu/internal/silo"
)

func TestExtractChainsCoversNineRelationPhrases(t *testing.T) {
	// The tenth phrase, "because", is covered by TestExtractChainsCausedByViaBecause.
	cases := []struct {
		text     string
		relation string
		subject  string
		object   string
	}{
		{"The outage is caused by network failure", "caused_by", "the_outage", "network_failure"},
		{"overwork leads to burnout", "leads_to", "overwork", "burnout"},
		{"the build requires docker", "requires", "the_build", "docker"},
		{"the service uses redis", "uses", "the_service", "redis"},
		{"a supervisor is a process", "is_a", "a_supervisor", "process"},
		{"the registry contains holograms", "contains", "the_registry", "holograms"},
		{"memory relates to cognition", "relates_to", "memory", "cognition"},
		{"the encoder produces vectors", "produces", "the_encoder", "vectors"},
		{"the silo provides triples", "provides", "the_silo", "triples"},
	}

	for _, c := range cases {
		triples := ExtractChains(c.text)
		if len(triples) == 0 {
			t.Fatalf("%q: expected at least one triple, got none", c.text)
		}
		found := false
		for _, tr := range triples {
			if tr.Relation == c.relation && tr.Subject == c.subject && tr.Object == c.object {
				found = true
			}
		}
		if !found {
			t.Fatalf("%q: expected {%s %s %s}, got %v", c.text, c.subject, c.relation, c.object, triples)
		}
	}
}

func TestExtractChainsCausedByViaBecause(t *testing.T) {
	triples := ExtractChains("performance degraded because memory pressure lingered")
	found := false
	for _, tr := range triples {
		if tr.Relation == "caused_by" && tr.Subject == "performance_degraded" && tr.Object == "memory_pressure_lingered" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a caused_by triple via because, got %v", triples)
	}
}

func TestNormalizeTermLowercasesAndUnderscoreJoins(t *testing.T) {
	got := normalizeTerm("  The Worker-Pool!! ")
	if got != "the_worker_pool" {
		t.Fatalf("expected the_worker_pool, got %q", got)
	}
}

func TestStoreTriplesRecordsIntoDomainSilo(t *testing.T) {
	reg := hologram.NewRegistry(t.TempDir())
	triples := []ExtractedTriple{{Subject: "supervisor", Relation: "manages", Object: "worker_pool"}}

	if err := StoreTriples(context.Background(), reg, nil, "erlang_otp", triples); err != nil {
		t.Fatalf("store triples: %v", err)
	}

	s, err := silo.FindOrCreate(reg, "erlang_otp", nil)
	if err != nil {
		t.Fatalf("find or create: %v", err)
	}
	matches := s.Probe("supervisor")
	if len(matches) == 0 || matches[0].Similarity < 0.99 {
		t.Fatalf("expected the stored triple's subject to probe back at near-1.0 similarity, got %v", matches)
	}
}

func TestProposeReflexCandidatesOnlyCausalMatchingAvailableActions(t *testing.T) {
	triples := []ExtractedTriple{
		{Subject: "disk_full", Relation: "caused_by", Object: "restart_service"},
		{Subject: "disk_full", Relation: "requires", Object: "restart_service"}, // not causal
		{Subject: "cpu_spike", Relation: "leads_to", Object: "unknown_action"},  // not an available action
	}
	proposals := ProposeReflexCandidates(triples, []string{"restart_service"})

	if len(proposals) != 1 {
		t.Fatalf("expected exactly 1 proposal, got %d: %v", len(proposals), proposals)
	}
	p := proposals[0]
	if p.Name != "restart_service" || p.Kind != ReflexAct {
		t.Fatalf("unexpected proposal: %v", p)
	}
	if p.Payload["status"] != "pending_approval" {
		t.Fatalf("expected proposal to require approval, got %v", p.Payload)
	}
}

func TestFindKnowledgeGapsSkipsCoveredTerms(t *testing.T) {
	reg := hologram.NewRegistry(t.TempDir())
	s, err := silo.FindOrCreate(reg, "erlang_otp", nil)
	if err != nil {
		t.Fatalf("find or create: %v", err)
	}
	if _, err := s.Store(context.Background(), "supervisor", "manages", "worker_pool"); err != nil {
		t.Fatalf("store: %v", err)
	}

	gaps := FindKnowledgeGaps("the supervisor handles restartlogic", []*silo.Silo{s})

	for _, g := range gaps {
		if g == "What is supervisor?" {
			t.Fatalf("expected the already-covered term supervisor to not be a gap, got %v", gaps)
		}
	}
	foundUncovered := false
	for _, g := range gaps {
		if g == "What is restartlogic?" {
			foundUncovered = true
		}
	}
	if !foundUncovered {
		t.Fatalf("expected an uncovered term to surface a gap question, got %v", gaps)
	}
}
