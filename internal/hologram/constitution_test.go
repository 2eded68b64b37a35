package hologram

import "testing"

func TestCautiousDeniesFileWrite(t *testing.T) {
	decision := Permitted(ConstitutionCautious, Action{Type: "file_write", Params: map[string]interface{}{"path": "/tmp/x"}})
	if decision.Verdict != VerdictDenied {
		t.Fatalf("expected denied, got %v", decision.Verdict)
	}
	if decision.Reason == "" {
		t.Fatalf("expected nonempty denial reason")
	}
}

func TestMeshRepublicRequiresConsensusForHighImpact(t *testing.T) {
	decision := Permitted(ConstitutionMeshRepublic, Action{Type: "set_constitution"})
	if decision.Verdict != VerdictRequiresConsensus {
		t.Fatalf("expected requires_consensus, got %v", decision.Verdict)
	}
	if decision.Threshold <= 0 {
		t.Fatalf("expected a positive consensus threshold")
	}
}

func TestKudzuEvolvePermitsEverything(t *testing.T) {
	decision := Permitted(ConstitutionKudzuEvolve, Action{Type: "file_write"})
	if decision.Verdict != VerdictPermitted {
		t.Fatalf("expected permitted, got %v", decision.Verdict)
	}
}

func TestOpenBlockedInProduction(t *testing.T) {
	if err := ValidateForProduction(ConstitutionOpen, true); err == nil {
		t.Fatalf("expected open constitution to be rejected in production")
	}
	if err := ValidateForProduction(ConstitutionOpen, false); err != nil {
		t.Fatalf("expected open constitution to be accepted outside production: %v", err)
	}
}
