package hologram

import "testing"

func TestRegistryRegistersUnderIDAndPurpose(t *testing.T) {
	reg := NewRegistry(t.TempDir())
	h := New("H1", "memory", ConstitutionMeshRepublic, nil, nil)
	if err := reg.Register(h); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, ok := reg.Lookup("H1"); !ok {
		t.Fatalf("expected lookup by id to find the hologram")
	}
	byPurpose := reg.LookupByPurpose("memory")
	if len(byPurpose) != 1 {
		t.Fatalf("expected one hologram under purpose memory, got %d", len(byPurpose))
	}
}

func TestRegistryPersistsAndReconstructs(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry(dir)
	h := New("H1", "memory", ConstitutionCautious, nil, nil)
	_ = h.AddDesire("explore")
	if err := reg.Register(h); err != nil {
		t.Fatalf("register: %v", err)
	}

	reloaded := NewRegistry(dir)
	records, err := reloaded.LoadRecords()
	if err != nil {
		t.Fatalf("load records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one persisted record, got %d", len(records))
	}
	rebuilt := Reconstruct(records[0], nil, nil)
	if rebuilt.ID != "H1" || rebuilt.GetConstitution() != ConstitutionCautious {
		t.Fatalf("expected reconstructed hologram to match persisted record, got %+v", rebuilt)
	}
	if len(rebuilt.GetDesires()) != 1 {
		t.Fatalf("expected desires restored from registry record")
	}
}

func TestFindOrSpawnSiloIsIdempotent(t *testing.T) {
	reg := NewRegistry(t.TempDir())
	first, err := reg.FindOrSpawnSilo("erlang_otp", nil)
	if err != nil {
		t.Fatalf("spawn silo: %v", err)
	}
	if first.GetConstitution() != ConstitutionKudzuEvolve {
		t.Fatalf("expected kudzu_evolve constitution for a new silo")
	}
	if first.CognitionEnabled {
		t.Fatalf("expected cognition disabled for a new silo")
	}

	second, err := reg.FindOrSpawnSilo("erlang_otp", nil)
	if err != nil {
		t.Fatalf("find silo: %v", err)
	}
	if first != second {
		t.Fatalf("expected the second call to return the existing silo")
	}
}
