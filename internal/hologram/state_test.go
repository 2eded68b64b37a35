package hologram

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/meshrepublic/kudzu/internal/trace"
)

func TestRecordTraceDeduplicatesByContentHash(t *testing.T) {
	h := New("H1", "memory", ConstitutionMeshRepublic, nil, nil)
	ctx := context.Background()

	hint := trace.Hint{"content": "hello world"}
	t1, err := h.RecordTrace(ctx, trace.PurposeMemory, hint, trace.ImportanceNormal)
	if err != nil {
		t.Fatalf("record 1: %v", err)
	}
	t2, err := h.RecordTrace(ctx, trace.PurposeMemory, hint, trace.ImportanceNormal)
	if err != nil {
		t.Fatalf("record 2: %v", err)
	}
	if len(h.Traces) != 1 {
		t.Fatalf("expected exactly one stored trace, got %d", len(h.Traces))
	}
	if t1.ID != t2.ID {
		t.Fatalf("expected identical ids for duplicate content, got %s != %s", t1.ID, t2.ID)
	}

	want := sha256.Sum256([]byte(`H1|memory|content:"hello world"`))
	wantHex := hex.EncodeToString(want[:])
	if t1.ID != wantHex {
		t.Fatalf("expected id %s, got %s", wantHex, t1.ID)
	}
}

func TestDesireQueueCapsAtTen(t *testing.T) {
	h := New("H1", "memory", ConstitutionMeshRepublic, nil, nil)
	for i := 0; i < 10; i++ {
		if err := h.AddDesire("d"); err != nil {
			t.Fatalf("desire %d: %v", i, err)
		}
	}
	if err := h.AddDesire("overflow"); err == nil {
		t.Fatalf("expected 11th desire to be rejected")
	}
}

func TestSetConstitutionClearsDesiresAndRecordsTrace(t *testing.T) {
	h := New("H1", "memory", ConstitutionMeshRepublic, nil, nil)
	_ = h.AddDesire("explore")
	ctx := context.Background()

	tr, err := h.SetConstitution(ctx, ConstitutionCautious, false)
	if err != nil {
		t.Fatalf("set constitution: %v", err)
	}
	if tr.Purpose != trace.PurposeConstitutionChange {
		t.Fatalf("expected constitution_change trace, got %s", tr.Purpose)
	}
	if len(h.GetDesires()) != 0 {
		t.Fatalf("expected desires cleared after constitution change")
	}
	if h.GetConstitution() != ConstitutionCautious {
		t.Fatalf("expected constitution updated to cautious")
	}
}

func TestSetConstitutionRejectsOpenInProduction(t *testing.T) {
	h := New("H1", "memory", ConstitutionMeshRepublic, nil, nil)
	if _, err := h.SetConstitution(context.Background(), ConstitutionOpen, true); err == nil {
		t.Fatalf("expected open constitution rejected in production")
	}
}

type stubCognition struct {
	actions []Action
}

func (s stubCognition) Generate(ctx context.Context, prompt string) (CognitionResult, error) {
	return CognitionResult{Response: "ack", Actions: s.actions}, nil
}

func TestStimulateDeniesFileWriteUnderCautious(t *testing.T) {
	h := New("H1", "memory", ConstitutionCautious, nil, stubCognition{actions: []Action{{Type: "file_write", Params: map[string]interface{}{"path": "/tmp/x"}}}})
	result, err := h.Stimulate(context.Background(), "do something")
	if err != nil {
		t.Fatalf("stimulate: %v", err)
	}
	if len(result.ExecutedActions) != 0 {
		t.Fatalf("expected file_write not to execute under cautious constitution")
	}

	denied := h.Recall(trace.PurposeActionDenied)
	if len(denied) != 1 {
		t.Fatalf("expected exactly one action_denied trace, got %d", len(denied))
	}
	if denied[0].ReconstructionHint["reason"] == "" {
		t.Fatalf("expected nonempty denial reason in trace hint")
	}
	if denied[0].ReconstructionHint["constitution"] != string(ConstitutionCautious) {
		t.Fatalf("expected denial trace to record the constitution")
	}
}

func TestStimulateWithoutCognitionIsDisabled(t *testing.T) {
	h := New("H1", "memory", ConstitutionMeshRepublic, nil, nil)
	if _, err := h.Stimulate(context.Background(), "hi"); err == nil {
		t.Fatalf("expected CognitionDisabled when no backend is wired")
	}
}

func TestReceiveTraceMergesClockAndBoostsProximity(t *testing.T) {
	h := New("H2", "memory", ConstitutionMeshRepublic, nil, nil)
	sender := New("H1", "memory", ConstitutionMeshRepublic, nil, nil)
	tr, _ := sender.RecordTrace(context.Background(), trace.PurposeObservation, trace.Hint{"x": 1}, trace.ImportanceNormal)

	if err := h.ReceiveTrace(context.Background(), tr, "H1"); err != nil {
		t.Fatalf("receive trace: %v", err)
	}
	if len(h.Traces) != 1 {
		t.Fatalf("expected trace stored after receive")
	}
	if h.Peers["H1"] == 0 {
		t.Fatalf("expected proximity boost for sender")
	}
}
