package hologram

import (
	"context"
	"testing"

	"github.com/meshrepublic/kudzu/internal/trace"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(t.TempDir())
}

func TestQueryPeerReturnsDirectMatch(t *testing.T) {
	reg := newTestRegistry(t)
	a := New("A", "memory", ConstitutionMeshRepublic, nil, nil)
	b := New("B", "memory", ConstitutionMeshRepublic, nil, nil)
	_ = reg.Register(a)
	_ = reg.Register(b)
	_, _ = b.RecordTrace(context.Background(), trace.PurposeMemory, trace.Hint{"content": "x"}, trace.ImportanceNormal)

	dialer := LocalDialer{Registry: reg}
	results, err := a.QueryPeer(context.Background(), dialer, "B", trace.PurposeMemory, 2)
	if err != nil {
		t.Fatalf("query_peer: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one matching trace, got %d", len(results))
	}
	if a.Peers["B"] == 0 {
		t.Fatalf("expected proximity boost with answerer")
	}
}

func TestQueryPeerFollowsSuggestionOnMiss(t *testing.T) {
	reg := newTestRegistry(t)
	a := New("A", "memory", ConstitutionMeshRepublic, nil, nil)
	b := New("B", "memory", ConstitutionMeshRepublic, nil, nil)
	c := New("C", "memory", ConstitutionMeshRepublic, nil, nil)
	_ = reg.Register(a)
	_ = reg.Register(b)
	_ = reg.Register(c)

	// B has no matches but knows about C with high proximity.
	b.Peers.Boost("C")
	b.Peers.Boost("C")
	_, _ = c.RecordTrace(context.Background(), trace.PurposeDiscovery, trace.Hint{"content": "found it"}, trace.ImportanceNormal)

	dialer := LocalDialer{Registry: reg}
	results, err := a.QueryPeer(context.Background(), dialer, "B", trace.PurposeDiscovery, 2)
	if err != nil {
		t.Fatalf("query_peer: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected query to recurse to C and find one trace, got %d", len(results))
	}
}

func TestQueryPeerVisitedSetPreventsLoops(t *testing.T) {
	reg := newTestRegistry(t)
	a := New("A", "memory", ConstitutionMeshRepublic, nil, nil)
	b := New("B", "memory", ConstitutionMeshRepublic, nil, nil)
	c := New("C", "memory", ConstitutionMeshRepublic, nil, nil)
	_ = reg.Register(a)
	_ = reg.Register(b)
	_ = reg.Register(c)

	// B and C suggest each other back and forth, never A (excluded from
	// suggestions); neither has a match, so without loop prevention this
	// recurses forever.
	b.Peers.Boost("C")
	c.Peers.Boost("B")

	dialer := LocalDialer{Registry: reg}
	_, err := a.QueryPeer(context.Background(), dialer, "B", trace.PurposeDiscovery, 5)
	if err == nil {
		t.Fatalf("expected NotFound rather than an infinite loop")
	}
}

func TestHandleEnvelopeRejectsUnknownType(t *testing.T) {
	env := Envelope{Origin: "x", Type: MessageType("evil_exec"), Payload: []byte(`{}`)}
	h := New("H1", "memory", ConstitutionMeshRepublic, nil, nil)
	if _, err := h.HandleEnvelope(context.Background(), env); err == nil {
		t.Fatalf("expected unrecognized message type to be rejected before dispatch")
	}
}

func TestDecodeRejectsTypeOutsideAllowlist(t *testing.T) {
	if _, err := Decode([]byte(`{"origin":"x","type":"shell_exec","payload":{}}`)); err == nil {
		t.Fatalf("expected decode to reject a type outside the allowlist")
	}
}
