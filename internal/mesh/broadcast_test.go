package mesh

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/meshrepublic/kudzu/internal/clock"
	"github.com/meshrepublic/kudzu/internal/hologram"
	"github.com/meshrepublic/kudzu/internal/trace"
)

func TestBroadcastTraceDeliversLocallyAndToEveryPeer(t *testing.T) {
	reg := newTestRegistry(t)
	h1 := hologram.New("H1", "memory", hologram.ConstitutionMeshRepublic, nil, nil)
	h2 := hologram.New("H2", "memory", hologram.ConstitutionMeshRepublic, nil, nil)
	_ = reg.Register(h1)
	_ = reg.Register(h2)

	var peerHits int32
	peerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&peerHits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(peerSrv.Close)

	b := NewBroadcaster("node-a", nil, reg, nil)
	b.peers = fakePeerLister{nodes: []Node{
		{Name: "node-b", RPCAddr: peerSrv.URL},
		{Name: "node-c", RPCAddr: peerSrv.URL},
	}}

	tr := trace.Trace{
		ID:                 "t1",
		Origin:              "node-a",
		Timestamp:           clock.New().Increment("node-a"),
		Purpose:             trace.PurposeMemory,
		ReconstructionHint:  trace.Hint{"content": "hello"},
	}

	if err := b.BroadcastTrace(context.Background(), tr); err != nil {
		t.Fatalf("broadcast_trace: %v", err)
	}

	if atomic.LoadInt32(&peerHits) != 2 {
		t.Fatalf("expected both peers to receive the broadcast, got %d hits", peerHits)
	}
	if got := len(h1.Recall(trace.PurposeMemory)); got != 1 {
		t.Fatalf("expected H1 to receive the broadcast trace, got %d", got)
	}
	if got := len(h2.Recall(trace.PurposeMemory)); got != 1 {
		t.Fatalf("expected H2 to receive the broadcast trace, got %d", got)
	}
}

func TestBroadcastTraceToleratesUnreachablePeer(t *testing.T) {
	reg := newTestRegistry(t)
	h1 := hologram.New("H1", "memory", hologram.ConstitutionMeshRepublic, nil, nil)
	_ = reg.Register(h1)

	b := NewBroadcaster("node-a", nil, reg, nil)
	b.peers = fakePeerLister{nodes: []Node{{Name: "dead", RPCAddr: "http://127.0.0.1:1"}}}

	tr := trace.Trace{
		ID:                 "t1",
		Origin:              "node-a",
		Timestamp:           clock.New().Increment("node-a"),
		Purpose:             trace.PurposeMemory,
		ReconstructionHint:  trace.Hint{"content": "hello"},
	}

	if err := b.BroadcastTrace(context.Background(), tr); err != nil {
		t.Fatalf("expected broadcast to tolerate an unreachable peer, got %v", err)
	}
	if got := len(h1.Recall(trace.PurposeMemory)); got != 1 {
		t.Fatalf("expected local delivery despite peer failure, got %d", got)
	}
}
