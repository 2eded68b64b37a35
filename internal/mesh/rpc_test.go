package mesh

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/meshrepublic/kudzu/internal/hologram"
	"github.com/meshrepublic/kudzu/internal/kudzuerr"
	"github.com/meshrepublic/kudzu/internal/trace"
)

type fakePeerLister struct {
	nodes []Node
}

func (f fakePeerLister) Peers() []Node { return f.nodes }

func newTestRegistry(t *testing.T) *hologram.Registry {
	t.Helper()
	return hologram.NewRegistry(t.TempDir())
}

func TestDialerSendDeliversToHologramOnFirstRespondingPeer(t *testing.T) {
	reg := newTestRegistry(t)
	b := hologram.New("B", "memory", hologram.ConstitutionMeshRepublic, nil, nil)
	if err := reg.Register(b); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, _ = b.RecordTrace(context.Background(), trace.PurposeMemory, trace.Hint{"content": "x"}, trace.ImportanceNormal)

	srv := httptest.NewServer(NewServer(reg, nil).Handler())
	t.Cleanup(srv.Close)

	dialer := NewDialer(nil, nil)
	dialer.peers = fakePeerLister{nodes: []Node{{Name: "node-b", RPCAddr: srv.URL}}}

	a := hologram.New("A", "memory", hologram.ConstitutionMeshRepublic, nil, nil)
	results, err := a.QueryPeer(context.Background(), dialer, "B", trace.PurposeMemory, 1)
	if err != nil {
		t.Fatalf("query_peer over rpc: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one trace back over rpc, got %d", len(results))
	}
}

func TestDialerSendSkipsUnreachablePeerAndTriesNext(t *testing.T) {
	reg := newTestRegistry(t)
	b := hologram.New("B", "memory", hologram.ConstitutionMeshRepublic, nil, nil)
	_ = reg.Register(b)
	_, _ = b.RecordTrace(context.Background(), trace.PurposeMemory, trace.Hint{"content": "x"}, trace.ImportanceNormal)

	srv := httptest.NewServer(NewServer(reg, nil).Handler())
	t.Cleanup(srv.Close)

	dialer := NewDialer(nil, nil)
	dialer.peers = fakePeerLister{nodes: []Node{
		{Name: "dead", RPCAddr: "http://127.0.0.1:1"},
		{Name: "node-b", RPCAddr: srv.URL},
	}}

	a := hologram.New("A", "memory", hologram.ConstitutionMeshRepublic, nil, nil)
	results, err := a.QueryPeer(context.Background(), dialer, "B", trace.PurposeMemory, 1)
	if err != nil {
		t.Fatalf("expected the second peer to answer despite the first being unreachable: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one trace, got %d", len(results))
	}
}

func TestDialerSendExhaustingAllPeersReturnsUnreachable(t *testing.T) {
	dialer := NewDialer(nil, nil)
	dialer.peers = fakePeerLister{nodes: []Node{{Name: "dead", RPCAddr: "http://127.0.0.1:1"}}}

	_, err := dialer.Send(context.Background(), "B", hologram.Envelope{})
	if !kudzuerr.IsKind(err, kudzuerr.KindUnreachable) {
		t.Fatalf("expected KindUnreachable, got %v", err)
	}
}

func TestServerHandleTargetedReturnsNotFoundForUnknownHologram(t *testing.T) {
	reg := newTestRegistry(t)
	srv := httptest.NewServer(NewServer(reg, nil).Handler())
	t.Cleanup(srv.Close)

	dialer := NewDialer(nil, nil)
	dialer.peers = fakePeerLister{nodes: []Node{{Name: "node-b", RPCAddr: srv.URL}}}

	_, err := dialer.Send(context.Background(), "nonexistent", hologram.Envelope{Origin: "A", Type: hologram.MsgPing, Payload: []byte("{}")})
	if err == nil {
		t.Fatalf("expected an error when the target hologram doesn't exist on the peer")
	}
}
