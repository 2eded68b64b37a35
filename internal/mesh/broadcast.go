package mesh

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/meshrepublic/kudzu/internal/hologram"
	"github.com/meshrepublic/kudzu/internal/kudzuerr"
	"github.com/meshrepublic/kudzu/internal/trace"
)

// Broadcaster fans a trace out to every known node and, on each, to every
// hologram. Delivery to peers is fire-and-forget: one peer
// being unreachable never blocks or fails delivery to the rest.
type Broadcaster struct {
	peers    peerLister
	registry *hologram.Registry
	nodeID   string
	client   *http.Client
	logger   *zap.Logger
}

// NewBroadcaster builds a Broadcaster delivering locally through registry
// and remotely through membership's current peer list.
func NewBroadcaster(nodeID string, membership *Membership, registry *hologram.Registry, logger *zap.Logger) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{
		peers:    membership,
		registry: registry,
		nodeID:   nodeID,
		client:   &http.Client{Timeout: DefaultRPCTimeout},
		logger:   logger.Named("mesh.broadcast"),
	}
}

// BroadcastTrace delivers t as a trace_share envelope to every hologram
// registered on this node, then fans the same envelope out to every known
// mesh peer's /rpc/broadcast endpoint concurrently.
func (b *Broadcaster) BroadcastTrace(ctx context.Context, t trace.Trace) error {
	env, err := hologram.Encode(b.nodeID, t.Timestamp, hologram.MsgTraceShare, hologram.TraceSharePayload{Trace: t})
	if err != nil {
		return kudzuerr.Wrap(kudzuerr.KindInvalidInput, err, "encode broadcast_trace envelope")
	}

	for _, id := range b.registry.AllIDs() {
		state, ok := b.registry.Lookup(id)
		if !ok {
			continue
		}
		decoded, derr := hologram.Decode(env)
		if derr != nil {
			continue
		}
		if _, herr := state.HandleEnvelope(ctx, decoded); herr != nil {
			b.logger.Warn("local broadcast delivery failed", zap.String("hologram", id), zap.Error(herr))
		}
	}

	body, err := json.Marshal(targetedRequest{Envelope: env})
	if err != nil {
		return kudzuerr.Wrap(kudzuerr.KindInvalidInput, err, "marshal broadcast request")
	}

	var wg sync.WaitGroup
	for _, peer := range b.peers.Peers() {
		if peer.RPCAddr == "" {
			continue
		}
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()
			b.deliverTo(ctx, addr, body)
		}(peer.RPCAddr)
	}
	wg.Wait()
	return nil
}

func (b *Broadcaster) deliverTo(ctx context.Context, rpcAddr string, body []byte) {
	ctx, cancel := context.WithTimeout(ctx, DefaultRPCTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rpcAddr+"/rpc/broadcast", bytes.NewReader(body))
	if err != nil {
		b.logger.Warn("build broadcast request failed", zap.String("peer", rpcAddr), zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		b.logger.Warn("broadcast to peer failed", zap.String("peer", rpcAddr), zap.Error(err))
		return
	}
	defer resp.Body.Close()
}
