package hologram

import (
	"context"

	"github.com/meshrepublic/kudzu/internal/clock"
	"github.com/meshrepublic/kudzu/internal/kudzuerr"
	"github.com/meshrepublic/kudzu/internal/trace"
)

// PeerDialer delivers an already-encoded envelope to peerID and returns its
// reply envelope. The in-process LocalDialer satisfies this by looking the
// peer up in a Registry and calling its handler directly; the mesh package
// supplies a cross-node implementation over RPC so query_peer's
// logic here stays transport-agnostic.
type PeerDialer interface {
	Send(ctx context.Context, peerID string, env Envelope) (Envelope, error)
}

// LocalDialer dispatches peer messages to holograms registered in the same
// process, for single-node operation and tests.
type LocalDialer struct {
	Registry *Registry
}

func (d LocalDialer) Send(ctx context.Context, peerID string, env Envelope) (Envelope, error) {
	peer, ok := d.Registry.Lookup(peerID)
	if !ok {
		return Envelope{}, kudzuerr.Of(kudzuerr.KindNotFound)
	}
	return peer.HandleEnvelope(ctx, env)
}

// HandleEnvelope dispatches an already-validated envelope to the matching
// handler. Used by both LocalDialer and the
// mesh package's RPC server.
func (s *State) HandleEnvelope(ctx context.Context, env Envelope) (Envelope, error) {
	switch env.Type {
	case MsgPing:
		s.IntroducePeer(env.Origin)
		return encodeEnvelope(s.ID, s.tickedClock(), MsgPong, struct{}{})
	case MsgQuery:
		payload, err := DecodeQuery(env)
		if err != nil {
			return Envelope{}, err
		}
		matches := s.recallForQuery(trace.Purpose(payload.Purpose))
		resp := QueryResponsePayload{Traces: matches}
		if len(matches) == 0 {
			resp.SuggestedPeers = s.SuggestedPeers(env.Origin)
		} else {
			s.Peers.Boost(env.Origin)
		}
		return encodeEnvelope(s.ID, s.tickedClock(), MsgQueryResponse, resp)
	case MsgTraceShare:
		payload, err := DecodeTraceShare(env)
		if err != nil {
			return Envelope{}, err
		}
		if err := s.ReceiveTrace(ctx, payload.Trace, env.Origin); err != nil {
			return encodeEnvelope(s.ID, s.tickedClock(), MsgAck, AckPayload{OK: false, Error: err.Error()})
		}
		return encodeEnvelope(s.ID, s.tickedClock(), MsgAck, AckPayload{OK: true})
	case MsgReconstructionRequest:
		return encodeEnvelope(s.ID, s.tickedClock(), MsgReconstructionResponse,
			ReconstructionResponsePayload{Record: s.Snapshot(), Found: true})
	default:
		return Envelope{}, kudzuerr.New(kudzuerr.KindInvalidInput, "no handler for message type %q", string(env.Type))
	}
}

func (s *State) recallForQuery(purpose trace.Purpose) []trace.Trace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recallLocked(purpose)
}

func (s *State) tickedClock() clock.Clock {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Clock = s.Clock.Increment(s.ID)
	return s.Clock
}

// encodeEnvelope is Encode with the allowlist/marshal error collapsed into the
// Envelope return so HandleEnvelope's callers have one return shape; it
// never fails for the payload types defined in this package.
func encodeEnvelope(origin string, c clock.Clock, msgType MessageType, payload interface{}) (Envelope, error) {
	data, err := Encode(origin, c, msgType, payload)
	if err != nil {
		return Envelope{}, err
	}
	return Decode(data)
}

// QueryPeer sends a query to peerID and, on a miss, recurses into the
// suggested peers up to maxHops, tracking a visited set to prevent loops
//. A successful answer boosts proximity with the answerer.
func (s *State) QueryPeer(ctx context.Context, dialer PeerDialer, peerID string, purpose trace.Purpose, maxHops int) ([]trace.Trace, error) {
	visited := map[string]struct{}{s.ID: {}}
	return s.queryPeerHop(ctx, dialer, peerID, purpose, maxHops, visited)
}

func (s *State) queryPeerHop(ctx context.Context, dialer PeerDialer, peerID string, purpose trace.Purpose, hopsLeft int, visited map[string]struct{}) ([]trace.Trace, error) {
	if _, seen := visited[peerID]; seen {
		return nil, kudzuerr.Of(kudzuerr.KindNotFound)
	}
	visited[peerID] = struct{}{}

	env, err := encodeEnvelope(s.ID, s.tickedClock(), MsgQuery, QueryPayload{Purpose: string(purpose), MaxHops: hopsLeft})
	if err != nil {
		return nil, err
	}
	reply, err := dialer.Send(ctx, peerID, env)
	if err != nil {
		return nil, kudzuerr.Wrap(kudzuerr.KindTimeout, err, "query_peer to %s", peerID)
	}
	if reply.Type != MsgQueryResponse {
		return nil, kudzuerr.New(kudzuerr.KindInvalidInput, "unexpected reply type %q", string(reply.Type))
	}
	payload, err := DecodeQueryResponse(reply)
	if err != nil {
		return nil, err
	}
	if len(payload.Traces) > 0 {
		s.mu.Lock()
		s.Peers.Boost(peerID)
		s.mu.Unlock()
		return payload.Traces, nil
	}
	if hopsLeft <= 0 {
		return nil, kudzuerr.Of(kudzuerr.KindNotFound)
	}
	for _, next := range payload.SuggestedPeers {
		if results, err := s.queryPeerHop(ctx, dialer, next, purpose, hopsLeft-1, visited); err == nil {
			return results, nil
		}
	}
	return nil, kudzuerr.Of(kudzuerr.KindNotFound)
}
