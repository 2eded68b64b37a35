package hologram

import (
	"encoding/json"

	"github.com/meshrepublic/kudzu/internal/clock"
	"github.com/meshrepublic/kudzu/internal/kudzuerr"
	"github.com/meshrepublic/kudzu/internal/trace"
)

// MessageType tags a peer protocol message. Closed set,
// validated against messageTypeAllowlist before any payload is decoded.
type MessageType string

const (
	MsgPing                   MessageType = "ping"
	MsgPong                   MessageType = "pong"
	MsgQuery                  MessageType = "query"
	MsgQueryResponse          MessageType = "query_response"
	MsgTraceShare             MessageType = "trace_share"
	MsgAck                    MessageType = "ack"
	MsgReconstructionRequest  MessageType = "reconstruction_request"
	MsgReconstructionResponse MessageType = "reconstruction_response"
)

var messageTypeAllowlist = map[MessageType]struct{}{
	MsgPing:                   {},
	MsgPong:                   {},
	MsgQuery:                  {},
	MsgQueryResponse:          {},
	MsgTraceShare:             {},
	MsgAck:                    {},
	MsgReconstructionRequest:  {},
	MsgReconstructionResponse: {},
}

// Envelope is the wire shape every peer message shares: origin, a vector
// clock timestamp, the type tag, and an opaque JSON payload decoded only
// after the type has been checked against the allowlist.
type Envelope struct {
	Origin    string          `json:"origin"`
	Timestamp clock.Clock     `json:"timestamp"`
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
}

// QueryPayload is the payload of a "query" message.
type QueryPayload struct {
	Purpose string `json:"purpose"`
	MaxHops int    `json:"max_hops"`
	Visited []string `json:"visited"`
}

// QueryResponsePayload is the payload of a "query_response" message: either
// a list of matching traces, or (on a miss) a short list of suggested peers.
type QueryResponsePayload struct {
	Traces          []trace.Trace `json:"traces"`
	SuggestedPeers  []string      `json:"suggested_peers,omitempty"`
}

// TraceSharePayload carries a single trace being pushed to a peer.
type TraceSharePayload struct {
	Trace trace.Trace `json:"trace"`
}

// AckPayload acknowledges receipt, optionally carrying an error string.
type AckPayload struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// ReconstructionRequestPayload asks a peer to resend its full persistent
// registry record for id (used after a local crash-recovery gap).
type ReconstructionRequestPayload struct {
	HologramID string `json:"hologram_id"`
}

// ReconstructionResponsePayload answers a reconstruction request.
type ReconstructionResponsePayload struct {
	Record RegistryRecord `json:"record"`
	Found  bool           `json:"found"`
}

// Encode builds a deterministic JSON envelope around payload. json.Marshal
// of a map-free, field-ordered struct is deterministic given identical
// inputs, so no custom canonicalization pass is needed.
func Encode(origin string, c clock.Clock, msgType MessageType, payload interface{}) ([]byte, error) {
	if _, ok := messageTypeAllowlist[msgType]; !ok {
		return nil, kudzuerr.New(kudzuerr.KindInvalidInput, "unrecognized message type %q", string(msgType))
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, kudzuerr.Wrap(kudzuerr.KindInvalidInput, err, "marshal payload")
	}
	env := Envelope{Origin: origin, Timestamp: c, Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, kudzuerr.Wrap(kudzuerr.KindInvalidInput, err, "marshal envelope")
	}
	return data, nil
}

// Decode parses an envelope and validates its type tag against the
// allowlist before returning. It never executes or evaluates the payload
// bytes — the caller decodes the specific payload type only after
// confirming the tag.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, kudzuerr.Wrap(kudzuerr.KindInvalidInput, err, "decode envelope")
	}
	if _, ok := messageTypeAllowlist[env.Type]; !ok {
		return Envelope{}, kudzuerr.New(kudzuerr.KindInvalidInput, "message type %q not in allowlist", string(env.Type))
	}
	return env, nil
}

// DecodeQuery decodes the payload of an already-validated "query" envelope.
func DecodeQuery(env Envelope) (QueryPayload, error) {
	var p QueryPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return QueryPayload{}, kudzuerr.Wrap(kudzuerr.KindInvalidInput, err, "decode query payload")
	}
	return p, nil
}

// DecodeQueryResponse decodes the payload of a "query_response" envelope.
func DecodeQueryResponse(env Envelope) (QueryResponsePayload, error) {
	var p QueryResponsePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return QueryResponsePayload{}, kudzuerr.Wrap(kudzuerr.KindInvalidInput, err, "decode query_response payload")
	}
	return p, nil
}

// DecodeTraceShare decodes the payload of a "trace_share" envelope.
func DecodeTraceShare(env Envelope) (TraceSharePayload, error) {
	var p TraceSharePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return TraceSharePayload{}, kudzuerr.Wrap(kudzuerr.KindInvalidInput, err, "decode trace_share payload")
	}
	return p, nil
}
