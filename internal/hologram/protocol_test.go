package hologram

import (
	"testing"

	"github.com/meshrepublic/kudzu/internal/clock"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := QueryPayload{Purpose: "memory", MaxHops: 2}
	data, err := Encode("H1", clock.New().Increment("H1"), MsgQuery, payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	env, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Type != MsgQuery || env.Origin != "H1" {
		t.Fatalf("unexpected envelope %+v", env)
	}
	decoded, err := DecodeQuery(env)
	if err != nil {
		t.Fatalf("decode query payload: %v", err)
	}
	if decoded.Purpose != "memory" || decoded.MaxHops != 2 {
		t.Fatalf("unexpected payload %+v", decoded)
	}
}

func TestEncodeRejectsTypeOutsideAllowlist(t *testing.T) {
	if _, err := Encode("H1", clock.New(), MessageType("delete_everything"), struct{}{}); err == nil {
		t.Fatalf("expected encode to reject a message type outside the allowlist")
	}
}
