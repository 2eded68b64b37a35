package hologram

import (
	"context"

	"github.com/tochemey/goakt/v2/actors"
	"github.com/tochemey/goakt/v2/goakt"

	"github.com/meshrepublic/kudzu/internal/kudzuerr"
	"github.com/meshrepublic/kudzu/internal/trace"
)

// Client is the public handle other subsystems (brain, silo, mesh) use to
// talk to a hologram actor without importing goakt themselves or knowing
// the message/reply-channel plumbing in actor.go.
type Client struct {
	system goakt.ActorSystem
	pid    actors.PID
}

// NewClient wraps an already-spawned hologram actor's PID.
func NewClient(system goakt.ActorSystem, pid actors.PID) *Client {
	return &Client{system: system, pid: pid}
}

func (c *Client) RecordTrace(ctx context.Context, purpose trace.Purpose, hint trace.Hint, importance trace.Importance) (trace.Trace, error) {
	msg := &RecordTraceMsg{Purpose: purpose, Hint: hint, Importance: importance, Reply: make(chan recordTraceResult, 1)}
	if err := c.system.Tell(ctx, c.pid, msg); err != nil {
		return trace.Trace{}, kudzuerr.Wrap(kudzuerr.KindUnreachable, err, "tell hologram actor")
	}
	select {
	case res := <-msg.Reply:
		return res.Trace, res.Err
	case <-ctx.Done():
		return trace.Trace{}, kudzuerr.Of(kudzuerr.KindTimeout)
	}
}

func (c *Client) Recall(ctx context.Context, purpose trace.Purpose) ([]trace.Trace, error) {
	msg := &RecallMsg{Purpose: purpose, Reply: make(chan []trace.Trace, 1)}
	if err := c.system.Tell(ctx, c.pid, msg); err != nil {
		return nil, kudzuerr.Wrap(kudzuerr.KindUnreachable, err, "tell hologram actor")
	}
	select {
	case traces := <-msg.Reply:
		return traces, nil
	case <-ctx.Done():
		return nil, kudzuerr.Of(kudzuerr.KindTimeout)
	}
}

func (c *Client) IntroducePeer(ctx context.Context, peerID string) error {
	return c.system.Tell(ctx, c.pid, &IntroducePeerMsg{PeerID: peerID})
}

func (c *Client) ReceiveTrace(ctx context.Context, t trace.Trace, fromID string) error {
	return c.system.Tell(ctx, c.pid, &ReceiveTraceMsg{Trace: t, FromID: fromID})
}

func (c *Client) Stimulate(ctx context.Context, stimulus string) (StimulateResult, error) {
	msg := &StimulateMsg{Stimulus: stimulus, Reply: make(chan stimulateResult, 1)}
	if err := c.system.Tell(ctx, c.pid, msg); err != nil {
		return StimulateResult{}, kudzuerr.Wrap(kudzuerr.KindUnreachable, err, "tell hologram actor")
	}
	select {
	case res := <-msg.Reply:
		return res.Result, res.Err
	case <-ctx.Done():
		return StimulateResult{}, kudzuerr.Of(kudzuerr.KindTimeout)
	}
}

func (c *Client) SetConstitution(ctx context.Context, framework Constitution) error {
	msg := &SetConstitutionMsg{Framework: framework, Reply: make(chan setConstitutionResult, 1)}
	if err := c.system.Tell(ctx, c.pid, msg); err != nil {
		return kudzuerr.Wrap(kudzuerr.KindUnreachable, err, "tell hologram actor")
	}
	select {
	case res := <-msg.Reply:
		return res.Err
	case <-ctx.Done():
		return kudzuerr.Of(kudzuerr.KindTimeout)
	}
}
